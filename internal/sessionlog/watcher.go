package sessionlog

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mineclover/claude-code-spec-sub003/internal/logging"
)

// Watcher observes a single session transcript for appended entries and
// invokes a callback after writes settle. The containing directory is watched
// rather than the file itself, so a transcript created after the watcher
// starts is still picked up.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
}

// NewWatcher creates a watcher for the transcript at path. onChange fires at
// most once per debounce window.
func NewWatcher(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:      path,
		onChange:  onChange,
		debounce:  debounce,
		fsWatcher: fsWatcher,
		done:      make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevant(event) {
				continue
			}
			// Restart the debounce window on every relevant write.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.onChange()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Warn("transcript watcher error", "path", w.path, "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}

// Stop shuts the watcher down. Safe to call once.
func (w *Watcher) Stop() {
	close(w.done)
	w.fsWatcher.Close()
}
