// Package daemon implements the ccsd background service: it owns the
// supervisor, the transcript reader, and the control socket, and relays
// execution stream events to connected clients.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mineclover/claude-code-spec-sub003/internal/config"
	"github.com/mineclover/claude-code-spec-sub003/internal/control"
	"github.com/mineclover/claude-code-spec-sub003/internal/logging"
	"github.com/mineclover/claude-code-spec-sub003/internal/sessionlog"
	"github.com/mineclover/claude-code-spec-sub003/internal/store"
	"github.com/mineclover/claude-code-spec-sub003/internal/supervisor"
)

// ShutdownTimeout is how long to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Daemon is the main background service.
type Daemon struct {
	config     *config.Config
	store      *store.Store
	server     *control.Server
	supervisor *supervisor.Supervisor
	logs       *sessionlog.CachedReader

	startedAt time.Time

	watchersMu sync.Mutex
	watchers   map[string]*sessionlog.Watcher

	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	unsubscribe  func()
}

// New creates a new daemon instance.
func New(cfg *config.Config) (*Daemon, error) {
	st, err := store.New(cfg.Daemon.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:     cfg,
		store:      st,
		server:     control.NewServer(cfg.Daemon.Socket),
		supervisor: supervisor.New(cfg, st),
		logs: sessionlog.NewCachedReader(
			sessionlog.NewReader(cfg.SessionLogs.Root),
			cfg.SessionLogs.CacheTTL,
		),
		startedAt: time.Now(),
		watchers:  make(map[string]*sessionlog.Watcher),
		ctx:       ctx,
		cancel:    cancel,
	}

	d.unsubscribe = d.supervisor.Subscribe(d.relayNotification)
	d.registerHandlers()
	return d, nil
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run() error {
	if err := d.server.Start(); err != nil {
		return err
	}
	logging.Info("control server listening", "socket", d.config.Daemon.Socket)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info("received signal, shutting down", "signal", sig)
	case <-d.ctx.Done():
	}

	return d.Shutdown()
}

// Shutdown stops the daemon gracefully: running executions are killed, their
// event pumps drained, and the socket removed. Safe to call more than once.
func (d *Daemon) Shutdown() error {
	d.shutdownOnce.Do(func() {
		logging.Info("daemon shutting down")
		d.cancel()

		done := make(chan struct{})
		go func() {
			d.supervisor.Shutdown()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(ShutdownTimeout):
			logging.Warn("shutdown timed out waiting for executions")
		}

		d.unsubscribe()

		d.watchersMu.Lock()
		for id, w := range d.watchers {
			delete(d.watchers, id)
			w.Stop()
		}
		d.watchersMu.Unlock()

		d.server.Stop()

		if err := d.store.Close(); err != nil {
			logging.Error("failed to close store", "error", err)
		}
		logging.Flush(2 * time.Second)
	})
	return nil
}

// relayNotification converts supervisor notifications into control-plane
// events for connected clients.
func (d *Daemon) relayNotification(n supervisor.Notification) {
	switch n.Type {
	case supervisor.NotifyStarted:
		d.watchTranscript(n.SessionID)
		d.server.Broadcast(control.Event{
			Type:    control.EventExecutionStarted,
			Payload: map[string]string{"session_id": n.SessionID},
		})

	case supervisor.NotifyStream:
		if n.Event == nil {
			return
		}
		d.server.Broadcast(control.Event{
			Type: control.EventExecutionStream,
			Payload: control.StreamEventInfo{
				SessionID: n.SessionID,
				Kind:      string(n.Event.Kind),
				Text:      n.Event.Text(),
				Raw:       string(n.Event.Raw),
			},
		})

	case supervisor.NotifyError:
		payload := map[string]string{"session_id": n.SessionID}
		if n.Err != nil {
			payload["error"] = n.Err.Error()
		}
		d.server.Broadcast(control.Event{
			Type:    control.EventExecutionError,
			Payload: payload,
		})

	case supervisor.NotifyCompleted:
		d.stopWatcher(n.SessionID)
		d.server.Broadcast(control.Event{
			Type: control.EventExecutionCompleted,
			Payload: map[string]string{
				"session_id": n.SessionID,
				"status":     string(n.Status),
			},
		})
	}
}

// watchTranscript follows the transcript the CLI writes for a running
// execution: appended entries invalidate the read cache and notify clients.
func (d *Daemon) watchTranscript(sessionID string) {
	exec, err := d.supervisor.Get(sessionID)
	if err != nil {
		return
	}
	projectPath := exec.ProjectPath

	path := d.logs.Path(projectPath, sessionID)
	w, err := sessionlog.NewWatcher(path, 500*time.Millisecond, func() {
		d.logs.Invalidate(projectPath, sessionID)
		d.server.Broadcast(control.Event{
			Type: control.EventLogChanged,
			Payload: map[string]string{
				"session_id":   sessionID,
				"project_path": projectPath,
			},
		})
	})
	if err != nil {
		// Transcript dir may not exist yet for a fresh project.
		logging.Debug("transcript watch unavailable", "session_id", sessionID, "error", err)
		return
	}

	d.watchersMu.Lock()
	d.watchers[sessionID] = w
	d.watchersMu.Unlock()
}

func (d *Daemon) stopWatcher(sessionID string) {
	d.watchersMu.Lock()
	w, ok := d.watchers[sessionID]
	if ok {
		delete(d.watchers, sessionID)
	}
	d.watchersMu.Unlock()

	if ok {
		w.Stop()
	}
}
