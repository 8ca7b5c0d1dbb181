package claudecode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/mineclover/claude-code-spec-sub003/internal/executil"
)

// Process represents a running Claude Code process.
type Process struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	stderrPipe io.ReadCloser

	events    chan StreamEvent
	errors    chan error
	stderrOut chan string // stderr lines for debugging
	done      chan struct{}

	mu       sync.Mutex
	running  bool
	exitCode int
	pid      int
}

// Spawn starts a new Claude Code process with the given options. Color
// output is forced off so the stream stays parseable.
func Spawn(ctx context.Context, opts *SpawnOptions) (*Process, error) {
	cmd, err := executil.CommandContext(ctx, opts.binary(), opts.Args()...)
	if err != nil {
		return nil, err
	}
	cmd.Dir = opts.WorkDir
	cmd.Env = append(cmd.Env, "NO_COLOR=1", "FORCE_COLOR=0")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderrPipe.Close()
		return nil, fmt.Errorf("failed to start %s: %w", opts.binary(), err)
	}

	p := &Process{
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		stdout:     stdout,
		stderrPipe: stderrPipe,
		events:     make(chan StreamEvent, 100),
		errors:     make(chan error, 10),
		stderrOut:  make(chan string, 100),
		done:       make(chan struct{}),
		running:    true,
	}

	go p.readLoop()
	go p.stderrLoop()
	go p.waitLoop()

	return p, nil
}

// Events returns a channel of parsed events from the process. Closed when
// stdout is exhausted.
func (p *Process) Events() <-chan StreamEvent {
	return p.events
}

// Errors returns a channel of I/O errors from the process.
func (p *Process) Errors() <-chan error {
	return p.errors
}

// Stderr returns a channel of stderr lines from the process.
func (p *Process) Stderr() <-chan string {
	return p.stderrOut
}

// Done returns a channel that closes when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// PID returns the process ID.
func (p *Process) PID() int {
	return p.pid
}

// ExitCode returns the exit code (only valid after Done channel closes).
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// IsRunning returns true if the process is still running.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Kill terminates the process. Best effort: the exit is observed by the
// wait loop, not assumed here.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}

// Interrupt sends an interrupt signal to the process.
func (p *Process) Interrupt() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Signal(interruptSignal())
	}
	return nil
}

func (p *Process) readLoop() {
	defer close(p.events)

	parser := NewParser()
	buf := make([]byte, 32*1024)

	emit := func(events []StreamEvent) bool {
		for _, ev := range events {
			select {
			case p.events <- ev:
			case <-p.done:
				return false
			}
		}
		return true
	}

	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			if !emit(parser.Feed(buf[:n])) {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				select {
				case p.errors <- err:
				default:
				}
			}
			emit(parser.Flush())
			return
		}
	}
}

func (p *Process) stderrLoop() {
	scanner := bufio.NewScanner(p.stderrPipe)
	for scanner.Scan() {
		line := scanner.Text()
		select {
		case p.stderrOut <- line:
		case <-p.done:
			return
		default:
			// Drop if channel full
		}
	}
}

func (p *Process) waitLoop() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.running = false
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	p.mu.Unlock()

	if err != nil {
		select {
		case p.errors <- err:
		default:
		}
	}

	close(p.done)
}
