// Package supervisor manages Claude Code execution lifecycle: spawn, track
// by session id, kill, cleanup.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mineclover/claude-code-spec-sub003/internal/config"
	"github.com/mineclover/claude-code-spec-sub003/internal/logging"
	"github.com/mineclover/claude-code-spec-sub003/internal/store"
	"github.com/mineclover/claude-code-spec-sub003/pkg/claudecode"
)

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Execution is a caller-visible snapshot of one CLI run. Events are copied
// on read; mutating a snapshot never affects the tracked record.
type Execution struct {
	SessionID   string
	ProjectPath string
	Query       string
	PID         int
	Status      Status
	ExitCode    int
	Events      []claudecode.StreamEvent
	StartedAt   time.Time
	EndedAt     time.Time
}

// Options carries per-execution overrides of the configured defaults.
type Options struct {
	Model          string
	PermissionMode string
	AllowedTools   []string
	SystemPrompt   string
}

// NotificationType labels supervisor lifecycle notifications.
type NotificationType string

const (
	NotifyStarted   NotificationType = "started"
	NotifyStream    NotificationType = "stream"
	NotifyError     NotificationType = "error"
	NotifyCompleted NotificationType = "completed"
)

// Notification is delivered to subscribed observers. For a single execution
// notifications arrive in strict event order; ordering across executions is
// unspecified.
type Notification struct {
	Type      NotificationType
	SessionID string
	Status    Status
	Event     *claudecode.StreamEvent // set for NotifyStream
	Err       error                   // set for NotifyError
}

// Observer receives lifecycle notifications. Callbacks run on the
// execution's event goroutine and should return quickly.
type Observer func(Notification)

// execution is the tracked record; info is guarded by the supervisor lock.
type execution struct {
	info      Execution
	proc      *claudecode.Process
	cancel    context.CancelFunc
	sawResult bool
	resultErr bool
}

// Supervisor owns the session-id to execution mapping and serializes all
// mutations to it.
type Supervisor struct {
	cfg   *config.Config
	store *store.Store

	mu        sync.Mutex
	execs     map[string]*execution
	observers map[int]Observer
	nextObsID int

	wg sync.WaitGroup
}

// New creates a supervisor. The store may be nil when persistence is not
// wanted (tests, library use).
func New(cfg *config.Config, st *store.Store) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		store:     st,
		execs:     make(map[string]*execution),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Supervisor) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Start spawns a new execution for the given project and query. A blank
// sessionID gets a generated one. Fails with ErrMaxConcurrent at the
// configured ceiling and with ProcessStartError when the CLI cannot be
// spawned; neither failure leaves a tracked record behind.
func (s *Supervisor) Start(ctx context.Context, sessionID, projectPath, query string, opts Options) (Execution, error) {
	if projectPath == "" {
		return Execution{}, &ValidationError{Field: "projectPath", Reason: "must not be empty"}
	}
	if query == "" {
		return Execution{}, &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Admission and registration are one atomic step so a concurrent Start
	// cannot slip past the ceiling.
	s.mu.Lock()
	if _, exists := s.execs[sessionID]; exists {
		s.mu.Unlock()
		return Execution{}, ErrSessionExists
	}

	active := 0
	for _, e := range s.execs {
		if !e.info.Status.IsTerminal() {
			active++
		}
	}
	if active >= s.cfg.Executions.MaxConcurrent {
		s.mu.Unlock()
		return Execution{}, ErrMaxConcurrent
	}

	rec := &execution{
		info: Execution{
			SessionID:   sessionID,
			ProjectPath: projectPath,
			Query:       query,
			Status:      StatusPending,
			StartedAt:   time.Now(),
		},
	}
	s.execs[sessionID] = rec
	s.mu.Unlock()

	procCtx, cancel := s.executionContext(ctx)

	spawnOpts := s.buildSpawnOptions(sessionID, projectPath, query, opts)
	logging.Debug("spawning execution", "session_id", sessionID, "command", spawnOpts.CommandString())

	proc, err := claudecode.Spawn(procCtx, spawnOpts)
	if err != nil {
		cancel()
		s.mu.Lock()
		delete(s.execs, sessionID)
		s.mu.Unlock()
		logging.Error("failed to spawn execution",
			"session_id", sessionID,
			"project", projectPath,
			"error", err)
		return Execution{}, &ProcessStartError{SessionID: sessionID, Err: err}
	}

	s.mu.Lock()
	rec.proc = proc
	rec.cancel = cancel
	rec.info.PID = proc.PID()
	rec.info.Status = StatusRunning
	snapshot := rec.snapshot()
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.CreateExecution(sessionID, projectPath, query, string(StatusRunning)); err != nil {
			logging.Error("failed to persist execution", "session_id", sessionID, "error", err)
		}
		s.store.UpdateExecutionPID(sessionID, proc.PID())
	}

	s.notify(Notification{Type: NotifyStarted, SessionID: sessionID, Status: StatusRunning})

	s.wg.Add(1)
	go s.handleEvents(rec)

	return snapshot, nil
}

// Kill sends a termination signal to an execution's process. Best effort:
// the status flips to failed only when the exit notification is observed.
// Killing an already-finished but still-tracked execution is a no-op.
func (s *Supervisor) Kill(sessionID string) error {
	s.mu.Lock()
	rec, ok := s.execs[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrExecutionNotFound
	}
	proc := rec.proc
	terminal := rec.info.Status.IsTerminal()
	cancel := rec.cancel
	s.mu.Unlock()

	if terminal || proc == nil {
		return nil
	}

	if err := proc.Kill(); err != nil {
		return &ProcessKillError{SessionID: sessionID, Err: err}
	}
	if cancel != nil {
		cancel()
	}

	logging.Info("kill signal sent", "session_id", sessionID)
	return nil
}

// Cleanup removes a terminal-state execution's tracking record.
func (s *Supervisor) Cleanup(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.execs[sessionID]
	if !ok {
		return ErrExecutionNotFound
	}
	if !rec.info.Status.IsTerminal() {
		return ErrExecutionRunning
	}

	delete(s.execs, sessionID)
	return nil
}

// Get returns a snapshot of a tracked execution.
func (s *Supervisor) Get(sessionID string) (Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.execs[sessionID]
	if !ok {
		return Execution{}, ErrExecutionNotFound
	}
	return rec.snapshot(), nil
}

// List returns snapshots of all tracked executions.
func (s *Supervisor) List() []Execution {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Execution, 0, len(s.execs))
	for _, rec := range s.execs {
		out = append(out, rec.snapshot())
	}
	return out
}

// Shutdown kills all running executions and waits for their event pumps to
// drain.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	var procs []*claudecode.Process
	for _, rec := range s.execs {
		if rec.proc != nil && !rec.info.Status.IsTerminal() {
			procs = append(procs, rec.proc)
		}
	}
	s.mu.Unlock()

	for _, p := range procs {
		p.Kill()
	}
	s.wg.Wait()
}

func (s *Supervisor) executionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Executions.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Executions.Timeout)
	}
	return context.WithCancel(ctx)
}

func (s *Supervisor) buildSpawnOptions(sessionID, projectPath, query string, opts Options) *claudecode.SpawnOptions {
	spawn := &claudecode.SpawnOptions{
		SessionID:      sessionID,
		WorkDir:        projectPath,
		Query:          query,
		Binary:         s.cfg.Claude.Binary,
		Model:          opts.Model,
		PermissionMode: opts.PermissionMode,
		AllowedTools:   opts.AllowedTools,
		SystemPrompt:   opts.SystemPrompt,
	}

	if spawn.Model == "" {
		spawn.Model = s.cfg.Claude.Model
	}
	if spawn.PermissionMode == "" {
		spawn.PermissionMode = s.cfg.Claude.PermissionMode
	}
	return spawn
}

// handleEvents pumps one execution's channels until the process exits. It is
// the only goroutine appending to the execution's event sequence, so
// observers see strict arrival order.
func (s *Supervisor) handleEvents(rec *execution) {
	defer s.wg.Done()
	defer func() {
		if rec.cancel != nil {
			rec.cancel()
		}
	}()

	sessionID := rec.info.SessionID

	for {
		select {
		case ev, ok := <-rec.proc.Events():
			if !ok {
				// Drain exit via Done below.
				<-rec.proc.Done()
				s.handleExit(rec)
				return
			}
			s.handleStreamEvent(rec, ev)

		case err, ok := <-rec.proc.Errors():
			if !ok {
				continue
			}
			logging.Error("execution process error", "session_id", sessionID, "error", err)
			s.notify(Notification{Type: NotifyError, SessionID: sessionID, Err: err})

		case <-rec.proc.Done():
			// Drain any events emitted before the close.
			for ev := range rec.proc.Events() {
				s.handleStreamEvent(rec, ev)
			}
			s.handleExit(rec)
			return
		}
	}
}

func (s *Supervisor) handleStreamEvent(rec *execution, ev claudecode.StreamEvent) {
	sessionID := rec.info.SessionID

	s.mu.Lock()
	rec.info.Events = append(rec.info.Events, ev)
	if ev.Kind == claudecode.EventResult {
		rec.sawResult = true
		rec.resultErr = ev.IsError
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.LogEvent(sessionID, string(ev.Kind), string(ev.Raw)); err != nil {
			logging.Error("failed to persist event", "session_id", sessionID, "error", err)
		}
	}

	evCopy := ev
	s.notify(Notification{Type: NotifyStream, SessionID: sessionID, Status: StatusRunning, Event: &evCopy})
}

func (s *Supervisor) handleExit(rec *execution) {
	sessionID := rec.info.SessionID
	exitCode := rec.proc.ExitCode()

	s.mu.Lock()
	final := StatusCompleted
	if exitCode != 0 || rec.resultErr {
		final = StatusFailed
	}
	rec.info.Status = final
	rec.info.ExitCode = exitCode
	rec.info.EndedAt = time.Now()
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.FinishExecution(sessionID, string(final), exitCode); err != nil {
			logging.Error("failed to persist exit", "session_id", sessionID, "error", err)
		}
	}

	if final == StatusCompleted {
		logging.Info("execution completed", "session_id", sessionID)
	} else {
		logging.Warn("execution failed", "session_id", sessionID, "exit_code", exitCode)
	}

	s.notify(Notification{Type: NotifyCompleted, SessionID: sessionID, Status: final})
}

func (s *Supervisor) notify(n Notification) {
	s.mu.Lock()
	obs := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	s.mu.Unlock()

	for _, fn := range obs {
		fn(n)
	}
}

// snapshot copies the execution info; callers hold the supervisor lock.
func (e *execution) snapshot() Execution {
	out := e.info
	out.Events = append([]claudecode.StreamEvent(nil), e.info.Events...)
	return out
}
