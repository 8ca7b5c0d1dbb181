package supervisor

import (
	"errors"
	"fmt"
)

// Sentinel errors for execution lookup and admission.
var (
	// ErrMaxConcurrent is returned by Start when the concurrency ceiling is
	// reached. No execution is registered in that case.
	ErrMaxConcurrent = errors.New("max concurrent executions reached")

	// ErrExecutionNotFound is returned when no execution with the given
	// session id is tracked.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionRunning is returned by Cleanup for executions that have
	// not reached a terminal state yet.
	ErrExecutionRunning = errors.New("execution still running")

	// ErrSessionExists is returned by Start when the session id is already
	// tracked.
	ErrSessionExists = errors.New("session id already tracked")
)

// ProcessStartError wraps a failure to spawn the underlying CLI process.
type ProcessStartError struct {
	SessionID string
	Err       error
}

func (e *ProcessStartError) Error() string {
	return fmt.Sprintf("failed to start execution %s: %v", e.SessionID, e.Err)
}

func (e *ProcessStartError) Unwrap() error {
	return e.Err
}

// ProcessKillError wraps a failure to deliver the termination signal.
type ProcessKillError struct {
	SessionID string
	Err       error
}

func (e *ProcessKillError) Error() string {
	return fmt.Sprintf("failed to kill execution %s: %v", e.SessionID, e.Err)
}

func (e *ProcessKillError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed request before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
