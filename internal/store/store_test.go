package store

import (
	"path/filepath"
	"testing"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestExecutionLifecycle(t *testing.T) {
	st := setupStore(t)

	if err := st.CreateExecution("sess-1", "/home/user/project", "fix the bug", "pending"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := st.UpdateExecutionPID("sess-1", 4242); err != nil {
		t.Fatalf("update pid failed: %v", err)
	}
	if err := st.UpdateExecutionStatus("sess-1", "running"); err != nil {
		t.Fatalf("update status failed: %v", err)
	}

	exec, err := st.GetExecution("sess-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if exec == nil {
		t.Fatal("expected execution to exist")
	}
	if exec.Status != "running" {
		t.Errorf("expected status 'running', got '%s'", exec.Status)
	}
	if exec.PID == nil || *exec.PID != 4242 {
		t.Errorf("expected pid 4242, got %v", exec.PID)
	}
	if exec.EndedAt != nil {
		t.Error("ended_at should be unset while running")
	}

	if err := st.FinishExecution("sess-1", "completed", 0); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	exec, _ = st.GetExecution("sess-1")
	if exec.Status != "completed" {
		t.Errorf("expected status 'completed', got '%s'", exec.Status)
	}
	if exec.ExitCode == nil || *exec.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %v", exec.ExitCode)
	}
	if exec.EndedAt == nil {
		t.Error("ended_at should be set after finish")
	}
}

func TestGetExecutionMissing(t *testing.T) {
	st := setupStore(t)

	exec, err := st.GetExecution("nope")
	if err != nil {
		t.Fatalf("get of missing execution should not error: %v", err)
	}
	if exec != nil {
		t.Error("expected nil for missing execution")
	}
}

func TestListExecutionsNewestFirst(t *testing.T) {
	st := setupStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := st.CreateExecution(id, "/p", "q", "pending"); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}

	execs, err := st.ListExecutions(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(execs) != 2 {
		t.Errorf("expected limit of 2, got %d", len(execs))
	}

	all, _ := st.ListExecutions(0)
	if len(all) != 3 {
		t.Errorf("expected 3 executions, got %d", len(all))
	}
}

func TestEventHistoryOrder(t *testing.T) {
	st := setupStore(t)

	if err := st.CreateExecution("sess-1", "/p", "q", "running"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	payloads := []string{`{"type":"system"}`, `{"type":"assistant"}`, `{"type":"result"}`}
	kinds := []string{"system-init", "assistant", "result"}
	for i := range payloads {
		if err := st.LogEvent("sess-1", kinds[i], payloads[i]); err != nil {
			t.Fatalf("log event failed: %v", err)
		}
	}

	events, err := st.ListEvents("sess-1")
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Kind != kinds[i] {
			t.Errorf("event %d: expected kind '%s', got '%s'", i, kinds[i], ev.Kind)
		}
	}
}
