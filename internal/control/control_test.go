package control

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupServer(t *testing.T) (*Server, string) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "ccsd-test.sock")
	s := NewServer(socketPath)
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s, socketPath
}

func TestCallRoundTrip(t *testing.T) {
	s, socketPath := setupServer(t)

	s.Handle("echo", func(params json.RawMessage) (any, error) {
		var req map[string]string
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, err
		}
		return req, nil
	})

	client, err := NewClient(socketPath)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Call("echo", map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error response: %s", resp.Error)
	}

	data, _ := json.Marshal(resp.Data)
	var got map[string]string
	json.Unmarshal(data, &got)
	if got["hello"] != "world" {
		t.Errorf("expected echoed params, got %v", got)
	}
}

func TestCallUnknownMethod(t *testing.T) {
	_, socketPath := setupServer(t)

	client, err := NewClient(socketPath)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Call("no.such.method", nil)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error response for unknown method")
	}
}

func TestHandlerErrorPropagates(t *testing.T) {
	s, socketPath := setupServer(t)
	s.Handle("boom", func(json.RawMessage) (any, error) {
		return nil, errors.New("execution not found")
	})

	client, err := NewClient(socketPath)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.call("boom", nil, nil); err == nil {
		t.Fatal("expected handler error to propagate")
	} else if err.Error() != "execution not found" {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	s, socketPath := setupServer(t)

	client, err := NewClient(socketPath)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	// Give the accept loop a moment to register the connection.
	time.Sleep(50 * time.Millisecond)

	s.Broadcast(Event{
		Type:    EventExecutionStarted,
		Payload: map[string]string{"session_id": "sess-1"},
	})

	select {
	case event := <-client.Events():
		if event.Type != EventExecutionStarted {
			t.Errorf("expected %s, got %s", EventExecutionStarted, event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast event never arrived")
	}
}
