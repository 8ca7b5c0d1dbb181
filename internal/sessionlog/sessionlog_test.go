package sessionlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTranscript drops a transcript file where a Reader rooted at root will
// find it for the given project and session.
func writeTranscript(t *testing.T, root, projectPath, sessionID, content string) {
	t.Helper()
	dir := filepath.Join(root, ProjectDirName(projectPath))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create transcript dir: %v", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write transcript: %v", err)
	}
}

func TestProjectDirName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/a/b", "-a-b"},
		{"/home/user/projects/demo", "-home-user-projects-demo"},
		{"/", "-"},
	}
	for _, tt := range tests {
		if got := ProjectDirName(tt.path); got != tt.want {
			t.Errorf("ProjectDirName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadMissingFileReturnsEmpty(t *testing.T) {
	r := NewReader(t.TempDir())

	entries := r.Read("/no/such/project", "missing-session")
	if len(entries) != 0 {
		t.Fatalf("expected empty sequence for missing file, got %d entries", len(entries))
	}
}

func TestReadSkipsMalformedLines(t *testing.T) {
	root := t.TempDir()
	transcript := `{"type":"user","message":{"role":"user","content":"hello"}}
not json at all
{"broken":
{"type":"assistant","message":{"role":"assistant","content":"hi"}}
`
	writeTranscript(t, root, "/a/b", "sess-1", transcript)

	r := NewReader(root)
	entries := r.Read("/a/b", "sess-1")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message.Role != "user" || entries[1].Message.Role != "assistant" {
		t.Errorf("unexpected roles: %s, %s", entries[0].Message.Role, entries[1].Message.Role)
	}
}

func TestUserQuestionsTranscript(t *testing.T) {
	root := t.TempDir()
	transcript := `{"type":"user","message":{"role":"user","content":"Caveat: the messages below were generated by the user"}}
{"type":"user","message":{"role":"user","content":"Fix bug X"}}
{"type":"assistant","message":{"role":"assistant","content":"Working on it."}}
{"type":"user","message":{"role":"user","content":"[{\"type\":\"tool_result\",\"tool_use_id\":\"tu_1\",\"content\":\"ok\"}]"}}
`
	writeTranscript(t, root, "/a/b", "sess-1", transcript)

	r := NewReader(root)
	entries := r.Read("/a/b", "sess-1")

	for _, policy := range []Policy{PolicyStrict, PolicyInclusive} {
		questions := UserQuestions(entries, policy)
		if len(questions) != 1 {
			t.Fatalf("policy %s: expected exactly 1 question, got %d", policy, len(questions))
		}
		content, _ := questions[0].ContentString()
		if content != "Fix bug X" {
			t.Errorf("policy %s: expected %q, got %q", policy, "Fix bug X", content)
		}
	}
}

func TestUserQuestionsFixedExclusions(t *testing.T) {
	entries := []Entry{
		mustEntry(t, "user", `"Caveat: tool output below"`),
		mustEntry(t, "user", `"<command-name>/clear</command-name>"`),
		mustEntry(t, "user", `"ran <command-message>status</command-message> earlier"`),
		mustEntry(t, "user", `"<local-command-stdout></local-command-stdout>"`),
		mustEntry(t, "assistant", `"not a user entry"`),
		mustEntry(t, "user", `"a real question?"`),
	}

	questions := UserQuestions(entries, PolicyStrict)
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if content, _ := questions[0].ContentString(); content != "a real question?" {
		t.Errorf("expected the real question, got %q", content)
	}
}

func TestUserQuestionsPolicyVariants(t *testing.T) {
	structured := mustEntry(t, "user", `[{"type":"text","text":"structured question"}]`)
	broadArray := mustEntry(t, "user", `"[{\"anything\":\"at all\"}]"`)
	toolResult := mustEntry(t, "user", `"[{\"type\":\"tool_result\",\"tool_use_id\":\"tu_9\"}]"`)

	t.Run("Strict", func(t *testing.T) {
		questions := UserQuestions([]Entry{structured, broadArray, toolResult}, PolicyStrict)
		if len(questions) != 0 {
			t.Fatalf("strict policy should exclude all three, got %d", len(questions))
		}
	})

	t.Run("Inclusive", func(t *testing.T) {
		questions := UserQuestions([]Entry{structured, broadArray, toolResult}, PolicyInclusive)
		// Structured content and the unmarked array survive; the marked
		// tool result does not.
		if len(questions) != 2 {
			t.Fatalf("inclusive policy should keep 2 entries, got %d", len(questions))
		}
	})
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("strict"); err != nil || p != PolicyStrict {
		t.Errorf("ParsePolicy(strict) = %v, %v", p, err)
	}
	if p, err := ParsePolicy("inclusive"); err != nil || p != PolicyInclusive {
		t.Errorf("ParsePolicy(inclusive) = %v, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != PolicyStrict {
		t.Errorf("ParsePolicy empty should default to strict, got %v, %v", p, err)
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Error("ParsePolicy should reject unknown values")
	}
}

func TestCachedReader(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "/a/b", "sess-1", `{"type":"user","message":{"role":"user","content":"first"}}
`)

	c := NewCachedReader(NewReader(root), time.Minute)

	entries := c.Read("/a/b", "sess-1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	// A rewrite behind the cache's back is not observed until invalidation.
	writeTranscript(t, root, "/a/b", "sess-1", `{"type":"user","message":{"role":"user","content":"first"}}
{"type":"user","message":{"role":"user","content":"second"}}
`)
	if entries := c.Read("/a/b", "sess-1"); len(entries) != 1 {
		t.Fatalf("expected cached read of 1 entry, got %d", len(entries))
	}

	c.Invalidate("/a/b", "sess-1")
	if entries := c.Read("/a/b", "sess-1"); len(entries) != 2 {
		t.Fatalf("expected 2 entries after invalidation, got %d", len(entries))
	}
}

func TestWatcherFiresOnAppend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sess-1.jsonl")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("failed to seed transcript: %v", err)
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, 20*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("failed to open transcript for append: %v", err)
	}
	if _, err := f.WriteString(`{"type":"user"}` + "\n"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	f.Close()

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not report the appended entry")
	}
}

func mustEntry(t *testing.T, role, rawContent string) Entry {
	t.Helper()
	return Entry{
		Type: "user",
		Message: &Message{
			Role:    role,
			Content: []byte(rawContent),
		},
	}
}
