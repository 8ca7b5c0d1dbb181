// Package sessionlog reads persisted Claude Code session transcripts and
// filters them into meaningful user questions.
package sessionlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one parsed line of a session transcript.
type Entry struct {
	Type      string   `json:"type,omitempty"`
	UUID      string   `json:"uuid,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// Message is the optional message object of a transcript entry. Content is
// either a plain string or a structured block array; it is kept raw so the
// question filter can distinguish the two.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentString returns the message content when it is a plain string.
func (e *Entry) ContentString() (string, bool) {
	if e.Message == nil || len(e.Message.Content) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(e.Message.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// Reader resolves and reads session transcripts under a per-user root.
type Reader struct {
	root string
}

// NewReader creates a Reader. An empty root means ~/.claude/projects.
func NewReader(root string) *Reader {
	if root == "" {
		homeDir, _ := os.UserHomeDir()
		root = filepath.Join(homeDir, ".claude", "projects")
	}
	return &Reader{root: root}
}

// ProjectDirName flattens a project's absolute path into the transcript
// directory name: every path separator becomes a dash, so "/a/b" -> "-a-b".
func ProjectDirName(projectPath string) string {
	return strings.ReplaceAll(projectPath, "/", "-")
}

// Path returns the transcript location for a project and session.
func (r *Reader) Path(projectPath, sessionID string) string {
	return filepath.Join(r.root, ProjectDirName(projectPath), sessionID+".jsonl")
}

// Read parses a session's transcript. A missing or unreadable file yields an
// empty sequence, never an error; malformed lines are skipped individually.
// Partial or noisy transcripts are expected while a session is being written.
func (r *Reader) Read(projectPath, sessionID string) []Entry {
	f, err := os.Open(r.Path(projectPath, sessionID))
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Allow large payloads such as embedded tool results.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	var entries []Entry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	// A scan error mid-file still returns what was parsed so far.
	return entries
}
