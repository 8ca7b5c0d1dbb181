// Package claudecode provides a wrapper around the Claude Code CLI:
// spawning the process and parsing its stream-json output.
package claudecode

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind classifies one line of the CLI's stream-json output.
type EventKind string

const (
	EventSystemInit EventKind = "system-init"
	EventUser       EventKind = "user"
	EventAssistant  EventKind = "assistant"
	EventResult     EventKind = "result"
	EventError      EventKind = "error"

	// EventUnknown marks shapes the classifier does not recognize. They are
	// passed through with their raw payload so consumers can still inspect
	// them.
	EventUnknown EventKind = "unknown"
)

// ContentBlock is one item of a message.content array.
type ContentBlock struct {
	Type     string          `json:"type"` // "text", "tool_use", "thinking"
	Text     string          `json:"text,omitempty"`
	Thinking string          `json:"thinking,omitempty"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

// Usage carries the token counters from a result event.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// ToolUse is one tool invocation extracted from an assistant message.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// StreamEvent is one classified unit of the CLI's output. Immutable once
// parsed: extraction helpers copy, they never modify the event in place.
type StreamEvent struct {
	Kind      EventKind
	Subtype   string
	SessionID string

	// Content holds message blocks for user/assistant events.
	Content []ContentBlock

	// Result fields, set for result events.
	Result  string
	IsError bool
	Usage   *Usage

	// Message holds the description for error events.
	Message string

	Raw       json.RawMessage
	Timestamp time.Time
}

// envelope mirrors the top-level fields of one stream-json line.
type envelope struct {
	Type      string          `json:"type"`
	Subtype   string          `json:"subtype,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Message   *messageWrapper `json:"message,omitempty"`
	Result    string          `json:"result,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Error     string          `json:"error,omitempty"`
	Usage     *Usage          `json:"usage,omitempty"`
}

type messageWrapper struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Classify parses a raw JSON line into a StreamEvent. The second return is
// false when the line is not valid JSON; callers drop such lines.
func Classify(line []byte) (StreamEvent, bool) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return StreamEvent{}, false
	}

	ev := StreamEvent{
		Subtype:   env.Subtype,
		SessionID: env.SessionID,
		Raw:       append(json.RawMessage(nil), line...),
		Timestamp: time.Now(),
	}

	switch {
	case env.Type == "system" && env.Subtype == "init":
		ev.Kind = EventSystemInit
	case env.Type == "user":
		ev.Kind = EventUser
		ev.Content = decodeBlocks(env.Message)
	case env.Type == "assistant":
		ev.Kind = EventAssistant
		ev.Content = decodeBlocks(env.Message)
	case env.Type == "result":
		ev.Kind = EventResult
		ev.Result = env.Result
		ev.IsError = env.IsError || env.Subtype == "error"
		ev.Usage = env.Usage
	case env.Type == "error":
		ev.Kind = EventError
		ev.Message = env.Error
		if ev.Message == "" {
			ev.Message = env.Result
		}
	default:
		ev.Kind = EventUnknown
	}

	return ev, true
}

// decodeBlocks handles message.content which can be a block array or a plain
// string (older transcripts use the string form for user messages).
func decodeBlocks(msg *messageWrapper) []ContentBlock {
	if msg == nil || len(msg.Content) == 0 {
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err == nil {
		return blocks
	}

	var text string
	if err := json.Unmarshal(msg.Content, &text); err == nil {
		return []ContentBlock{{Type: "text", Text: text}}
	}

	return nil
}

// Text concatenates the text blocks of a message event in their original
// order, ignoring tool_use and thinking blocks.
func (e *StreamEvent) Text() string {
	var b strings.Builder
	for _, cb := range e.Content {
		if cb.Type == "text" {
			b.WriteString(cb.Text)
		}
	}
	return b.String()
}

// ToolUses returns the tool_use blocks of a message event as an ordered
// sequence.
func (e *StreamEvent) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, cb := range e.Content {
		if cb.Type == "tool_use" {
			uses = append(uses, ToolUse{ID: cb.ID, Name: cb.Name, Input: cb.Input})
		}
	}
	return uses
}

// InitSessionID returns the session id embedded in a system-init event, or ""
// for any other kind.
func (e *StreamEvent) InitSessionID() string {
	if e.Kind != EventSystemInit {
		return ""
	}
	return e.SessionID
}

// IsComplete reports whether this event ends the session.
func (e *StreamEvent) IsComplete() bool {
	return e.Kind == EventResult
}

// Failed reports whether this event represents a failure.
func (e *StreamEvent) Failed() bool {
	return e.Kind == EventError || (e.Kind == EventResult && e.IsError)
}
