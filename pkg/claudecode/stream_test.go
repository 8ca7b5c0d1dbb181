package claudecode

import (
	"strings"
	"testing"
)

const sampleStream = `{"type":"system","subtype":"init","session_id":"sess-1"}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"hello"}]}}
{"type":"result","subtype":"success","result":"done","usage":{"input_tokens":10,"output_tokens":5}}
`

// TestParserChunkBoundaryIndependence verifies the parser produces the same
// event sequence regardless of how chunk boundaries split the text.
func TestParserChunkBoundaryIndependence(t *testing.T) {
	parseAll := func(chunkSize int) []StreamEvent {
		p := NewParser()
		var events []StreamEvent
		data := []byte(sampleStream)
		for len(data) > 0 {
			n := chunkSize
			if n > len(data) {
				n = len(data)
			}
			events = append(events, p.Feed(data[:n])...)
			data = data[n:]
		}
		events = append(events, p.Flush()...)
		return events
	}

	whole := parseAll(len(sampleStream))
	if len(whole) != 3 {
		t.Fatalf("expected 3 events, got %d", len(whole))
	}

	for _, size := range []int{1, 2, 3, 7, 16, 64} {
		events := parseAll(size)
		if len(events) != len(whole) {
			t.Fatalf("chunk size %d: expected %d events, got %d", size, len(whole), len(events))
		}
		for i := range events {
			if events[i].Kind != whole[i].Kind {
				t.Errorf("chunk size %d: event %d kind %s, want %s", size, i, events[i].Kind, whole[i].Kind)
			}
			if string(events[i].Raw) != string(whole[i].Raw) {
				t.Errorf("chunk size %d: event %d raw payload differs", size, i)
			}
		}
	}
}

func TestParserDropsInvalidJSON(t *testing.T) {
	p := NewParser()
	input := `{"type":"system","subtype":"init","session_id":"s"}
not json at all
{"type":"result","result":"ok"}
`
	events := p.Feed([]byte(input))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventSystemInit {
		t.Errorf("expected system-init first, got %s", events[0].Kind)
	}
	if events[1].Kind != EventResult {
		t.Errorf("expected result second, got %s", events[1].Kind)
	}
	if p.Dropped() != 1 {
		t.Errorf("expected 1 dropped line, got %d", p.Dropped())
	}
}

func TestParserRetainsPartialLine(t *testing.T) {
	p := NewParser()

	if events := p.Feed([]byte(`{"type":"sys`)); len(events) != 0 {
		t.Fatalf("expected no events from partial line, got %d", len(events))
	}

	events := p.Feed([]byte("tem\",\"subtype\":\"init\",\"session_id\":\"abc\"}\n"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event after completing line, got %d", len(events))
	}
	if events[0].SessionID != "abc" {
		t.Errorf("expected session id 'abc', got '%s'", events[0].SessionID)
	}
}

func TestParserFlushUnterminatedLine(t *testing.T) {
	p := NewParser()
	p.Feed([]byte(`{"type":"result","result":"partial final"}`))

	events := p.Flush()
	if len(events) != 1 {
		t.Fatalf("expected 1 event from flush, got %d", len(events))
	}
	if events[0].Result != "partial final" {
		t.Errorf("expected result 'partial final', got '%s'", events[0].Result)
	}

	if events := p.Flush(); len(events) != 0 {
		t.Errorf("second flush should be empty, got %d events", len(events))
	}
}

func TestParserSkipsBlankAndCRLFLines(t *testing.T) {
	p := NewParser()
	input := "\r\n{\"type\":\"result\",\"result\":\"ok\"}\r\n\n"
	events := p.Feed([]byte(input))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if p.Dropped() != 0 {
		t.Errorf("blank lines should not count as dropped, got %d", p.Dropped())
	}
}

func TestParserLongLine(t *testing.T) {
	// Lines larger than the read buffer must survive reassembly.
	big := strings.Repeat("x", 256*1024)
	line := `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"` + big + `"}]}}` + "\n"

	p := NewParser()
	var events []StreamEvent
	data := []byte(line)
	for len(data) > 0 {
		n := 32 * 1024
		if n > len(data) {
			n = len(data)
		}
		events = append(events, p.Feed(data[:n])...)
		data = data[n:]
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Text(); got != big {
		t.Errorf("text length %d, want %d", len(got), len(big))
	}
}
