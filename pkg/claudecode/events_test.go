package claudecode

import "testing"

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		name string
		line string
		kind EventKind
	}{
		{"SystemInit", `{"type":"system","subtype":"init","session_id":"s1"}`, EventSystemInit},
		{"User", `{"type":"user","message":{"role":"user","content":"hi"}}`, EventUser},
		{"Assistant", `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"yo"}]}}`, EventAssistant},
		{"Result", `{"type":"result","subtype":"success","result":"done"}`, EventResult},
		{"Error", `{"type":"error","error":"boom"}`, EventError},
		{"UnknownShape", `{"type":"something_new","payload":42}`, EventUnknown},
		{"NoType", `{"foo":"bar"}`, EventUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := Classify([]byte(tc.line))
			if !ok {
				t.Fatal("expected valid JSON to classify")
			}
			if ev.Kind != tc.kind {
				t.Errorf("expected kind %s, got %s", tc.kind, ev.Kind)
			}
			if string(ev.Raw) != tc.line {
				t.Errorf("raw payload not preserved")
			}
		})
	}
}

func TestClassifyInvalidJSON(t *testing.T) {
	if _, ok := Classify([]byte("{truncated")); ok {
		t.Error("expected invalid JSON to be rejected")
	}
}

func TestTextConcatenatesOnlyTextBlocks(t *testing.T) {
	line := `{"type":"assistant","message":{"role":"assistant","content":[` +
		`{"type":"text","text":"first "},` +
		`{"type":"thinking","thinking":"hmm"},` +
		`{"type":"tool_use","id":"tu1","name":"Bash","input":{"command":"ls"}},` +
		`{"type":"text","text":"second"}]}}`

	ev, ok := Classify([]byte(line))
	if !ok {
		t.Fatal("classify failed")
	}
	if got := ev.Text(); got != "first second" {
		t.Errorf("expected 'first second', got '%s'", got)
	}
}

func TestToolUses(t *testing.T) {
	line := `{"type":"assistant","message":{"role":"assistant","content":[` +
		`{"type":"tool_use","id":"tu1","name":"Read","input":{"file_path":"/a"}},` +
		`{"type":"text","text":"ignored"},` +
		`{"type":"tool_use","id":"tu2","name":"Bash","input":{"command":"ls"}}]}}`

	ev, _ := Classify([]byte(line))
	uses := ev.ToolUses()
	if len(uses) != 2 {
		t.Fatalf("expected 2 tool uses, got %d", len(uses))
	}
	if uses[0].ID != "tu1" || uses[0].Name != "Read" {
		t.Errorf("unexpected first tool use: %+v", uses[0])
	}
	if uses[1].ID != "tu2" || uses[1].Name != "Bash" {
		t.Errorf("unexpected second tool use: %+v", uses[1])
	}
}

func TestStringUserContent(t *testing.T) {
	ev, _ := Classify([]byte(`{"type":"user","message":{"role":"user","content":"plain question"}}`))
	if got := ev.Text(); got != "plain question" {
		t.Errorf("expected string content to become a text block, got '%s'", got)
	}
}

func TestInitSessionID(t *testing.T) {
	ev, _ := Classify([]byte(`{"type":"system","subtype":"init","session_id":"sess-42"}`))
	if got := ev.InitSessionID(); got != "sess-42" {
		t.Errorf("expected 'sess-42', got '%s'", got)
	}

	other, _ := Classify([]byte(`{"type":"result","result":"x","session_id":"sess-42"}`))
	if got := other.InitSessionID(); got != "" {
		t.Errorf("expected empty for non-init event, got '%s'", got)
	}
}

func TestResultUsage(t *testing.T) {
	line := `{"type":"result","subtype":"success","result":"all done","usage":` +
		`{"input_tokens":100,"output_tokens":20,"cache_read_input_tokens":50,"cache_creation_input_tokens":5}}`

	ev, _ := Classify([]byte(line))
	if !ev.IsComplete() {
		t.Error("result event should be complete")
	}
	if ev.Failed() {
		t.Error("success result should not be failed")
	}
	if ev.Usage == nil {
		t.Fatal("expected usage to be decoded")
	}
	if ev.Usage.InputTokens != 100 || ev.Usage.OutputTokens != 20 {
		t.Errorf("unexpected token counts: %+v", ev.Usage)
	}
	if ev.Usage.CacheReadInputTokens != 50 || ev.Usage.CacheCreationInputTokens != 5 {
		t.Errorf("unexpected cache counts: %+v", ev.Usage)
	}
}

func TestErrorResult(t *testing.T) {
	ev, _ := Classify([]byte(`{"type":"result","subtype":"error","result":"budget exceeded"}`))
	if !ev.Failed() {
		t.Error("error-subtype result should be failed")
	}

	ev2, _ := Classify([]byte(`{"type":"error","error":"spawn trouble"}`))
	if !ev2.Failed() {
		t.Error("error event should be failed")
	}
	if ev2.Message != "spawn trouble" {
		t.Errorf("expected message 'spawn trouble', got '%s'", ev2.Message)
	}
}
