package eventstream

import "testing"

// TestParserAggregatesFragmentedToolInput covers the scenario where a tool's
// input arrives as a run of raw string fragments that each split a JSON
// value mid-token: "", {"a":, 1,"b":, 2}. Concatenated, they form a valid
// {"a":1,"b":2}; parsed individually, none but the first is valid JSON.
func TestParserAggregatesFragmentedToolInput(t *testing.T) {
	p := NewParser()

	var events []Event
	events = append(events, p.Feed([]byte(`{"name":"lookup","toolUseId":"t1"}`))...)
	events = append(events, p.Feed([]byte(`{"input":""}`))...)
	events = append(events, p.Feed([]byte(`{"input":"{\"a\":"}`))...)
	events = append(events, p.Feed([]byte(`{"input":"1,\"b\":"}`))...)
	events = append(events, p.Feed([]byte(`{"input":"2}"}`))...)
	events = append(events, p.Feed([]byte(`{"stop":true}`))...)

	var call *Event
	for i := range events {
		if events[i].Kind == EventToolCall {
			call = &events[i]
		}
	}
	if call == nil {
		t.Fatal("expected a finalized tool call event")
	}
	if call.ToolCall.Arguments != `{"a":1,"b":2}` {
		t.Errorf("arguments = %q, want {\"a\":1,\"b\":2}", call.ToolCall.Arguments)
	}
}

func TestParserCloseFinalizesPendingToolCall(t *testing.T) {
	p := NewParser()

	var events []Event
	events = append(events, p.Feed([]byte(`{"name":"lookup"}`))...)
	events = append(events, p.Feed([]byte(`{"input":"{\"a\":1}"}`))...)
	events = append(events, p.Close()...)

	var call *Event
	for i := range events {
		if events[i].Kind == EventToolCall {
			call = &events[i]
		}
	}
	if call == nil {
		t.Fatal("expected Close to finalize the pending tool call")
	}
	if call.ToolCall.Arguments != `{"a":1}` {
		t.Errorf("arguments = %q, want {\"a\":1}", call.ToolCall.Arguments)
	}
}

func TestParserEmitsFollowupAndUsageEvents(t *testing.T) {
	p := NewParser()

	events := p.Feed([]byte(`{"followupPrompt":"anything else?"}{"contextUsagePercentage":0.5}`))

	var sawFollowup, sawContextUsage bool
	for _, e := range events {
		switch e.Kind {
		case EventFollowup:
			sawFollowup = true
			if e.Text != "anything else?" {
				t.Errorf("followup text = %q", e.Text)
			}
		case EventContextUsage:
			sawContextUsage = true
			if e.ContextUsagePercentage != 0.5 {
				t.Errorf("contextUsagePercentage = %v", e.ContextUsagePercentage)
			}
		}
	}
	if !sawFollowup {
		t.Error("expected a followup event")
	}
	if !sawContextUsage {
		t.Error("expected a contextUsagePercentage event")
	}
}
