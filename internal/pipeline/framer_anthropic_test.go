package pipeline

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kiro-gateway/gateway/internal/converter"
)

func TestAnthropicFramerStartCarriesEstimatedInputTokens(t *testing.T) {
	f := newAnthropicFramer()
	out := f.Start("claude-test", 1234)

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(sseDataLine(t, out)), &body); err != nil {
		t.Fatalf("decode message_start: %v", err)
	}
	msg := body["message"].(map[string]interface{})
	usage := msg["usage"].(map[string]interface{})
	if int(usage["input_tokens"].(float64)) != 1234 {
		t.Errorf("input_tokens = %v, want 1234", usage["input_tokens"])
	}
}

func TestAnthropicFramerSkipsEmptyInputJSONDelta(t *testing.T) {
	f := newAnthropicFramer()
	out := f.ToolCall(converter.CanonicalToolCall{ID: "tool_1", Name: "noop", Arguments: "{}"})
	if strings.Contains(string(out), "input_json_delta") {
		t.Error("expected no input_json_delta for empty tool call arguments")
	}
}

func TestAnthropicFramerEmitsInputJSONDeltaWhenNonEmpty(t *testing.T) {
	f := newAnthropicFramer()
	out := f.ToolCall(converter.CanonicalToolCall{ID: "tool_1", Name: "lookup", Arguments: `{"q":"x"}`})
	if !strings.Contains(string(out), "input_json_delta") {
		t.Error("expected an input_json_delta for non-empty tool call arguments")
	}
}

func sseDataLine(t *testing.T, raw []byte) string {
	t.Helper()
	for _, line := range strings.Split(string(raw), "\n") {
		if s := strings.TrimPrefix(line, "data: "); s != line {
			return s
		}
	}
	t.Fatal("no data: line found in SSE frame")
	return ""
}
