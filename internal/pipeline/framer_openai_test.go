package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kiro-gateway/gateway/internal/converter"
)

func decodeSSEChunks(t *testing.T, raw []byte) []converter.OpenAIStreamChunk {
	t.Helper()
	var chunks []converter.OpenAIStreamChunk
	for _, line := range bytes.Split(raw, []byte("\n")) {
		s := strings.TrimPrefix(string(line), "data: ")
		if s == "" || s == "[DONE]" || s == string(line) {
			continue
		}
		var c converter.OpenAIStreamChunk
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			t.Fatalf("failed to decode chunk %q: %v", s, err)
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func TestOpenAIFramerBatchesToolCallsIntoSingleFinishChunk(t *testing.T) {
	f := newOpenAIFramer()
	f.Start("gpt-test", 0)

	if out := f.ToolCall(converter.CanonicalToolCall{ID: "call_1", Name: "lookup", Arguments: `{"x":1}`}); out != nil {
		t.Error("expected ToolCall to buffer rather than emit immediately")
	}
	if out := f.ToolCall(converter.CanonicalToolCall{ID: "call_2", Name: "fetch", Arguments: `{"y":2}`}); out != nil {
		t.Error("expected second ToolCall to buffer rather than emit immediately")
	}

	out := f.Finish(converter.StopToolUse, converter.CanonicalUsage{InputTokens: 100, OutputTokens: 20})
	chunks := decodeSSEChunks(t, out)

	var toolCallChunks int
	var sawUsage bool
	for _, c := range chunks {
		if len(c.Choices) > 0 && len(c.Choices[0].Delta.ToolCalls) > 0 {
			toolCallChunks++
			if len(c.Choices[0].Delta.ToolCalls) != 2 {
				t.Errorf("tool_calls chunk carries %d calls, want 2", len(c.Choices[0].Delta.ToolCalls))
			}
		}
		if c.Usage != nil {
			sawUsage = true
		}
	}
	if toolCallChunks != 1 {
		t.Errorf("saw %d tool_calls chunks, want exactly 1 after the stream ends", toolCallChunks)
	}
	if !sawUsage {
		t.Error("expected the final chunk to carry usage")
	}
}

func TestOpenAIFramerFinishSetsUsageTotals(t *testing.T) {
	f := newOpenAIFramer()
	f.Start("gpt-test", 0)

	out := f.Finish(converter.StopEndTurn, converter.CanonicalUsage{InputTokens: 1000, OutputTokens: 50})
	chunks := decodeSSEChunks(t, out)

	var usage *converter.OpenAIUsage
	for _, c := range chunks {
		if c.Usage != nil {
			usage = c.Usage
		}
	}
	if usage == nil {
		t.Fatal("expected a chunk with usage set")
	}
	if usage.PromptTokens != 1000 || usage.CompletionTokens != 50 || usage.TotalTokens != 1050 {
		t.Errorf("usage = %+v, want prompt=1000 completion=50 total=1050", usage)
	}
}
