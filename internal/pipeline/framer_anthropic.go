package pipeline

import (
	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/converter"
)

// anthropicFramer sequences message_start/content_block_*/message_delta/
// message_stop exactly as Anthropic's streaming API requires, driven through
// the same state-machine shape as the upstream's own SSE state manager.
type anthropicFramer struct {
	blockIndex int
	textOpen   bool
	toolOpen   bool
}

func newAnthropicFramer() *anthropicFramer { return &anthropicFramer{blockIndex: -1} }

func (f *anthropicFramer) Start(model string, estimatedInputTokens int) []byte {
	return converter.FormatSSE("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            "msg_" + uuid.NewString(),
			"type":          "message",
			"role":          "assistant",
			"content":       []interface{}{},
			"model":         model,
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         map[string]interface{}{"input_tokens": estimatedInputTokens, "output_tokens": 0},
		},
	})
}

func (f *anthropicFramer) Text(delta string) []byte {
	var out []byte
	if !f.textOpen {
		out = append(out, f.closeToolBlock()...)
		f.blockIndex++
		f.textOpen = true
		out = append(out, converter.FormatSSE("content_block_start", map[string]interface{}{
			"type":  "content_block_start",
			"index": f.blockIndex,
			"content_block": map[string]interface{}{
				"type": "text",
				"text": "",
			},
		})...)
	}
	out = append(out, converter.FormatSSE("content_block_delta", map[string]interface{}{
		"type":  "content_block_delta",
		"index": f.blockIndex,
		"delta": map[string]interface{}{"type": "text_delta", "text": delta},
	})...)
	return out
}

func (f *anthropicFramer) ToolCall(tc converter.CanonicalToolCall) []byte {
	var out []byte
	out = append(out, f.closeTextBlock()...)
	f.blockIndex++
	f.toolOpen = true

	out = append(out, converter.FormatSSE("content_block_start", map[string]interface{}{
		"type":  "content_block_start",
		"index": f.blockIndex,
		"content_block": map[string]interface{}{
			"type": "tool_use",
			"id":   tc.ID,
			"name": tc.Name,
		},
	})...)
	if tc.Arguments != "" && tc.Arguments != "{}" {
		out = append(out, converter.FormatSSE("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": f.blockIndex,
			"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": tc.Arguments},
		})...)
	}
	out = append(out, f.closeToolBlock()...)
	return out
}

func (f *anthropicFramer) closeTextBlock() []byte {
	if !f.textOpen {
		return nil
	}
	f.textOpen = false
	return converter.FormatSSE("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": f.blockIndex})
}

func (f *anthropicFramer) closeToolBlock() []byte {
	if !f.toolOpen {
		return nil
	}
	f.toolOpen = false
	return converter.FormatSSE("content_block_stop", map[string]interface{}{"type": "content_block_stop", "index": f.blockIndex})
}

func (f *anthropicFramer) Finish(stopReason converter.StopReason, usage converter.CanonicalUsage) []byte {
	var out []byte
	out = append(out, f.closeTextBlock()...)
	out = append(out, f.closeToolBlock()...)

	out = append(out, converter.FormatSSE("message_delta", map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{
			"stop_reason":   anthropicStopReason(stopReason),
			"stop_sequence": nil,
		},
		"usage": map[string]interface{}{
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
		},
	})...)
	out = append(out, converter.FormatSSE("message_stop", map[string]interface{}{"type": "message_stop"})...)
	return out
}

func anthropicStopReason(s converter.StopReason) string {
	switch s {
	case converter.StopToolUse:
		return "tool_use"
	case converter.StopMaxTokens:
		return "max_tokens"
	default:
		return "end_turn"
	}
}
