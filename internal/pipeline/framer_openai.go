package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/converter"
)

// openaiFramer renders `data: <chunk>\n\n` frames terminated by `[DONE]`.
// Text deltas are framed as they arrive; tool calls are buffered and framed
// as a single chunk once the stream ends (§4.6: "emit all collected
// tool-calls as a single chunk ... after the stream ends").
type openaiFramer struct {
	id            string
	created       int64
	model         string
	sentRoleChunk bool
	toolCalls     []converter.CanonicalToolCall
}

func newOpenAIFramer() *openaiFramer {
	return &openaiFramer{id: "chatcmpl-" + uuid.NewString(), created: time.Now().Unix()}
}

func (f *openaiFramer) Start(model string, estimatedInputTokens int) []byte {
	f.model = model
	return nil
}

func (f *openaiFramer) chunk(delta converter.OpenAIMessage, finishReason string, usage *converter.OpenAIUsage) []byte {
	choice := converter.OpenAIChoice{Index: 0, Delta: &delta}
	if finishReason != "" {
		choice.FinishReason = finishReason
	}
	chunk := converter.OpenAIStreamChunk{
		ID:      f.id,
		Object:  "chat.completion.chunk",
		Created: f.created,
		Model:   f.model,
		Choices: []converter.OpenAIChoice{choice},
		Usage:   usage,
	}
	return converter.FormatSSE("", chunk)
}

func (f *openaiFramer) Text(delta string) []byte {
	msg := converter.OpenAIMessage{Content: delta}
	if !f.sentRoleChunk {
		msg.Role = "assistant"
		f.sentRoleChunk = true
	}
	return f.chunk(msg, "", nil)
}

// ToolCall buffers the tool call; it is framed only once the stream ends,
// alongside every other tool call collected during the turn.
func (f *openaiFramer) ToolCall(tc converter.CanonicalToolCall) []byte {
	f.toolCalls = append(f.toolCalls, tc)
	return nil
}

func (f *openaiFramer) Finish(stopReason converter.StopReason, usage converter.CanonicalUsage) []byte {
	var out []byte

	if len(f.toolCalls) > 0 {
		calls := make([]converter.OpenAIToolCall, len(f.toolCalls))
		for i, tc := range f.toolCalls {
			calls[i] = converter.OpenAIToolCall{
				Index: i,
				ID:    tc.ID,
				Type:  "function",
				Function: converter.OpenAIFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
		msg := converter.OpenAIMessage{ToolCalls: calls}
		if !f.sentRoleChunk {
			msg.Role = "assistant"
			f.sentRoleChunk = true
		}
		out = append(out, f.chunk(msg, "", nil)...)
	}

	openaiUsage := &converter.OpenAIUsage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
	}
	out = append(out, f.chunk(converter.OpenAIMessage{}, openAIFinishReasonOf(stopReason), openaiUsage)...)
	out = append(out, converter.FormatDone()...)
	return out
}

func openAIFinishReasonOf(s converter.StopReason) string {
	switch s {
	case converter.StopToolUse:
		return "tool_calls"
	case converter.StopMaxTokens:
		return "length"
	default:
		return "stop"
	}
}
