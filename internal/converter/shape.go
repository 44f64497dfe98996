package converter

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/jsonrepair"
)

// CanonicalResult is what the translation pipeline's collect mode hands to
// PC's response-shaping entry points: the finalized content of one
// non-streaming turn, dialect-agnostic (§4.3 "three response-shaping entry
// points").
type CanonicalResult struct {
	Model      string
	Text       string
	ToolCalls  []CanonicalToolCall
	StopReason StopReason
	Usage      CanonicalUsage
}

// ShapeOpenAIResponse builds the OpenAI-dialect non-streaming response body.
func ShapeOpenAIResponse(r CanonicalResult) OpenAIResponse {
	msg := &OpenAIMessage{Role: string(RoleAssistant)}
	if r.Text != "" {
		msg.Content = r.Text
	}
	for _, tc := range r.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, OpenAIToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: OpenAIFunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	return OpenAIResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   r.Model,
		Choices: []OpenAIChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: openAIFinishReason(r.StopReason),
		}},
		Usage: OpenAIUsage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}
}

func openAIFinishReason(s StopReason) string {
	switch s {
	case StopToolUse:
		return "tool_calls"
	case StopMaxTokens:
		return "length"
	default:
		return "stop"
	}
}

// ShapeClaudeResponse builds the Anthropic-dialect non-streaming response
// body.
func ShapeClaudeResponse(r CanonicalResult) ClaudeResponse {
	var content []ClaudeContentBlock
	if r.Text != "" {
		content = append(content, ClaudeContentBlock{Type: "text", Text: r.Text})
	}
	for _, tc := range r.ToolCalls {
		var input interface{}
		_ = jsonUnmarshalArguments(tc.Arguments, &input)
		content = append(content, ClaudeContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: input,
		})
	}

	return ClaudeResponse{
		ID:         "msg_" + uuid.NewString(),
		Type:       "message",
		Role:       string(RoleAssistant),
		Content:    content,
		Model:      r.Model,
		StopReason: claudeStopReason(r.StopReason),
		Usage: ClaudeUsage{
			InputTokens:              r.Usage.InputTokens,
			OutputTokens:             r.Usage.OutputTokens,
			CacheReadInputTokens:     r.Usage.CacheReadTokens,
			CacheCreationInputTokens: r.Usage.CacheWriteTokens,
		},
	}
}

func claudeStopReason(s StopReason) string {
	switch s {
	case StopToolUse:
		return "tool_use"
	case StopMaxTokens:
		return "max_tokens"
	default:
		return "end_turn"
	}
}

// ShapeGeminiResponse builds the Gemini-dialect non-streaming response body.
func ShapeGeminiResponse(r CanonicalResult) GeminiResponse {
	var parts []GeminiPart
	if r.Text != "" {
		parts = append(parts, GeminiPart{Text: r.Text})
	}
	for _, tc := range r.ToolCalls {
		var args map[string]interface{}
		_ = jsonUnmarshalArguments(tc.Arguments, &args)
		parts = append(parts, GeminiPart{FunctionCall: &GeminiFunctionCall{Name: tc.Name, Args: args}})
	}

	return GeminiResponse{
		Candidates: []GeminiCandidate{{
			Content:      GeminiContent{Role: "model", Parts: parts},
			FinishReason: geminiFinishReason(r.StopReason),
			Index:        0,
		}},
		UsageMetadata: &GeminiUsageMetadata{
			PromptTokenCount:        r.Usage.InputTokens,
			CandidatesTokenCount:    r.Usage.OutputTokens,
			TotalTokenCount:         r.Usage.InputTokens + r.Usage.OutputTokens,
			CachedContentTokenCount: r.Usage.CacheReadTokens,
		},
	}
}

func geminiFinishReason(s StopReason) string {
	switch s {
	case StopMaxTokens:
		return "MAX_TOKENS"
	default:
		return "STOP"
	}
}

// jsonUnmarshalArguments tolerates an empty arguments string, which the event
// stream parser never emits but a directly-constructed CanonicalToolCall
// (e.g. in tests) might.
func jsonUnmarshalArguments(raw string, out interface{}) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return jsonrepair.Parse(raw, out)
}
