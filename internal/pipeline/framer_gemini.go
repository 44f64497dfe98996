package pipeline

import "github.com/kiro-gateway/gateway/internal/converter"

// geminiFramer renders `data: <json>\n\n` frames with no named event and no
// terminator marker, per §4.4 "Gemini framing".
type geminiFramer struct{}

func newGeminiFramer() *geminiFramer { return &geminiFramer{} }

func (f *geminiFramer) Start(model string, estimatedInputTokens int) []byte { return nil }

func (f *geminiFramer) Text(delta string) []byte {
	chunk := converter.GeminiStreamChunk{
		Candidates: []converter.GeminiCandidate{{
			Content: converter.GeminiContent{Role: "model", Parts: []converter.GeminiPart{{Text: delta}}},
		}},
	}
	return converter.FormatSSE("", chunk)
}

func (f *geminiFramer) ToolCall(tc converter.CanonicalToolCall) []byte {
	var args map[string]interface{}
	_ = unmarshalArgs(tc.Arguments, &args)
	chunk := converter.GeminiStreamChunk{
		Candidates: []converter.GeminiCandidate{{
			Content: converter.GeminiContent{
				Role:  "model",
				Parts: []converter.GeminiPart{{FunctionCall: &converter.GeminiFunctionCall{Name: tc.Name, Args: args}}},
			},
		}},
	}
	return converter.FormatSSE("", chunk)
}

func (f *geminiFramer) Finish(stopReason converter.StopReason, usage converter.CanonicalUsage) []byte {
	chunk := converter.GeminiStreamChunk{
		Candidates: []converter.GeminiCandidate{{
			Content:      converter.GeminiContent{Role: "model", Parts: []converter.GeminiPart{}},
			FinishReason: geminiFinishReasonOf(stopReason),
		}},
		UsageMetadata: &converter.GeminiUsageMetadata{
			PromptTokenCount:     usage.InputTokens,
			CandidatesTokenCount: usage.OutputTokens,
			TotalTokenCount:      usage.InputTokens + usage.OutputTokens,
		},
	}
	return converter.FormatSSE("", chunk)
}

func geminiFinishReasonOf(s converter.StopReason) string {
	if s == converter.StopMaxTokens {
		return "MAX_TOKENS"
	}
	return "STOP"
}
