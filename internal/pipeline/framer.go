package pipeline

import "github.com/kiro-gateway/gateway/internal/converter"

// Framer renders the neutral event stream into one dialect's SSE framing
// (§4.6 "per-dialect SSE framing"). Each method returns the raw bytes to
// write to the client immediately; a Framer is used for exactly one request.
type Framer interface {
	// Start opens the dialect's stream. estimatedInputTokens is the
	// pre-computed prompt-token estimate (§4.6), available before any
	// upstream event has arrived, for dialects that report usage up front.
	Start(model string, estimatedInputTokens int) []byte
	Text(delta string) []byte
	ToolCall(tc converter.CanonicalToolCall) []byte
	Finish(stopReason converter.StopReason, usage converter.CanonicalUsage) []byte
}
