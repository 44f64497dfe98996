package eventstream

import "github.com/kiro-gateway/gateway/internal/converter"

// EventKind discriminates the neutral events ESP hands to the translation
// pipeline, one per finalized upstream signal.
type EventKind int

const (
	EventContent EventKind = iota
	EventToolCall
	EventFollowup
	EventUsage
	EventContextUsage
	EventStop
)

// Event is one neutral, dialect-agnostic signal extracted from the upstream
// byte stream.
type Event struct {
	Kind EventKind

	Text string // EventContent, EventFollowup

	ToolCall converter.CanonicalToolCall // EventToolCall, finalized (args complete)

	Usage                  converter.CanonicalUsage // EventUsage
	ContextUsagePercentage float64                  // EventContextUsage

	StopReason converter.StopReason // EventStop
}
