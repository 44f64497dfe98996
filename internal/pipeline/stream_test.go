package pipeline

import (
	"testing"

	"github.com/kiro-gateway/gateway/internal/converter"
	"github.com/kiro-gateway/gateway/internal/eventstream"
)

func TestResultApplyIgnoresFollowupContent(t *testing.T) {
	r := &result{}
	if emit := r.apply(eventstream.Event{Kind: eventstream.EventFollowup, Text: "anything else?"}); emit {
		t.Error("expected followup event to be reported as non-renderable")
	}
	if r.text.String() != "" {
		t.Errorf("text = %q, want empty: followup content must not be accumulated", r.text.String())
	}
}

func TestResultApplyDropsConsecutiveDuplicateContent(t *testing.T) {
	r := &result{}
	if emit := r.apply(eventstream.Event{Kind: eventstream.EventContent, Text: "hello"}); !emit {
		t.Fatal("expected first content event to be renderable")
	}
	if emit := r.apply(eventstream.Event{Kind: eventstream.EventContent, Text: "hello"}); emit {
		t.Error("expected the immediately-repeated content event to be dropped")
	}
	if emit := r.apply(eventstream.Event{Kind: eventstream.EventContent, Text: "world"}); !emit {
		t.Error("expected a differing content event to be renderable")
	}
	if r.text.String() != "helloworld" {
		t.Errorf("text = %q, want %q", r.text.String(), "helloworld")
	}
}

func TestResultFinalUsageDerivesPromptFromTotalMinusCompletion(t *testing.T) {
	r := &result{}
	r.apply(eventstream.Event{Kind: eventstream.EventContent, Text: "short reply"})
	pct := 0.5 // 0.5% of 200000 = 1000 total tokens
	r.apply(eventstream.Event{Kind: eventstream.EventContextUsage, ContextUsagePercentage: pct})

	usage := r.finalUsage(200000, converter.CanonicalRequest{})

	wantCompletion := CountTokens("short reply")
	if usage.OutputTokens != wantCompletion {
		t.Errorf("OutputTokens = %d, want %d", usage.OutputTokens, wantCompletion)
	}
	wantPrompt := 1000 - wantCompletion
	if wantPrompt < 0 {
		wantPrompt = 0
	}
	if usage.InputTokens != wantPrompt {
		t.Errorf("InputTokens = %d, want %d (total 1000 minus completion)", usage.InputTokens, wantPrompt)
	}
	if usage.InputTokens+usage.OutputTokens != 1000 {
		t.Errorf("InputTokens+OutputTokens = %d, want total 1000", usage.InputTokens+usage.OutputTokens)
	}
}

func TestResultFinalUsageFallsBackToEstimateWithoutContextUsage(t *testing.T) {
	r := &result{}
	r.apply(eventstream.Event{Kind: eventstream.EventContent, Text: "reply"})

	req := converter.CanonicalRequest{System: "be helpful"}
	usage := r.finalUsage(200000, req)

	if usage.InputTokens != EstimateInputTokens(req) {
		t.Errorf("InputTokens = %d, want the fallback estimate %d", usage.InputTokens, EstimateInputTokens(req))
	}
}
