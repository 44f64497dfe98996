// Package pipeline is the Translation Pipeline (TP, §4.6): it drives one
// upstream attempt through the event stream parser, applies the adaptive
// timeout and retry rules, and renders the result either as a live
// per-dialect SSE stream or (collect mode) a single aggregated result for
// PC's non-streaming response shaping.
package pipeline

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiro-gateway/gateway/internal/converter"
	"github.com/kiro-gateway/gateway/internal/cooldown"
	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/eventstream"
	"github.com/kiro-gateway/gateway/internal/logging"
	"github.com/kiro-gateway/gateway/internal/upstream"
)

const maxConsecutiveChunkTimeouts = 3

// Config tunes the pipeline's timeouts independent of the upstream client's
// own adaptive base timeout.
type Config struct {
	MaxInputTokens       int
	FirstTokenMaxRetries int
	StreamReadTimeout    time.Duration
}

// Pipeline is bound to one upstream client (and therefore one tenant's
// credentials) plus that tenant's cooldown key (§4.7: the cooldown manager
// itself is shared across tenants, keyed by credential).
type Pipeline struct {
	client        *upstream.Client
	cfg           Config
	cooldownMgr   *cooldown.Manager
	credentialKey string
}

// New builds a Pipeline, applying defaults matching §6's configuration
// surface. cooldownMgr may be nil, in which case the fast-fail guard and
// failure/success bookkeeping are both skipped.
func New(client *upstream.Client, cooldownMgr *cooldown.Manager, credentialKey string, cfg Config) *Pipeline {
	if cfg.MaxInputTokens == 0 {
		cfg.MaxInputTokens = 200000
	}
	if cfg.FirstTokenMaxRetries == 0 {
		cfg.FirstTokenMaxRetries = 2
	}
	if cfg.StreamReadTimeout == 0 {
		cfg.StreamReadTimeout = 60 * time.Second
	}
	return &Pipeline{client: client, cfg: cfg, cooldownMgr: cooldownMgr, credentialKey: credentialKey}
}

// cooldownReasonFor maps a terminal error's kind to the cooldown reason UC's
// retry exhaustion should be charged against (§4.7).
func cooldownReasonFor(err error) cooldown.CooldownReason {
	switch domain.KindOf(err) {
	case domain.KindPermission, domain.KindAuthentication, domain.KindTokenRefresh:
		return cooldown.ReasonAuth
	case domain.KindRateLimit:
		return cooldown.ReasonRateLimit
	case domain.KindUpstream:
		return cooldown.ReasonUpstream
	default:
		return cooldown.ReasonUnknown
	}
}

// result accumulates everything a completed upstream turn produced,
// independent of how it gets rendered.
type result struct {
	text            strings.Builder
	lastContent     string
	haveLastContent bool
	toolCalls       []converter.CanonicalToolCall
	usage           converter.CanonicalUsage
	contextPct      *float64
}

// apply folds one ESP event into the accumulated result and reports whether
// the event should still be rendered live. followupPrompt content is ignored
// entirely (§4.6: "Events carrying a followupPrompt content are ignored") —
// it is never appended to r.text and never reported as renderable. A content
// event whose text exactly repeats the immediately preceding one is folded
// in the same way (§4.6 content deduplication) but reported as non-renderable,
// so the accumulator and the live stream stay in sync on what gets dropped.
func (r *result) apply(e eventstream.Event) bool {
	switch e.Kind {
	case eventstream.EventContent:
		if r.haveLastContent && e.Text == r.lastContent {
			return false
		}
		r.lastContent = e.Text
		r.haveLastContent = true
		r.text.WriteString(e.Text)
		return true
	case eventstream.EventToolCall:
		r.toolCalls = append(r.toolCalls, e.ToolCall)
		return true
	case eventstream.EventUsage:
		if e.Usage.CreditsUsed != nil {
			r.usage.CreditsUsed = e.Usage.CreditsUsed
		}
		return true
	case eventstream.EventContextUsage:
		pct := e.ContextUsagePercentage
		r.contextPct = &pct
		return true
	default:
		return false
	}
}

func (r *result) stopReason() converter.StopReason {
	if len(r.toolCalls) > 0 {
		return converter.StopToolUse
	}
	return converter.StopEndTurn
}

// finalUsage derives the prompt/completion token split per §4.6: when a
// contextUsagePercentage event arrived, it gives the turn's *total* token
// count (floor(pct/100 * maxInputTokens)), not the prompt count alone —
// prompt tokens are whatever's left after subtracting the completion this
// turn produced. Without a contextUsagePercentage event, there's no total to
// derive from, so the prompt estimate stands on its own.
func (r *result) finalUsage(maxInputTokens int, req converter.CanonicalRequest) converter.CanonicalUsage {
	usage := r.usage
	usage.OutputTokens = CountTokens(r.text.String())

	if r.contextPct != nil {
		total := TokensFromContextUsage(*r.contextPct, maxInputTokens)
		prompt := total - usage.OutputTokens
		if prompt < 0 {
			prompt = 0
		}
		usage.InputTokens = prompt
	} else {
		usage.InputTokens = EstimateInputTokens(req)
	}
	return usage
}

// run drives one logical turn to completion, invoking emit for every event
// as it becomes available (emit may be a no-op in collect mode). It owns the
// first-token whole-attempt retry and the subsequent-chunk timeout
// tolerance (§4.4).
func (p *Pipeline) run(ctx context.Context, payload upstream.Payload, externalModel string, stream bool, emit func(eventstream.Event)) (*result, error) {
	if p.cooldownMgr != nil && p.cooldownMgr.IsInCooldown(p.credentialKey) {
		return nil, domain.NewProxyErrorf(domain.KindRateLimit, false, "credential is in cooldown")
	}

	r := &result{}
	parser := eventstream.NewParser()

	resp, err := p.attemptWithFirstTokenRetry(ctx, payload, externalModel, stream)
	if err != nil {
		if p.cooldownMgr != nil {
			p.cooldownMgr.RecordFailure(p.credentialKey, cooldownReasonFor(err))
		}
		return nil, err
	}
	defer resp.Body.Close()

	tr := newTimeoutReader(resp.Body)
	buf := make([]byte, 8192)
	consecutiveTimeouts := 0

	for {
		n, readErr, timedOut := tr.ReadTimeout(buf, p.cfg.StreamReadTimeout)
		if timedOut {
			consecutiveTimeouts++
			if consecutiveTimeouts > maxConsecutiveChunkTimeouts {
				err := domain.NewProxyError(domain.KindTimeout, domain.ErrStreamIdleTimeout, false)
				if p.cooldownMgr != nil {
					p.cooldownMgr.RecordFailure(p.credentialKey, cooldownReasonFor(err))
				}
				return nil, err
			}
			logging.Warnf("TP", "chunk read timed out (%d/%d consecutive), continuing", consecutiveTimeouts, maxConsecutiveChunkTimeouts)
			continue
		}
		consecutiveTimeouts = 0

		if n > 0 {
			for _, e := range parser.Feed(buf[:n]) {
				if r.apply(e) {
					emit(e)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			err := domain.NewProxyError(domain.KindUpstream, readErr, true)
			if p.cooldownMgr != nil {
				p.cooldownMgr.RecordFailure(p.credentialKey, cooldownReasonFor(err))
			}
			return nil, err
		}
	}

	for _, e := range parser.Close() {
		if r.apply(e) {
			emit(e)
		}
	}
	r.toolCalls = eventstream.DedupeToolCalls(r.toolCalls)
	if p.cooldownMgr != nil {
		p.cooldownMgr.RecordSuccess(p.credentialKey)
	}
	return r, nil
}

func (p *Pipeline) attemptWithFirstTokenRetry(ctx context.Context, payload upstream.Payload, externalModel string, stream bool) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= p.cfg.FirstTokenMaxRetries; attempt++ {
		resp, err := p.client.StreamWithRetry(ctx, payload)
		if err != nil {
			return nil, err
		}

		tr := newTimeoutReader(resp.Body)
		probe := make([]byte, 1)
		n, readErr, timedOut := tr.ReadTimeout(probe, p.client.BaseTimeout(stream, externalModel))
		if timedOut {
			resp.Body.Close()
			lastErr = domain.NewProxyError(domain.KindTimeout, domain.ErrFirstByteTimeout, true)
			logging.Warnf("TP", "first-token timeout on attempt %d, retrying whole attempt", attempt+1)
			continue
		}

		return &http.Response{
			Body: io.NopCloser(io.MultiReader(probeReader(probe[:n], readErr), resp.Body)),
		}, nil
	}
	return nil, lastErr
}

// probeReader turns the single probed byte (and any error already observed,
// e.g. immediate EOF) back into a Reader so the remainder of run()'s loop
// can treat the whole body uniformly.
func probeReader(probed []byte, err error) io.Reader {
	if len(probed) == 0 && err != nil {
		return errorReader{err: err}
	}
	return strings.NewReader(string(probed))
}

type errorReader struct{ err error }

func (e errorReader) Read([]byte) (int, error) { return 0, e.err }

// streamWith drives one turn live through framer, writing every frame to w
// as events arrive, then writes the closing Finish frame.
func (p *Pipeline) streamWith(ctx context.Context, w io.Writer, req converter.CanonicalRequest, payload upstream.Payload, framer Framer) error {
	if start := framer.Start(req.Model, EstimateInputTokens(req)); start != nil {
		if _, err := w.Write(start); err != nil {
			return err
		}
	}

	r, err := p.run(ctx, payload, req.Model, true, func(e eventstream.Event) {
		var out []byte
		switch e.Kind {
		case eventstream.EventContent:
			out = framer.Text(e.Text)
		case eventstream.EventToolCall:
			out = framer.ToolCall(e.ToolCall)
		}
		if out != nil {
			_, _ = w.Write(out)
		}
	})
	if err != nil {
		return err
	}

	usage := r.finalUsage(p.cfg.MaxInputTokens, req)
	_, err = w.Write(framer.Finish(r.stopReason(), usage))
	return err
}

// StreamToOpenAI drives a turn and renders it as OpenAI chat.completion.chunk
// SSE frames.
func (p *Pipeline) StreamToOpenAI(ctx context.Context, w io.Writer, req converter.CanonicalRequest, payload upstream.Payload) error {
	return p.streamWith(ctx, w, req, payload, newOpenAIFramer())
}

// StreamToAnthropic drives a turn and renders it as Anthropic messages-API
// named SSE events.
func (p *Pipeline) StreamToAnthropic(ctx context.Context, w io.Writer, req converter.CanonicalRequest, payload upstream.Payload) error {
	return p.streamWith(ctx, w, req, payload, newAnthropicFramer())
}

// StreamToGemini drives a turn and renders it as Gemini streamGenerateContent
// SSE frames.
func (p *Pipeline) StreamToGemini(ctx context.Context, w io.Writer, req converter.CanonicalRequest, payload upstream.Payload) error {
	return p.streamWith(ctx, w, req, payload, newGeminiFramer())
}

// Collect drives a turn to completion without rendering SSE frames,
// returning a single aggregated result for PC's non-streaming response
// shaping (ShapeOpenAIResponse / ShapeClaudeResponse / ShapeGeminiResponse).
func (p *Pipeline) Collect(ctx context.Context, req converter.CanonicalRequest, payload upstream.Payload) (converter.CanonicalResult, error) {
	r, err := p.run(ctx, payload, req.Model, false, func(eventstream.Event) {})
	if err != nil {
		return converter.CanonicalResult{}, err
	}
	return converter.CanonicalResult{
		Model:      req.Model,
		Text:       r.text.String(),
		ToolCalls:  r.toolCalls,
		StopReason: r.stopReason(),
		Usage:      r.finalUsage(p.cfg.MaxInputTokens, req),
	}, nil
}
