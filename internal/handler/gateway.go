// Package handler wires the three client-facing dialect endpoints, the
// model catalog, and the admin surface onto the translation pipeline (§6).
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kiro-gateway/gateway/internal/converter"
	"github.com/kiro-gateway/gateway/internal/cooldown"
	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/logging"
	"github.com/kiro-gateway/gateway/internal/pipeline"
	"github.com/kiro-gateway/gateway/internal/pricing"
	"github.com/kiro-gateway/gateway/internal/reqctx"
	"github.com/kiro-gateway/gateway/internal/repository"
	"github.com/kiro-gateway/gateway/internal/upstream"
)

// Gateway holds every per-request collaborator needed to dispatch and
// translate one inbound request, across all three dialects.
type Gateway struct {
	auth        *Authenticator
	convTracker *upstream.ConversationIDTracker
	cooldownMgr *cooldown.Manager
	usageRepo   repository.UsageRecordRepository // nil when persistence is disabled
	calculator  *pricing.Calculator

	pipelineCfg pipeline.Config
	upstreamCfg upstream.Config
}

// Config bundles the tunables Gateway needs beyond its collaborators.
type Config struct {
	PipelineConfig pipeline.Config
	UpstreamConfig upstream.Config
}

func NewGateway(auth *Authenticator, cooldownMgr *cooldown.Manager, usageRepo repository.UsageRecordRepository, cfg Config) *Gateway {
	return &Gateway{
		auth:        auth,
		convTracker: upstream.NewConversationIDTracker(),
		cooldownMgr: cooldownMgr,
		usageRepo:   usageRepo,
		calculator:  pricing.GlobalCalculator(),
		pipelineCfg: cfg.PipelineConfig,
		upstreamCfg: cfg.UpstreamConfig,
	}
}

// dispatch resolves credentials, parses body into a CanonicalRequest via
// parse, builds the upstream payload, and drives either the streaming or
// collect-mode pipeline depending on req.Stream.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, dialect domain.ClientType,
	parse func([]byte) (*converter.CanonicalRequest, error),
	shapeAndWrite func(http.ResponseWriter, converter.CanonicalResult),
	streamTo func(context.Context, *pipeline.Pipeline, http.ResponseWriter, converter.CanonicalRequest, upstream.Payload) error,
) {
	requestID := uuid.NewString()
	ctx := reqctx.WithRequestID(r.Context(), requestID)
	ctx = reqctx.WithClientType(ctx, dialect)

	mgr, err := g.auth.Authenticate(r, dialect)
	if err != nil {
		g.writeError(w, dialect, false, err)
		return
	}
	ctx = reqctx.WithCredentialKey(ctx, mgr.CredentialKey())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.writeError(w, dialect, false, domain.NewProxyErrorf(domain.KindValidation, false, "failed to read request body"))
		return
	}
	defer r.Body.Close()

	req, err := parse(body)
	if err != nil {
		g.writeError(w, dialect, false, domain.NewProxyErrorf(domain.KindValidation, false, "invalid request body: %v", err))
		return
	}
	ctx = reqctx.WithRequestModel(ctx, req.Model)
	ctx = reqctx.WithIsStream(ctx, req.Stream)
	r = r.WithContext(ctx)

	conversationID := g.convTracker.ConversationIDFor(r)
	payload := upstream.BuildPayload(*req, mgr.ProfileArn(), conversationID)

	client := upstream.NewClient(mgr, g.upstreamCfg)
	p := pipeline.New(client, g.cooldownMgr, mgr.CredentialKey(), g.pipelineCfg)

	started := time.Now()

	if req.Stream {
		if err := streamTo(r.Context(), p, w, *req, payload); err != nil {
			logging.Errorf("Gateway", "request=%s stream failed: %v", requestID, err)
			g.writeError(w, dialect, true, err)
			return
		}
		return
	}

	result, err := p.Collect(r.Context(), *req, payload)
	if err != nil {
		logging.Errorf("Gateway", "request=%s collect failed: %v", requestID, err)
		g.writeError(w, dialect, false, err)
		return
	}
	g.recordUsage(requestID, dialect, req.Model, result, started)
	shapeAndWrite(w, result)
}

// HandleOpenAI serves POST /v1/chat/completions.
func (g *Gateway) HandleOpenAI(w http.ResponseWriter, r *http.Request) {
	g.dispatch(w, r, domain.ClientTypeOpenAI, converter.FromOpenAI,
		func(w http.ResponseWriter, res converter.CanonicalResult) {
			writeJSON(w, http.StatusOK, converter.ShapeOpenAIResponse(res))
		},
		func(ctx context.Context, p *pipeline.Pipeline, w http.ResponseWriter, req converter.CanonicalRequest, payload upstream.Payload) error {
			setSSEHeaders(w)
			return p.StreamToOpenAI(ctx, w, req, payload)
		},
	)
}

// HandleAnthropic serves POST /v1/messages.
func (g *Gateway) HandleAnthropic(w http.ResponseWriter, r *http.Request) {
	g.dispatch(w, r, domain.ClientTypeAnthropic, converter.FromClaude,
		func(w http.ResponseWriter, res converter.CanonicalResult) {
			writeJSON(w, http.StatusOK, converter.ShapeClaudeResponse(res))
		},
		func(ctx context.Context, p *pipeline.Pipeline, w http.ResponseWriter, req converter.CanonicalRequest, payload upstream.Payload) error {
			setSSEHeaders(w)
			return p.StreamToAnthropic(ctx, w, req, payload)
		},
	)
}

// HandleGemini serves POST /v1beta/models/{model}:generateContent and
// ...:streamGenerateContent. Gemini doesn't carry `stream` in its body; it
// is implied by the path suffix, set on the parsed request before dispatch.
func (g *Gateway) HandleGemini(w http.ResponseWriter, r *http.Request, streamSuffix bool) {
	parse := func(body []byte) (*converter.CanonicalRequest, error) {
		req, err := converter.FromGemini(body)
		if err != nil {
			return nil, err
		}
		req.Stream = streamSuffix
		return req, nil
	}

	g.dispatch(w, r, domain.ClientTypeGemini, parse,
		func(w http.ResponseWriter, res converter.CanonicalResult) {
			writeJSON(w, http.StatusOK, converter.ShapeGeminiResponse(res))
		},
		func(ctx context.Context, p *pipeline.Pipeline, w http.ResponseWriter, req converter.CanonicalRequest, payload upstream.Payload) error {
			setSSEHeaders(w)
			return p.StreamToGemini(ctx, w, req, payload)
		},
	)
}

func (g *Gateway) recordUsage(requestID string, dialect domain.ClientType, requestedModel string, res converter.CanonicalResult, started time.Time) {
	metrics := &pricing.Metrics{
		InputTokens:  uint64(res.Usage.InputTokens),
		OutputTokens: uint64(res.Usage.OutputTokens),
	}
	costMicros := g.calculator.Calculate(requestedModel, metrics)

	rec := &domain.UsageRecord{
		RequestID:    requestID,
		ClientType:   dialect,
		Model:        requestedModel,
		MappedModel:  upstream.MapModelID(requestedModel),
		InputTokens:  uint64(res.Usage.InputTokens),
		OutputTokens: uint64(res.Usage.OutputTokens),
		CostMicros:   costMicros,
		StartedAt:    started,
		FinishedAt:   time.Now(),
	}

	if g.usageRepo != nil {
		if err := g.usageRepo.Create(rec); err != nil {
			logging.Warnf("Gateway", "failed to persist usage record: %v", err)
		}
	}
	logging.Infof("Gateway", "request=%s model=%s in=%d out=%d cost_micros=%d", requestID, rec.Model, rec.InputTokens, rec.OutputTokens, rec.CostMicros)
}

func (g *Gateway) writeError(w http.ResponseWriter, dialect domain.ClientType, mid bool, err error) {
	kind := domain.KindOf(err)
	if mid {
		w.Write(converter.ToDialectStreamFrame(kind, dialect, err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	w.Write(converter.ToDialect(kind, dialect, err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}
