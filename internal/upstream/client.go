package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/kiro-gateway/gateway/internal/credential"
	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/httpclient"
	"github.com/kiro-gateway/gateway/internal/logging"
)

const (
	defaultFirstTokenTimeout = 120 * time.Second
	defaultNonStreamTimeout  = 900 * time.Second
	defaultSlowMultiplier    = 3.0
)

// Client is the Upstream HTTP Client (UC, §4.4): a single streamRequest
// method that mints a fresh bearer token via CM, sets the AWS-SDK-shaped
// headers, and returns the live streaming response for the caller (the
// translation pipeline) to read from.
type Client struct {
	httpClient *http.Client
	manager    *credential.Manager

	firstTokenTimeout time.Duration
	nonStreamTimeout  time.Duration
	slowMultiplier    float64
}

// Config configures timeouts independent of the credential manager.
type Config struct {
	FirstTokenTimeout time.Duration
	NonStreamTimeout  time.Duration
	SlowMultiplier    float64
}

// NewClient builds a UC bound to one tenant's credential manager.
func NewClient(manager *credential.Manager, cfg Config) *Client {
	if cfg.FirstTokenTimeout == 0 {
		cfg.FirstTokenTimeout = defaultFirstTokenTimeout
	}
	if cfg.NonStreamTimeout == 0 {
		cfg.NonStreamTimeout = defaultNonStreamTimeout
	}
	if cfg.SlowMultiplier == 0 {
		cfg.SlowMultiplier = defaultSlowMultiplier
	}

	timeout := cfg.NonStreamTimeout
	if cfg.FirstTokenTimeout > timeout {
		timeout = cfg.FirstTokenTimeout
	}

	return &Client{
		httpClient:        httpclient.New(timeout),
		manager:           manager,
		firstTokenTimeout: cfg.FirstTokenTimeout,
		nonStreamTimeout:  cfg.NonStreamTimeout,
		slowMultiplier:    cfg.SlowMultiplier,
	}
}

// BaseTimeout returns the adaptive base timeout for one attempt (§4.4
// "Adaptive timeout").
func (c *Client) BaseTimeout(stream bool, externalModel string) time.Duration {
	base := c.nonStreamTimeout
	if stream {
		base = c.firstTokenTimeout
	}
	if IsSlowModel(externalModel) {
		base = time.Duration(float64(base) * c.slowMultiplier)
	}
	return base
}

// StreamRequest issues the single attempt described in §4.4: POST to the
// CodeWhisperer endpoint with a freshly minted bearer token and the
// AWS-SDK-shaped identification headers, returning the live *http.Response
// for the caller to read from (and close). A 403 response is the caller's
// signal to force-refresh and retry once; this method itself never retries.
func (c *Client) StreamRequest(ctx context.Context, payload Payload, forceRefresh bool) (*http.Response, error) {
	var token string
	var err error
	if forceRefresh {
		token, err = c.manager.ForceRefresh(ctx)
	} else {
		token, err = c.manager.GetAccessToken(ctx)
	}
	if err != nil {
		return nil, domain.NewProxyError(domain.KindTokenRefresh, err, true)
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, domain.NewProxyError(domain.KindInternal, err, false)
	}

	url := fmt.Sprintf("%s/generateAssistantResponse", c.manager.APIHost())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewProxyError(domain.KindInternal, err, false)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", httpclient.UserAgent(c.manager.Fingerprint()))
	invocationID := uuid.NewString()
	httpReq.Header.Set("amz-sdk-invocation-id", invocationID)
	httpReq.Header.Set("amz-sdk-request", "attempt=1; max=1")

	logging.Debugf("UC", "streaming request to %s conversation=%s", url, payload.ConversationState.ConversationID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewProxyError(domain.KindUpstream, err, true)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, upstreamStatusError(resp.StatusCode, raw)
	}

	return resp, nil
}

func upstreamStatusError(status int, body []byte) error {
	msg := fmt.Sprintf("upstream returned status %d: %s", status, string(body))
	switch {
	case status == http.StatusForbidden:
		return domain.NewProxyErrorf(domain.KindPermission, true, "%s", msg)
	case status == http.StatusTooManyRequests:
		return domain.NewProxyErrorf(domain.KindRateLimit, true, "%s", msg)
	case status >= 500:
		return domain.NewProxyErrorf(domain.KindUpstream, true, "%s", msg)
	default:
		return domain.NewProxyErrorf(domain.KindUpstream, false, "%s", msg)
	}
}
