// Package credential implements the Credential Manager (CM) and Credential
// Cache (CC) of §4.1-4.2: refresh-token-based access token issuance with
// single-flight refresh, and a bounded LRU of per-tenant managers.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/httpclient"
	"github.com/kiro-gateway/gateway/internal/logging"
)

const (
	refreshURLTemplate = "https://prod.%s.auth.desktop.kiro.dev/refreshToken"
	apiHostTemplate     = "https://codewhisperer.%s.amazonaws.com"
	qHostTemplate       = "https://q.%s.amazonaws.com"

	defaultRegion          = "us-east-1"
	defaultExpirySkew      = 60 * time.Second
	defaultExpiresInSecs   = 3600
	refreshMaxAttempts     = 3
	refreshBackoffBase     = 1 * time.Second
)

// refreshRequest/refreshResponse mirror the upstream's minimal refresh wire
// shape (§4.1): only accessToken is required in the response, everything
// else is optional and carries forward the prior value when absent.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ProfileArn   string `json:"profileArn,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

// Manager is the Credential Manager: holds one refresh-token-backed identity,
// mints and caches short-lived access tokens under a single-flight guard,
// and optionally persists state to a credentials file.
type Manager struct {
	mu         sync.RWMutex
	cred       domain.Credential
	threshold  time.Duration
	httpClient *http.Client
	group      singleflight.Group
	store      *FileStore // nil when no persistence is configured
	fingerprint string
}

// Config configures a new Manager.
type Config struct {
	RefreshToken       string
	Region             string
	ProfileArn         string
	RefreshThreshold    time.Duration
	CredentialsFilePath string // local path, http(s) URL, or empty
}

// NewManager constructs a Manager, loading persisted state from the
// credentials file/URL if one is configured.
func NewManager(cfg Config) (*Manager, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	threshold := cfg.RefreshThreshold
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}

	m := &Manager{
		cred: domain.Credential{
			RefreshToken: cfg.RefreshToken,
			ProfileArn:   cfg.ProfileArn,
			Region:       region,
		},
		threshold:   threshold,
		httpClient:  httpclient.New(30 * time.Second),
		fingerprint: machineFingerprint(),
	}

	if cfg.CredentialsFilePath != "" {
		store, err := NewFileStore(cfg.CredentialsFilePath)
		if err != nil {
			return nil, fmt.Errorf("credential: opening credentials store: %w", err)
		}
		m.store = store
		if loaded, err := store.Load(); err == nil && loaded != nil {
			if loaded.RefreshToken != "" {
				m.cred.RefreshToken = loaded.RefreshToken
			}
			if loaded.AccessToken != "" {
				m.cred.AccessToken = loaded.AccessToken
				m.cred.ExpiresAt = loaded.ExpiresAt
			}
			if loaded.ProfileArn != "" {
				m.cred.ProfileArn = loaded.ProfileArn
			}
			if loaded.Region != "" {
				m.cred.Region = loaded.Region
			}
		}
	}

	return m, nil
}

// RefreshURL, APIHost, and QHost are derived from the region by template
// substitution (§4.1).
func (m *Manager) RefreshURL() string {
	return fmt.Sprintf(refreshURLTemplate, m.Region())
}

func (m *Manager) APIHost() string {
	return fmt.Sprintf(apiHostTemplate, m.Region())
}

func (m *Manager) QHost() string {
	return fmt.Sprintf(qHostTemplate, m.Region())
}

func (m *Manager) Region() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.Region
}

func (m *Manager) ProfileArn() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.ProfileArn
}

func (m *Manager) Fingerprint() string {
	return m.fingerprint
}

// CredentialKey identifies this Manager's credential for cooldown/usage
// bookkeeping. It is the refresh token itself — the one value stable across
// a token refresh that still uniquely names the tenant.
func (m *Manager) CredentialKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.RefreshToken
}

// GetAccessToken returns a currently-valid access token, refreshing first if
// necessary. Concurrent callers on an expired token share a single refresh
// (singleflight.Group — see §9's single-flight design note).
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	if m.hasValidToken() {
		m.mu.RLock()
		token := m.cred.AccessToken
		m.mu.RUnlock()
		return token, nil
	}
	return m.doRefresh(ctx)
}

// ForceRefresh bypasses the expiry check but still obeys the single-flight
// guard, used by UC when the upstream returns 403.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	return m.doRefresh(ctx)
}

func (m *Manager) hasValidToken() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred.AccessToken == "" {
		return false
	}
	return time.Now().Add(m.threshold).Before(m.cred.ExpiresAt)
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refreshLocked(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	m.mu.RLock()
	refreshToken := m.cred.RefreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		return "", domain.NewProxyErrorf(domain.KindTokenRefresh, false, "no refresh token configured")
	}

	resp, err := m.callRefreshEndpoint(ctx, refreshToken)
	if err != nil {
		return "", domain.NewProxyErrorf(domain.KindTokenRefresh, false, "refresh failed: %v", err)
	}

	expiresIn := resp.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresInSecs
	}

	m.mu.Lock()
	m.cred.AccessToken = resp.AccessToken
	m.cred.ExpiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - defaultExpirySkew)
	if resp.RefreshToken != "" {
		m.cred.RefreshToken = resp.RefreshToken
	}
	if resp.ProfileArn != "" {
		m.cred.ProfileArn = resp.ProfileArn
	}
	snapshot := m.cred
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(&snapshot); err != nil {
			logging.Warnf("CM", "failed to persist credentials: %v", err)
		}
	}

	logging.Infof("CM", "refreshed access token, expires_at=%s", snapshot.ExpiresAt.Format(time.RFC3339))
	return resp.AccessToken, nil
}

// callRefreshEndpoint POSTs the refresh token with exponential backoff on
// 429/5xx/network errors, per §4.1's retry policy (base 1s, doubling, up to
// 3 attempts). Other non-2xx responses are fatal.
func (m *Manager) callRefreshEndpoint(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	body, err := sonic.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var result *refreshResponse
	var bo backoff.BackOff = backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(refreshBackoffBase),
		backoff.WithMultiplier(2),
	), refreshMaxAttempts-1)
	bo = backoff.WithContext(bo, ctx)

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.RefreshURL(), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", httpclient.UserAgent(m.fingerprint))

		resp, err := m.httpClient.Do(req)
		if err != nil {
			return err // retryable: network error
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == http.StatusOK {
			var parsed refreshResponse
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return backoff.Permanent(fmt.Errorf("decoding refresh response: %w", err))
			}
			if parsed.AccessToken == "" {
				return backoff.Permanent(fmt.Errorf("refresh response missing accessToken"))
			}
			result = &parsed
			return nil
		}

		if resp.StatusCode == 429 || resp.StatusCode == 500 || resp.StatusCode == 502 ||
			resp.StatusCode == 503 || resp.StatusCode == 504 {
			return fmt.Errorf("refresh endpoint returned %d: %s", resp.StatusCode, string(respBody))
		}

		return backoff.Permanent(fmt.Errorf("refresh endpoint returned %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return result, nil
}
