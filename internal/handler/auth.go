package handler

import (
	"net/http"
	"strings"

	"github.com/kiro-gateway/gateway/internal/credential"
	"github.com/kiro-gateway/gateway/internal/domain"
)

// Authenticator resolves the inbound request's bearer token into a
// credential.Manager, per spec's two-shape auth token format: "PROXY_API_KEY"
// alone uses the globally configured manager; "PROXY_API_KEY:REFRESH_TOKEN"
// looks up or creates a per-tenant manager in CC for that refresh token.
type Authenticator struct {
	proxyAPIKey string
	global      *credential.Manager
	cache       *credential.Cache
}

func NewAuthenticator(proxyAPIKey string, global *credential.Manager, cache *credential.Cache) *Authenticator {
	return &Authenticator{proxyAPIKey: proxyAPIKey, global: global, cache: cache}
}

// Authenticate extracts the caller's token per dialect's header convention and
// resolves it to a Manager. Any mismatch against proxyAPIKey, or a malformed
// two-part token, yields a KindAuthentication error (-> HTTP 401).
func (a *Authenticator) Authenticate(r *http.Request, dialect domain.ClientType) (*credential.Manager, error) {
	token := extractToken(r, dialect)
	if token == "" {
		return nil, domain.NewProxyErrorf(domain.KindAuthentication, false, "missing credentials")
	}

	if token == a.proxyAPIKey {
		if a.global == nil {
			return nil, domain.NewProxyErrorf(domain.KindAuthentication, false, "no default credential configured")
		}
		return a.global, nil
	}

	prefix, refreshToken, ok := strings.Cut(token, ":")
	if !ok || prefix != a.proxyAPIKey || refreshToken == "" {
		return nil, domain.NewProxyErrorf(domain.KindAuthentication, false, "invalid proxy API key")
	}

	mgr, err := a.cache.GetOrCreate(refreshToken, "", "")
	if err != nil {
		return nil, domain.NewProxyError(domain.KindAuthentication, err, false)
	}
	return mgr, nil
}

// extractToken pulls the bearer credential out of the request using each
// dialect's native convention, falling back to Authorization: Bearer for all
// three since every client library accepts it.
func extractToken(r *http.Request, dialect domain.ClientType) string {
	switch dialect {
	case domain.ClientTypeAnthropic:
		if v := r.Header.Get("x-api-key"); v != "" {
			return v
		}
	case domain.ClientTypeGemini:
		if v := r.Header.Get("x-goog-api-key"); v != "" {
			return v
		}
		if v := r.URL.Query().Get("key"); v != "" {
			return v
		}
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		return auth
	}
	return ""
}
