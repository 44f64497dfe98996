package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiro-gateway/gateway/internal/credential"
	"github.com/kiro-gateway/gateway/internal/domain"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	global, err := credential.NewManager(credential.Config{RefreshToken: "global-refresh-token"})
	if err != nil {
		t.Fatalf("failed to construct global manager: %v", err)
	}
	cache := credential.NewCache(0, "us-east-1", "")
	return NewAuthenticator("proxy-key", global, cache)
}

func TestAuthenticateBareProxyKeyUsesGlobalManager(t *testing.T) {
	a := newTestAuthenticator(t)
	r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	r.Header.Set("Authorization", "Bearer proxy-key")

	mgr, err := a.Authenticate(r, domain.ClientTypeOpenAI)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if mgr != a.global {
		t.Error("expected the bare proxy key to resolve to the global manager")
	}
}

func TestAuthenticateTwoPartTokenResolvesPerTenantManager(t *testing.T) {
	a := newTestAuthenticator(t)
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	r.Header.Set("x-api-key", "proxy-key:tenant-refresh-token")

	mgr, err := a.Authenticate(r, domain.ClientTypeAnthropic)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if mgr == a.global {
		t.Error("expected a two-part token to resolve to a per-tenant manager, not the global one")
	}
}

func TestAuthenticateRejectsWrongKey(t *testing.T) {
	a := newTestAuthenticator(t)
	r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	r.Header.Set("Authorization", "Bearer wrong-key")

	if _, err := a.Authenticate(r, domain.ClientTypeOpenAI); err == nil {
		t.Fatal("expected an error for a mismatched proxy key")
	} else if domain.KindOf(err) != domain.KindAuthentication {
		t.Errorf("expected KindAuthentication, got %v", domain.KindOf(err))
	}
}

func TestAuthenticateRejectsMissingCredentials(t *testing.T) {
	a := newTestAuthenticator(t)
	r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)

	if _, err := a.Authenticate(r, domain.ClientTypeOpenAI); err == nil {
		t.Fatal("expected an error when no credentials are present")
	}
}

func TestExtractTokenGeminiQueryParamFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1beta/models/gemini-3-pro-preview:generateContent?key=abc123", nil)
	if got := extractToken(r, domain.ClientTypeGemini); got != "abc123" {
		t.Errorf("extractToken() = %q, want abc123", got)
	}
}
