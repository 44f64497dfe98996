package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiro-gateway/gateway/internal/cooldown"
)

func TestAdminHandlerDisabledWithoutToken(t *testing.T) {
	h := NewAdminHandler("", cooldown.NewManager(cooldown.Config{}), nil)
	if h.Enabled() {
		t.Fatal("expected Enabled() to be false with no ADMIN_TOKEN configured")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/admin/cooldowns", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when the admin surface is disabled", w.Code)
	}
}

func TestAdminHandlerRejectsMissingAuth(t *testing.T) {
	h := NewAdminHandler("admin-secret", cooldown.NewManager(cooldown.Config{}), nil)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/cooldowns", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for an unauthenticated request", w.Code)
	}
}

func TestAdminHandlerAcceptsStaticToken(t *testing.T) {
	cooldownMgr := cooldown.NewManager(cooldown.Config{})
	h := NewAdminHandler("admin-secret", cooldownMgr, nil)

	r := httptest.NewRequest(http.MethodGet, "/api/admin/cooldowns", nil)
	r.Header.Set("Authorization", "Bearer admin-secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for a valid static admin token", w.Code)
	}
}

func TestAdminHandlerClearCooldown(t *testing.T) {
	cooldownMgr := cooldown.NewManager(cooldown.Config{})
	cooldownMgr.RecordFailure("tenant-a", cooldown.ReasonAuth)
	h := NewAdminHandler("admin-secret", cooldownMgr, nil)

	r := httptest.NewRequest(http.MethodDelete, "/api/admin/cooldowns/tenant-a", nil)
	r.Header.Set("Authorization", "Bearer admin-secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 after clearing a cooldown", w.Code)
	}
	if cooldownMgr.IsInCooldown("tenant-a") {
		t.Error("expected cooldown to be cleared after DELETE")
	}
}
