package handler

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kiro-gateway/gateway/internal/cooldown"
	"github.com/kiro-gateway/gateway/internal/repository"
)

// AdminHandler serves the operational introspection surface: active
// cooldowns and recent usage records (§[ADD] §6, §9 "admin auth").
type AdminHandler struct {
	adminToken  string
	cooldownMgr *cooldown.Manager
	usageRepo   repository.UsageRecordRepository
}

func NewAdminHandler(adminToken string, cooldownMgr *cooldown.Manager, usageRepo repository.UsageRecordRepository) *AdminHandler {
	return &AdminHandler{adminToken: adminToken, cooldownMgr: cooldownMgr, usageRepo: usageRepo}
}

// Enabled reports whether the admin surface is configured at all. An
// unconfigured ADMIN_TOKEN disables the surface entirely rather than
// accepting unauthenticated requests (§8 "admin-gating").
func (h *AdminHandler) Enabled() bool {
	return h.adminToken != ""
}

// authorized accepts either the raw static token or a JWT signed with it as
// the HMAC secret, per §[ADD] 11's dependency wiring.
func (h *AdminHandler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == h.adminToken {
		return true
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(h.adminToken), nil
	})
	return err == nil && parsed.Valid
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		http.NotFound(w, r)
		return
	}
	if !h.authorized(r) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/api/admin/cooldowns" && r.Method == http.MethodGet:
		h.listCooldowns(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/admin/cooldowns/") && r.Method == http.MethodDelete:
		key := strings.TrimPrefix(r.URL.Path, "/api/admin/cooldowns/")
		h.cooldownMgr.Clear(key)
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/api/admin/usage" && r.Method == http.MethodGet:
		h.listUsage(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AdminHandler) listCooldowns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cooldowns": h.cooldownMgr.GetAll(),
	})
}

func (h *AdminHandler) listUsage(w http.ResponseWriter, r *http.Request) {
	if h.usageRepo == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"records": []interface{}{}})
		return
	}
	records, err := h.usageRepo.List(500, 0)
	if err != nil {
		http.Error(w, `{"error":"failed to list usage"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}
