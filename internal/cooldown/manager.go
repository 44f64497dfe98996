// Package cooldown implements the gateway's fast-fail window over a
// credential after repeated failures (§4.7). State is held in memory and
// optionally mirrored to a sqlite repository so it survives a restart.
package cooldown

import (
	"sync"
	"time"

	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/logging"
	"github.com/kiro-gateway/gateway/internal/repository"
)

// CooldownReason is a local alias of domain.CooldownReason so policy lookups
// don't need to import domain in every call site.
type CooldownReason = domain.CooldownReason

const (
	ReasonAuth      = domain.CooldownReasonAuth
	ReasonRateLimit = domain.CooldownReasonRateLimit
	ReasonUpstream  = domain.CooldownReasonUpstream
	ReasonUnknown   = domain.CooldownReasonUnknown
)

// Manager tracks active cooldowns and the consecutive-failure counts that
// feed each reason's Policy.
type Manager struct {
	mu         sync.RWMutex
	cooldowns  map[string]*domain.Cooldown // credential key -> state
	policies   map[CooldownReason]Policy
	repository repository.CooldownRepository
}

// NewManager builds a Manager with the given policy configuration.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cooldowns: make(map[string]*domain.Cooldown),
		policies:  DefaultPolicies(cfg),
	}
}

// SetRepository attaches a sqlite-backed repository for persistence. A nil
// repository (the default) keeps cooldown state in-memory only.
func (m *Manager) SetRepository(repo repository.CooldownRepository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repository = repo
}

// LoadFromDatabase populates in-memory state from the repository at startup.
func (m *Manager) LoadFromDatabase() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.repository == nil {
		return nil
	}
	rows, err := m.repository.GetAll()
	if err != nil {
		return err
	}
	m.cooldowns = make(map[string]*domain.Cooldown, len(rows))
	for _, cd := range rows {
		m.cooldowns[cd.CredentialKey] = cd
	}
	logging.Infof("Cooldown", "loaded %d cooldowns from database", len(rows))
	return nil
}

// RecordFailure increments the failure count for credentialKey under reason
// and applies that reason's policy, returning the new cooldown end time.
func (m *Manager) RecordFailure(credentialKey string, reason CooldownReason) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	cd, ok := m.cooldowns[credentialKey]
	failureCount := 1
	if ok && cd.Reason == reason {
		failureCount = cd.FailureCount + 1
	}

	policy, ok := m.policies[reason]
	if !ok {
		policy = &FixedDurationPolicy{Duration: time.Minute}
		logging.Warnf("Cooldown", "no policy for reason=%s, using default 1-minute cooldown", reason)
	}

	until := time.Now().Add(policy.CalculateCooldown(failureCount))
	m.setLocked(credentialKey, reason, until, failureCount)

	logging.Infof("Cooldown", "credential=%s: cooldown until %s (reason=%s, failureCount=%d)",
		redactKey(credentialKey), until.Format(time.RFC3339), reason, failureCount)
	return until
}

// RecordSuccess clears any active cooldown and resets the failure count for
// credentialKey.
func (m *Manager) RecordSuccess(credentialKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cooldowns, credentialKey)
	if m.repository != nil {
		if err := m.repository.Delete(credentialKey); err != nil {
			logging.Warnf("Cooldown", "failed to delete cooldown for %s: %v", redactKey(credentialKey), err)
		}
	}
}

func (m *Manager) setLocked(credentialKey string, reason CooldownReason, until time.Time, failureCount int) {
	cd := &domain.Cooldown{
		CredentialKey: credentialKey,
		Reason:        reason,
		Until:         until,
		FailureCount:  failureCount,
		UpdatedAt:     time.Now(),
	}
	m.cooldowns[credentialKey] = cd
	if m.repository != nil {
		if err := m.repository.Upsert(cd); err != nil {
			logging.Warnf("Cooldown", "failed to persist cooldown for %s: %v", redactKey(credentialKey), err)
		}
	}
}

// IsInCooldown reports whether credentialKey currently fast-fails requests.
func (m *Manager) IsInCooldown(credentialKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cd, ok := m.cooldowns[credentialKey]
	return ok && time.Now().Before(cd.Until)
}

// GetAll returns every currently active cooldown, for the admin surface.
func (m *Manager) GetAll() []*domain.Cooldown {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	out := make([]*domain.Cooldown, 0, len(m.cooldowns))
	for _, cd := range m.cooldowns {
		if now.Before(cd.Until) {
			out = append(out, cd)
		}
	}
	return out
}

// Clear removes the cooldown for credentialKey (admin DELETE endpoint).
func (m *Manager) Clear(credentialKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cooldowns, credentialKey)
	if m.repository != nil {
		if err := m.repository.Delete(credentialKey); err != nil {
			logging.Warnf("Cooldown", "failed to delete cooldown for %s: %v", redactKey(credentialKey), err)
		}
	}
}

// CleanupExpired drops expired entries from memory and (if configured) the
// repository. Intended to run on a periodic ticker from cmd/gateway.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, cd := range m.cooldowns {
		if now.After(cd.Until) {
			delete(m.cooldowns, key)
		}
	}
	if m.repository != nil {
		if err := m.repository.DeleteExpired(); err != nil {
			logging.Warnf("Cooldown", "failed to delete expired cooldowns: %v", err)
		}
	}
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
