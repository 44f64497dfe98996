package cooldown

import (
	"testing"
	"time"
)

func TestExponentialBackoffPolicyMonotonic(t *testing.T) {
	policy := &ExponentialBackoffPolicy{Base: time.Second, Max: 30 * time.Second}

	var prev time.Duration
	for failureCount := 1; failureCount <= 10; failureCount++ {
		d := policy.CalculateCooldown(failureCount)
		if d < prev {
			t.Fatalf("failureCount=%d: cooldown %s shorter than previous %s", failureCount, d, prev)
		}
		if d > policy.Max {
			t.Fatalf("failureCount=%d: cooldown %s exceeds Max %s", failureCount, d, policy.Max)
		}
		prev = d
	}
	if prev != policy.Max {
		t.Errorf("expected cooldown to reach Max after enough failures, got %s", prev)
	}
}

func TestFixedDurationPolicyIgnoresFailureCount(t *testing.T) {
	policy := &FixedDurationPolicy{Duration: 60 * time.Second}
	for _, fc := range []int{1, 5, 100} {
		if got := policy.CalculateCooldown(fc); got != policy.Duration {
			t.Errorf("failureCount=%d: got %s, want %s", fc, got, policy.Duration)
		}
	}
}

func TestManagerRecordFailureThenSuccess(t *testing.T) {
	m := NewManager(Config{AuthSeconds: 60, RateLimitSeconds: 5, UpstreamSeconds: 2})
	key := "refresh-token-a"

	if m.IsInCooldown(key) {
		t.Fatal("fresh manager should not report a cooldown")
	}

	m.RecordFailure(key, ReasonAuth)
	if !m.IsInCooldown(key) {
		t.Fatal("expected key to be in cooldown after RecordFailure")
	}

	m.RecordSuccess(key)
	if m.IsInCooldown(key) {
		t.Fatal("expected RecordSuccess to clear the cooldown")
	}
}

func TestManagerRecordFailureEscalatesOnRepeatedReason(t *testing.T) {
	m := NewManager(Config{AuthSeconds: 60, RateLimitSeconds: 1, UpstreamSeconds: 2})
	key := "refresh-token-b"

	first := m.RecordFailure(key, ReasonRateLimit)
	second := m.RecordFailure(key, ReasonRateLimit)
	if !second.After(first) {
		t.Errorf("expected second consecutive rate_limit failure to extend the cooldown further: first=%s second=%s", first, second)
	}
}

func TestManagerGetAllExcludesExpired(t *testing.T) {
	m := NewManager(Config{})
	m.setLocked("expired", ReasonUpstream, time.Now().Add(-time.Second), 1)
	m.setLocked("active", ReasonUpstream, time.Now().Add(time.Minute), 1)

	all := m.GetAll()
	if len(all) != 1 || all[0].CredentialKey != "active" {
		t.Errorf("expected only the active cooldown, got %+v", all)
	}
}

func TestManagerCleanupExpired(t *testing.T) {
	m := NewManager(Config{})
	m.setLocked("expired", ReasonUpstream, time.Now().Add(-time.Second), 1)
	m.setLocked("active", ReasonUpstream, time.Now().Add(time.Minute), 1)

	m.CleanupExpired()

	if m.IsInCooldown("expired") {
		t.Error("expected expired cooldown to be removed")
	}
	if !m.IsInCooldown("active") {
		t.Error("expected active cooldown to survive cleanup")
	}
}
