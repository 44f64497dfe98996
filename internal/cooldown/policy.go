package cooldown

import "time"

// Policy turns a consecutive-failure count into a cooldown duration.
type Policy interface {
	CalculateCooldown(failureCount int) time.Duration
}

// FixedDurationPolicy always returns the same duration, regardless of
// failure count (used for auth failures, §4.7).
type FixedDurationPolicy struct {
	Duration time.Duration
}

func (p *FixedDurationPolicy) CalculateCooldown(int) time.Duration {
	return p.Duration
}

// ExponentialBackoffPolicy doubles from Base on each consecutive failure,
// capped at Max.
type ExponentialBackoffPolicy struct {
	Base time.Duration
	Max  time.Duration
}

func (p *ExponentialBackoffPolicy) CalculateCooldown(failureCount int) time.Duration {
	if failureCount < 1 {
		failureCount = 1
	}
	d := p.Base
	for i := 1; i < failureCount; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}

// Config tunes the three reasons' base durations; everything else (doubling,
// caps) is fixed per §4.7.
type Config struct {
	AuthSeconds      int
	RateLimitSeconds int
	UpstreamSeconds  int
}

// DefaultPolicies builds the reason->policy table per §4.7: auth is a fixed
// 60s window (a bad credential doesn't heal by waiting longer), rate_limit
// and upstream back off exponentially with different bases and caps.
func DefaultPolicies(cfg Config) map[CooldownReason]Policy {
	auth := cfg.AuthSeconds
	if auth <= 0 {
		auth = 60
	}
	rateLimit := cfg.RateLimitSeconds
	if rateLimit <= 0 {
		rateLimit = 5
	}
	upstream := cfg.UpstreamSeconds
	if upstream <= 0 {
		upstream = 2
	}

	return map[CooldownReason]Policy{
		ReasonAuth:      &FixedDurationPolicy{Duration: time.Duration(auth) * time.Second},
		ReasonRateLimit: &ExponentialBackoffPolicy{Base: time.Duration(rateLimit) * time.Second, Max: 5 * time.Minute},
		ReasonUpstream:  &ExponentialBackoffPolicy{Base: time.Duration(upstream) * time.Second, Max: 2 * time.Minute},
		ReasonUnknown:   &FixedDurationPolicy{Duration: time.Minute},
	}
}
