package domain

import "time"

// ClientType identifies which of the three wire dialects a request arrived in.
type ClientType string

const (
	ClientTypeOpenAI    ClientType = "openai"
	ClientTypeAnthropic ClientType = "anthropic"
	ClientTypeGemini    ClientType = "gemini"
)

// Credential is the CM's persisted state: a four-tuple of refresh token,
// cached access token, its expiry, and the profile/region needed to reach
// the upstream. Never logged in full.
type Credential struct {
	RefreshToken string
	AccessToken  string
	ExpiresAt    time.Time
	ProfileArn   string
	Region       string
}

// CooldownReason classifies why a credential was put into cooldown.
type CooldownReason string

const (
	CooldownReasonAuth      CooldownReason = "auth"
	CooldownReasonRateLimit CooldownReason = "rate_limit"
	CooldownReasonUpstream  CooldownReason = "upstream"
	CooldownReasonUnknown   CooldownReason = "unknown"
)

// Cooldown is one active fast-fail window for a credential key.
type Cooldown struct {
	ID            uint64
	CredentialKey string
	Reason        CooldownReason
	Until         time.Time
	FailureCount  int
	UpdatedAt     time.Time
}

// UsageRecord is the per-request token/cost accounting entry TP produces at
// stream finalization (§4.8).
type UsageRecord struct {
	ID               uint64
	RequestID        string
	ClientType       ClientType
	Model            string
	MappedModel      string
	InputTokens      uint64
	OutputTokens     uint64
	CacheReadTokens  uint64
	CacheWriteTokens uint64
	CostMicros       uint64
	StartedAt        time.Time
	FinishedAt       time.Time
}
