package sqlite

import "time"

// cooldownModel is the GORM row shape for domain.Cooldown, keyed by the
// credential key a cooldown fast-fails requests for.
type cooldownModel struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	CredentialKey string `gorm:"uniqueIndex;not null"`
	Reason        string `gorm:"not null"`
	Until         time.Time
	FailureCount  int
	UpdatedAt     time.Time
}

func (cooldownModel) TableName() string { return "cooldowns" }

// usageRecordModel is the GORM row shape for domain.UsageRecord.
type usageRecordModel struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	RequestID        string `gorm:"index"`
	ClientType       string
	Model            string
	MappedModel      string
	InputTokens      uint64
	OutputTokens     uint64
	CacheReadTokens  uint64
	CacheWriteTokens uint64
	CostMicros       uint64
	StartedAt        time.Time
	FinishedAt       time.Time `gorm:"index"`
}

func (usageRecordModel) TableName() string { return "usage_records" }
