package repository

import "github.com/kiro-gateway/gateway/internal/domain"

// CooldownRepository persists the cooldown manager's in-memory state so it
// survives a restart (§4.7 "Cooldown").
type CooldownRepository interface {
	GetAll() ([]*domain.Cooldown, error)
	Upsert(cd *domain.Cooldown) error
	Delete(credentialKey string) error
	DeleteExpired() error
}

// UsageRecordRepository persists the per-request accounting entries TP
// produces at stream finalization (§4.8 "Usage accounting").
type UsageRecordRepository interface {
	Create(rec *domain.UsageRecord) error
	List(limit, offset int) ([]*domain.UsageRecord, error)
}
