package sqlite

import (
	"time"

	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/repository"
	"gorm.io/gorm/clause"
)

type CooldownRepository struct {
	db *DB
}

func NewCooldownRepository(db *DB) repository.CooldownRepository {
	return &CooldownRepository{db: db}
}

func (r *CooldownRepository) GetAll() ([]*domain.Cooldown, error) {
	var rows []cooldownModel
	if err := r.db.gorm.Where("until > ?", time.Now()).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Cooldown, len(rows))
	for i, m := range rows {
		out[i] = toDomainCooldown(&m)
	}
	return out, nil
}

func (r *CooldownRepository) Upsert(cd *domain.Cooldown) error {
	model := &cooldownModel{
		CredentialKey: cd.CredentialKey,
		Reason:        string(cd.Reason),
		Until:         cd.Until,
		FailureCount:  cd.FailureCount,
		UpdatedAt:     time.Now(),
	}
	err := r.db.gorm.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "credential_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"reason":        model.Reason,
			"until":         model.Until,
			"failure_count": model.FailureCount,
			"updated_at":    model.UpdatedAt,
		}),
	}).Create(model).Error
	if err != nil {
		return err
	}
	cd.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *CooldownRepository) Delete(credentialKey string) error {
	return r.db.gorm.Where("credential_key = ?", credentialKey).Delete(&cooldownModel{}).Error
}

func (r *CooldownRepository) DeleteExpired() error {
	return r.db.gorm.Where("until <= ?", time.Now()).Delete(&cooldownModel{}).Error
}

func toDomainCooldown(m *cooldownModel) *domain.Cooldown {
	return &domain.Cooldown{
		ID:            m.ID,
		CredentialKey: m.CredentialKey,
		Reason:        domain.CooldownReason(m.Reason),
		Until:         m.Until,
		FailureCount:  m.FailureCount,
		UpdatedAt:     m.UpdatedAt,
	}
}
