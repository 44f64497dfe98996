package sqlite

import (
	"github.com/kiro-gateway/gateway/internal/domain"
	"github.com/kiro-gateway/gateway/internal/repository"
)

type UsageRecordRepository struct {
	db *DB
}

func NewUsageRecordRepository(db *DB) repository.UsageRecordRepository {
	return &UsageRecordRepository{db: db}
}

func (r *UsageRecordRepository) Create(rec *domain.UsageRecord) error {
	model := &usageRecordModel{
		RequestID:        rec.RequestID,
		ClientType:       string(rec.ClientType),
		Model:            rec.Model,
		MappedModel:      rec.MappedModel,
		InputTokens:      rec.InputTokens,
		OutputTokens:     rec.OutputTokens,
		CacheReadTokens:  rec.CacheReadTokens,
		CacheWriteTokens: rec.CacheWriteTokens,
		CostMicros:       rec.CostMicros,
		StartedAt:        rec.StartedAt,
		FinishedAt:       rec.FinishedAt,
	}
	if err := r.db.gorm.Create(model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	return nil
}

func (r *UsageRecordRepository) List(limit, offset int) ([]*domain.UsageRecord, error) {
	var rows []usageRecordModel
	q := r.db.gorm.Order("finished_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.UsageRecord, len(rows))
	for i, m := range rows {
		out[i] = &domain.UsageRecord{
			ID:               m.ID,
			RequestID:        m.RequestID,
			ClientType:       domain.ClientType(m.ClientType),
			Model:            m.Model,
			MappedModel:      m.MappedModel,
			InputTokens:      m.InputTokens,
			OutputTokens:     m.OutputTokens,
			CacheReadTokens:  m.CacheReadTokens,
			CacheWriteTokens: m.CacheWriteTokens,
			CostMicros:       m.CostMicros,
			StartedAt:        m.StartedAt,
			FinishedAt:       m.FinishedAt,
		}
	}
	return out, nil
}
