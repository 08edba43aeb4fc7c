package repository

import (
	"context"

	"github.com/goalpost/feedsync/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles the batch run audit records.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert persists one run record.
func (r *RunRepository) Insert(ctx context.Context, record *domain.RunRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListRecent retrieves the most recent run records.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	var records []domain.RunRecord
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
