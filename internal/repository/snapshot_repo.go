package repository

import (
	"context"

	"github.com/goalpost/feedsync/internal/domain"
	"gorm.io/gorm"
)

// SnapshotRepository handles the append-only article snapshot records.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert persists one snapshot.
func (r *SnapshotRepository) Insert(ctx context.Context, snapshot *domain.Snapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// ExistsByLink checks whether an article with the given canonical link was
// already ingested. The link is the natural dedup key; identical text under
// two different links counts as two articles.
func (r *SnapshotRepository) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Snapshot{}).
		Where("link = ?", link).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByFeed retrieves snapshots for one feed source, newest first.
func (r *SnapshotRepository) ListByFeed(ctx context.Context, feedID string, limit int) ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	if err := r.db.WithContext(ctx).
		Where("feed_id = ?", feedID).
		Order("published_at DESC").
		Limit(limit).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
