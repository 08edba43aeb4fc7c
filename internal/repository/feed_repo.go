package repository

import (
	"context"
	"time"

	"github.com/goalpost/feedsync/internal/domain"
	"gorm.io/gorm"
)

// FeedRepository handles feed source configuration records.
type FeedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// Create inserts a new feed source.
func (r *FeedRepository) Create(ctx context.Context, feed *domain.FeedSource) error {
	return r.db.WithContext(ctx).Create(feed).Error
}

// GetByID retrieves a feed source by its ID.
func (r *FeedRepository) GetByID(ctx context.Context, id string) (*domain.FeedSource, error) {
	var feed domain.FeedSource
	if err := r.db.WithContext(ctx).First(&feed, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

// List retrieves all feed sources, newest first.
func (r *FeedRepository) List(ctx context.Context) ([]domain.FeedSource, error) {
	var feeds []domain.FeedSource
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// ListActive retrieves all active feed sources.
func (r *FeedRepository) ListActive(ctx context.Context) ([]domain.FeedSource, error) {
	var feeds []domain.FeedSource
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

// SetActive toggles a feed source's active flag. Returns
// gorm.ErrRecordNotFound when no such feed exists.
func (r *FeedRepository) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FeedSource{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a feed source by ID.
func (r *FeedRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.FeedSource{}, "id = ?", id).Error
}

// MarkFetched stamps a successful fetch: the error counter is reset and
// the last error cleared regardless of how many individual items failed.
func (r *FeedRepository) MarkFetched(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.FeedSource{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_fetched_at": now,
			"error_count":     0,
			"last_error":      "",
			"last_error_at":   nil,
		}).Error
}

// RecordError increments the feed's error counter and stores the message.
func (r *FeedRepository) RecordError(ctx context.Context, id, message string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.FeedSource{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"error_count":   gorm.Expr("error_count + 1"),
			"last_error":    message,
			"last_error_at": now,
		}).Error
}
