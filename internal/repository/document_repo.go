package repository

import (
	"context"

	"github.com/goalpost/feedsync/internal/domain"
	"gorm.io/gorm"
)

// DocumentRepository handles display document records.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Insert persists one display document.
func (r *DocumentRepository) Insert(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// ListByBoard retrieves documents for a destination board, newest first.
func (r *DocumentRepository) ListByBoard(ctx context.Context, boardID string, limit, offset int) ([]domain.Document, error) {
	var docs []domain.Document
	if err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("published_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
