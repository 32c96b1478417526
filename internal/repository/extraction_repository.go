package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clause-extractor/internal/app"
	"clause-extractor/internal/model"
)

// ExtractionRepository implements app.ExtractionStore on MySQL.
type ExtractionRepository struct {
	db *gorm.DB
}

func NewExtractionRepository(db *gorm.DB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// Create inserts a new extraction. A colliding document_id surfaces as
// app.ErrDuplicateDocumentID, never a silent overwrite.
func (r *ExtractionRepository) Create(ctx context.Context, extraction *model.Extraction) error {
	if err := r.db.WithContext(ctx).Create(extraction).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", app.ErrDuplicateDocumentID, extraction.DocumentID)
		}
		return fmt.Errorf("create extraction failed: %w", err)
	}
	return nil
}

func (r *ExtractionRepository) GetByDocumentID(ctx context.Context, documentID string) (*model.Extraction, error) {
	var extraction model.Extraction
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).First(&extraction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get extraction failed: %w", err)
	}
	return &extraction, nil
}

// List returns one window of extractions ordered by created_at descending,
// plus the total count irrespective of the window.
func (r *ExtractionRepository) List(ctx context.Context, offset, limit int) ([]model.Extraction, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Extraction{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count extractions failed: %w", err)
	}

	var extractions []model.Extraction
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&extractions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list extractions failed: %w", err)
	}
	return extractions, total, nil
}
