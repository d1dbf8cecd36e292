package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// ImportBatchRepository handles import batch data access operations
type ImportBatchRepository struct {
	db *gorm.DB
}

// NewImportBatchRepository creates a new import batch repository instance
func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

// Create records a completed import run
func (r *ImportBatchRepository) Create(ctx context.Context, batch *domain.ImportBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// GetByID retrieves an import batch by its ID
func (r *ImportBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns a paginated list of import batches, newest first
func (r *ImportBatchRepository) List(ctx context.Context, page, pageSize int) ([]domain.ImportBatch, int64, error) {
	var batches []domain.ImportBatch
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.ImportBatch{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&batches).Error

	return batches, total, err
}
