package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// SupplierFilters defines filter options for supplier listing
type SupplierFilters struct {
	Search string
	Status *domain.SupplierStatus
}

var supplierSortableFields = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"legalName":    "legal_name",
	"tradeName":    "trade_name",
	"taxId":        "tax_id",
	"status":       "status",
	"registeredAt": "registered_at",
}

// SupplierRepository handles supplier data access operations
type SupplierRepository struct {
	db *gorm.DB
}

// NewSupplierRepository creates a new supplier repository instance
func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier in the database
func (r *SupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// CreateBatch inserts suppliers one by one. Like invoice import, this is
// deliberately not transactional.
func (r *SupplierRepository) CreateBatch(ctx context.Context, suppliers []domain.Supplier) ([]domain.Supplier, error) {
	persisted := make([]domain.Supplier, 0, len(suppliers))
	for i := range suppliers {
		if err := r.db.WithContext(ctx).Create(&suppliers[i]).Error; err != nil {
			return persisted, err
		}
		persisted = append(persisted, suppliers[i])
	}
	return persisted, nil
}

// GetByID retrieves a supplier by its ID
func (r *SupplierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Update updates an existing supplier in the database
func (r *SupplierRepository) Update(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Save(supplier).Error
}

// Delete removes a supplier
func (r *SupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Supplier{}, "id = ?", id).Error
}

// ListAll returns the full supplier registry. The import reconciler needs
// every tax identifier, so no pagination here.
func (r *SupplierRepository) ListAll(ctx context.Context) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	err := r.db.WithContext(ctx).Order("legal_name ASC").Find(&suppliers).Error
	return suppliers, err
}

// ListWithSortConfig returns a paginated list of suppliers with filter and sort options
func (r *SupplierRepository) ListWithSortConfig(ctx context.Context, page, pageSize int, filters *SupplierFilters, sort SortConfig) ([]domain.Supplier, int64, error) {
	var suppliers []domain.Supplier
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Supplier{})

	if filters != nil {
		if filters.Search != "" {
			searchPattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where(
				"LOWER(legal_name) LIKE ? OR LOWER(trade_name) LIKE ? OR LOWER(tax_id) LIKE ?",
				searchPattern, searchPattern, searchPattern,
			)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, supplierSortableFields, "legal_name")

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order(orderClause).Find(&suppliers).Error

	return suppliers, total, err
}

// Count returns the total count of active suppliers
func (r *SupplierRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Supplier{}).
		Where("status = ?", domain.SupplierStatusActive).
		Count(&count).Error
	return count, err
}

// ListModifiedSince returns suppliers touched after the given time, used by
// the mirror catch-up sync.
func (r *SupplierRepository) ListModifiedSince(ctx context.Context, since time.Time) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	err := r.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("updated_at ASC").
		Find(&suppliers).Error
	return suppliers, err
}
