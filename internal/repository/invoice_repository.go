package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// InvoiceFilters defines filter options for invoice listing
type InvoiceFilters struct {
	Search     string
	Status     *domain.InvoiceStatus
	BudgetUnit string
	DueBefore  *time.Time
	DueAfter   *time.Time
}

// invoiceSortableFields maps API field names to database column names.
// Only fields in this map can be used for sorting (whitelist approach).
var invoiceSortableFields = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"dueDate":       "due_date",
	"paymentDate":   "payment_date",
	"amount":        "amount",
	"status":        "status",
	"budgetUnit":    "budget_unit",
	"supplierName":  "supplier_name",
	"invoiceNumber": "invoice_number",
}

// InvoiceRepository handles invoice data access operations
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository instance
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create creates a new invoice together with its history entries
func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

// CreateBatch inserts invoices one by one, collecting the ones that were
// persisted. Import persistence is deliberately not transactional; a failed
// row does not roll back the rows before it.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []domain.Invoice) ([]domain.Invoice, error) {
	persisted := make([]domain.Invoice, 0, len(invoices))
	for i := range invoices {
		if err := r.db.WithContext(ctx).Create(&invoices[i]).Error; err != nil {
			return persisted, err
		}
		persisted = append(persisted, invoices[i])
	}
	return persisted, nil
}

// GetByID retrieves an invoice with its history, oldest entry first
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC")
		}).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Update updates an existing invoice
func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

// Delete removes an invoice. History rows follow via the cascade constraint.
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Invoice{}, "id = ?", id).Error
}

// DeleteBatch removes multiple invoices by id and reports how many rows went
func (r *InvoiceRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.Invoice{}, "id IN ?", ids)
	return result.RowsAffected, result.Error
}

// AppendHistory adds one history entry to an invoice
func (r *InvoiceRepository) AppendHistory(ctx context.Context, entry *domain.InvoiceHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListWithSortConfig returns a paginated list of invoices with filter and sort options
func (r *InvoiceRepository) ListWithSortConfig(ctx context.Context, page, pageSize int, filters *InvoiceFilters, sort SortConfig) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})

	if filters != nil {
		if filters.Search != "" {
			searchPattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where(
				"LOWER(supplier_name) LIKE ? OR LOWER(invoice_number) LIKE ? OR LOWER(commitment_number) LIKE ?",
				searchPattern, searchPattern, searchPattern,
			)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.BudgetUnit != "" {
			query = query.Where("LOWER(budget_unit) = LOWER(?)", filters.BudgetUnit)
		}
		if filters.DueBefore != nil {
			query = query.Where("due_date <= ?", *filters.DueBefore)
		}
		if filters.DueAfter != nil {
			query = query.Where("due_date >= ?", *filters.DueAfter)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, invoiceSortableFields, "due_date")

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order(orderClause).Find(&invoices).Error

	return invoices, total, err
}

// ListByStatus returns all invoices with the given status ordered by due date.
// Used by triage consumers, which need the full unpaid set rather than a page.
func (r *InvoiceRepository) ListByStatus(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// InvoiceTotals holds the aggregate amounts and counts for the dashboard
type InvoiceTotals struct {
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
	UnpaidAmount   decimal.Decimal
	TotalInvoices  int64
	PaidCount      int64
	UnpaidCount    int64
	CancelledCount int64
}

// GetTotals aggregates invoice amounts and counts. Cancelled invoices count
// toward TotalInvoices and CancelledCount but are excluded from every
// monetary sum.
func (r *InvoiceRepository) GetTotals(ctx context.Context) (*InvoiceTotals, error) {
	totals := &InvoiceTotals{
		TotalAmount:  decimal.Zero,
		PaidAmount:   decimal.Zero,
		UnpaidAmount: decimal.Zero,
	}

	type statusRow struct {
		Status domain.InvoiceStatus
		Count  int64
		Sum    decimal.Decimal
	}
	var rows []statusRow
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount), 0) as sum").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		totals.TotalInvoices += row.Count
		switch row.Status {
		case domain.InvoiceStatusPaid:
			totals.PaidCount = row.Count
			totals.PaidAmount = row.Sum
		case domain.InvoiceStatusUnpaid:
			totals.UnpaidCount = row.Count
			totals.UnpaidAmount = row.Sum
		case domain.InvoiceStatusCancelled:
			totals.CancelledCount = row.Count
		}
	}
	totals.TotalAmount = totals.PaidAmount.Add(totals.UnpaidAmount)

	return totals, nil
}

// ListModifiedSince returns invoices touched after the given time, used by
// the mirror catch-up sync.
func (r *InvoiceRepository) ListModifiedSince(ctx context.Context, since time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("updated_at ASC").
		Find(&invoices).Error
	return invoices, err
}
