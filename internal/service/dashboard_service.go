package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/triage"
)

// DashboardService aggregates portal-wide metrics
type DashboardService struct {
	invoiceRepo  *repository.InvoiceRepository
	supplierRepo *repository.SupplierRepository
	logger       *zap.Logger
}

// NewDashboardService creates a new dashboard service instance
func NewDashboardService(
	invoiceRepo *repository.InvoiceRepository,
	supplierRepo *repository.SupplierRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		invoiceRepo:  invoiceRepo,
		supplierRepo: supplierRepo,
		logger:       logger,
	}
}

// GetMetrics returns the dashboard aggregates. Monetary totals exclude
// cancelled invoices; the overdue count uses the same day-based
// classification as the reminder views.
func (s *DashboardService) GetMetrics(ctx context.Context) (*domain.DashboardMetricsDTO, error) {
	totals, err := s.invoiceRepo.GetTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoice totals: %w", err)
	}

	unpaid, err := s.invoiceRepo.ListByStatus(ctx, domain.InvoiceStatusUnpaid)
	if err != nil {
		return nil, fmt.Errorf("failed to load unpaid invoices: %w", err)
	}
	overdue := triage.CountOverdue(unpaid, time.Now())

	supplierCount, err := s.supplierRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count suppliers: %w", err)
	}

	return &domain.DashboardMetricsDTO{
		TotalAmount:    totals.TotalAmount,
		PaidAmount:     totals.PaidAmount,
		UnpaidAmount:   totals.UnpaidAmount,
		TotalInvoices:  totals.TotalInvoices,
		PaidCount:      totals.PaidCount,
		UnpaidCount:    totals.UnpaidCount,
		CancelledCount: totals.CancelledCount,
		OverdueCount:   overdue,
		SupplierCount:  supplierCount,
	}, nil
}
