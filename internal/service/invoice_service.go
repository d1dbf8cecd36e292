package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/mapper"
	"github.com/prefvista/fiscal-api/internal/mirror"
	"github.com/prefvista/fiscal-api/internal/repository"
)

const dateLayout = "2006-01-02"

// InvoiceService handles business logic for invoices. Status changes keep
// the payment-date invariant: paid implies a payment date, unpaid and
// cancelled imply none. Every state change appends one history entry.
type InvoiceService struct {
	invoiceRepo *repository.InvoiceRepository
	mirror      *mirror.Client
	logger      *zap.Logger
}

// NewInvoiceService creates a new invoice service instance
func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	mirrorClient *mirror.Client,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		mirror:      mirrorClient,
		logger:      logger,
	}
}

// syncMirror pushes the invoice to the mirror, best effort. Mirror failures
// are logged and swallowed; the primary write already succeeded.
func (s *InvoiceService) syncMirror(ctx context.Context, invoice *domain.Invoice) {
	if !s.mirror.IsEnabled() {
		return
	}
	if err := s.mirror.UpsertInvoice(ctx, invoice); err != nil {
		s.logger.Warn("mirror invoice sync failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *InvoiceService) historyEntry(ctx context.Context, invoiceID uuid.UUID, description string) *domain.InvoiceHistoryEntry {
	return &domain.InvoiceHistoryEntry{
		InvoiceID:   invoiceID,
		Description: description,
		ActorName:   auth.ActorName(ctx),
		RecordedAt:  time.Now().UTC(),
	}
}

// Create creates a new invoice from manual entry
func (s *InvoiceService) Create(ctx context.Context, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: dueDate must be YYYY-MM-DD", ErrInvalidInput)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	invoice := &domain.Invoice{
		BudgetUnit:       req.BudgetUnit,
		SupplierName:     req.SupplierName,
		InvoiceNumber:    req.InvoiceNumber,
		CommitmentNumber: req.CommitmentNumber,
		Amount:           req.Amount,
		DueDate:          dueDate,
		Status:           domain.InvoiceStatusUnpaid,
		History: []domain.InvoiceHistoryEntry{{
			Description: "Nota fiscal cadastrada",
			ActorName:   auth.ActorName(ctx),
			RecordedAt:  time.Now().UTC(),
		}},
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.syncMirror(ctx, invoice)

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// GetByID retrieves an invoice with its history
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// List returns a paginated invoice list
func (s *InvoiceService) List(ctx context.Context, page, pageSize int, filters *repository.InvoiceFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	invoices, total, err := s.invoiceRepo.ListWithSortConfig(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	return paginated(mapper.InvoicesToDTOs(invoices), total, page, pageSize), nil
}

// Update applies a manual edit. Status and payment date are not touched
// here; those go through the dedicated status operations.
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateInvoiceRequest) (*domain.InvoiceDTO, error) {
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		return nil, fmt.Errorf("%w: dueDate must be YYYY-MM-DD", ErrInvalidInput)
	}
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	invoice.BudgetUnit = req.BudgetUnit
	invoice.SupplierName = req.SupplierName
	invoice.InvoiceNumber = req.InvoiceNumber
	invoice.CommitmentNumber = req.CommitmentNumber
	invoice.Amount = req.Amount
	invoice.DueDate = dueDate

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	entry := s.historyEntry(ctx, invoice.ID, "Nota fiscal editada")
	if err := s.invoiceRepo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry", zap.Error(err))
	} else {
		invoice.History = append(invoice.History, *entry)
	}

	s.syncMirror(ctx, invoice)

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// MarkPaid marks an invoice as paid as of the given date, defaulting to
// today. Cancelled invoices cannot be paid.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID, paymentDate *time.Time) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == domain.InvoiceStatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	if invoice.Status == domain.InvoiceStatusPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	when := time.Now().UTC()
	if paymentDate != nil {
		when = *paymentDate
	}

	invoice.Status = domain.InvoiceStatusPaid
	invoice.PaymentDate = &when

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	entry := s.historyEntry(ctx, invoice.ID, "Pagamento registrado")
	if err := s.invoiceRepo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry", zap.Error(err))
	} else {
		invoice.History = append(invoice.History, *entry)
	}

	s.syncMirror(ctx, invoice)

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// MarkUnpaid reverts a paid invoice to unpaid and clears the payment date
func (s *InvoiceService) MarkUnpaid(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == domain.InvoiceStatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	if invoice.Status != domain.InvoiceStatusPaid {
		return nil, ErrInvoiceNotPaid
	}

	invoice.Status = domain.InvoiceStatusUnpaid
	invoice.PaymentDate = nil

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	entry := s.historyEntry(ctx, invoice.ID, "Pagamento estornado")
	if err := s.invoiceRepo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry", zap.Error(err))
	} else {
		invoice.History = append(invoice.History, *entry)
	}

	s.syncMirror(ctx, invoice)

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// Cancel marks an invoice as cancelled. Cancelled invoices drop out of
// financial totals and urgency triage; any payment date is cleared.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == domain.InvoiceStatusCancelled {
		return nil, ErrInvoiceCancelled
	}

	invoice.Status = domain.InvoiceStatusCancelled
	invoice.PaymentDate = nil

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	entry := s.historyEntry(ctx, invoice.ID, "Nota fiscal cancelada")
	if err := s.invoiceRepo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("failed to append history entry", zap.Error(err))
	} else {
		invoice.History = append(invoice.History, *entry)
	}

	s.syncMirror(ctx, invoice)

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return &dto, nil
}

// GetHistory returns the history log of an invoice, oldest first
func (s *InvoiceService) GetHistory(ctx context.Context, id uuid.UUID) ([]domain.InvoiceHistoryDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	dto := mapper.InvoiceToDTOWithHistory(invoice)
	return dto.History, nil
}

// Delete removes a single invoice
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.invoiceRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	if s.mirror.IsEnabled() {
		if err := s.mirror.DeleteInvoice(ctx, id.String()); err != nil {
			s.logger.Warn("mirror invoice delete failed",
				zap.String("invoice_id", id.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// BulkDelete removes multiple invoices. Administrator only.
func (s *InvoiceService) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}
	if !userCtx.IsAdmin() {
		return 0, ErrPermissionDenied
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no invoice ids provided", ErrInvalidInput)
	}

	deleted, err := s.invoiceRepo.DeleteBatch(ctx, ids)
	if err != nil {
		return deleted, fmt.Errorf("failed to bulk delete invoices: %w", err)
	}

	if s.mirror.IsEnabled() {
		for _, id := range ids {
			if err := s.mirror.DeleteInvoice(ctx, id.String()); err != nil {
				s.logger.Warn("mirror invoice delete failed",
					zap.String("invoice_id", id.String()),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("bulk invoice delete",
		zap.Int("requested", len(ids)),
		zap.Int64("deleted", deleted),
		zap.String("actor", userCtx.DisplayName),
	)

	return deleted, nil
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
