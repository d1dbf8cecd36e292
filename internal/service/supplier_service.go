package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/importer"
	"github.com/prefvista/fiscal-api/internal/mapper"
	"github.com/prefvista/fiscal-api/internal/mirror"
	"github.com/prefvista/fiscal-api/internal/repository"
)

// SupplierService handles business logic for the supplier registry
type SupplierService struct {
	supplierRepo *repository.SupplierRepository
	mirror       *mirror.Client
	logger       *zap.Logger
}

// NewSupplierService creates a new supplier service instance
func NewSupplierService(
	supplierRepo *repository.SupplierRepository,
	mirrorClient *mirror.Client,
	logger *zap.Logger,
) *SupplierService {
	return &SupplierService{
		supplierRepo: supplierRepo,
		mirror:       mirrorClient,
		logger:       logger,
	}
}

func (s *SupplierService) syncMirror(ctx context.Context, supplier *domain.Supplier) {
	if !s.mirror.IsEnabled() {
		return
	}
	if err := s.mirror.UpsertSupplier(ctx, supplier); err != nil {
		s.logger.Warn("mirror supplier sync failed",
			zap.String("supplier_id", supplier.ID.String()),
			zap.Error(err),
		)
	}
}

// checkTaxIDAvailable rejects a tax id another supplier already carries.
// Tax ids compare digits-only, the same normalization the import
// reconciler matches on. Blank ids are always available.
func (s *SupplierService) checkTaxIDAvailable(ctx context.Context, taxID string, selfID uuid.UUID) error {
	digits := importer.DigitsOnly(taxID)
	if digits == "" {
		return nil
	}

	registry, err := s.supplierRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load supplier registry: %w", err)
	}
	for i := range registry {
		if registry[i].ID == selfID {
			continue
		}
		if importer.DigitsOnly(registry[i].TaxID) == digits {
			return fmt.Errorf("%w: %s", ErrSupplierTaxIDExists, taxID)
		}
	}
	return nil
}

// Create registers a new supplier
func (s *SupplierService) Create(ctx context.Context, req *domain.CreateSupplierRequest) (*domain.SupplierDTO, error) {
	status := req.Status
	if status == "" {
		status = domain.SupplierStatusActive
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid supplier status %q", ErrInvalidInput, req.Status)
	}
	if err := s.checkTaxIDAvailable(ctx, req.TaxID, uuid.Nil); err != nil {
		return nil, err
	}

	supplier := &domain.Supplier{
		LegalName:    req.LegalName,
		TradeName:    req.TradeName,
		TaxID:        req.TaxID,
		Email:        req.Email,
		Phone:        req.Phone,
		Status:       status,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	s.syncMirror(ctx, supplier)

	dto := mapper.SupplierToDTO(supplier)
	return &dto, nil
}

// GetByID retrieves a supplier by ID
func (s *SupplierService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SupplierDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	dto := mapper.SupplierToDTO(supplier)
	return &dto, nil
}

// List returns a paginated supplier list
func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters *repository.SupplierFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	suppliers, total, err := s.supplierRepo.ListWithSortConfig(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	return paginated(mapper.SuppliersToDTOs(suppliers), total, page, pageSize), nil
}

// Update modifies a supplier's registry data
func (s *SupplierService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSupplierRequest) (*domain.SupplierDTO, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}

	if req.Status != "" {
		if !req.Status.IsValid() {
			return nil, fmt.Errorf("%w: invalid supplier status %q", ErrInvalidInput, req.Status)
		}
		supplier.Status = req.Status
	}
	if err := s.checkTaxIDAvailable(ctx, req.TaxID, supplier.ID); err != nil {
		return nil, err
	}

	supplier.LegalName = req.LegalName
	supplier.TradeName = req.TradeName
	supplier.TaxID = req.TaxID
	supplier.Email = req.Email
	supplier.Phone = req.Phone

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}

	s.syncMirror(ctx, supplier)

	dto := mapper.SupplierToDTO(supplier)
	return &dto, nil
}

// Delete removes a supplier from the registry. Invoices keep the supplier
// name they were recorded with; nothing cascades.
func (s *SupplierService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.supplierRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSupplierNotFound
		}
		return fmt.Errorf("failed to get supplier: %w", err)
	}

	if err := s.supplierRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	return nil
}
