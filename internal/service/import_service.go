package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/extraction"
	"github.com/prefvista/fiscal-api/internal/importer"
	"github.com/prefvista/fiscal-api/internal/mapper"
	"github.com/prefvista/fiscal-api/internal/mirror"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/storage"
)

// Extractor parses a raw payload into invoice candidates. Satisfied by
// *extraction.Client.
type Extractor interface {
	IsEnabled() bool
	Extract(ctx context.Context, payload string) ([]importer.Candidate, error)
}

// ImportService orchestrates AI-assisted bulk imports: extract candidates
// from the pasted payload, reconcile supplier mentions against the registry,
// persist, and record the batch for auditing.
//
// Persistence is deliberately not transactional. Rows are written one by
// one and a failure mid-batch keeps the rows already written; the result
// reports what actually landed.
type ImportService struct {
	invoiceRepo  *repository.InvoiceRepository
	supplierRepo *repository.SupplierRepository
	batchRepo    *repository.ImportBatchRepository
	extractor    Extractor
	store        storage.Storage
	mirror       *mirror.Client
	logger       *zap.Logger
}

// NewImportService creates a new import service instance
func NewImportService(
	invoiceRepo *repository.InvoiceRepository,
	supplierRepo *repository.SupplierRepository,
	batchRepo *repository.ImportBatchRepository,
	extractor Extractor,
	store storage.Storage,
	mirrorClient *mirror.Client,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		invoiceRepo:  invoiceRepo,
		supplierRepo: supplierRepo,
		batchRepo:    batchRepo,
		extractor:    extractor,
		store:        store,
		mirror:       mirrorClient,
		logger:       logger,
	}
}

// Run executes one import batch for the authenticated user
func (s *ImportService) Run(ctx context.Context, req *domain.ImportRequest) (*domain.ImportResultDTO, error) {
	if strings.TrimSpace(req.Payload) == "" {
		return nil, ErrEmptyPayload
	}
	if s.extractor == nil || !s.extractor.IsEnabled() {
		return nil, extraction.ErrNotConfigured
	}

	source := req.Source
	if source == "" {
		source = domain.ImportSourceText
	}

	candidates, err := s.extractor.Extract(ctx, req.Payload)
	if err != nil {
		if errors.Is(err, extraction.ErrNoCandidates) {
			return nil, fmt.Errorf("%w: no invoices recognized in payload", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to extract invoices: %w", err)
	}

	registry, err := s.supplierRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier registry: %w", err)
	}

	actorName := auth.ActorName(ctx)
	result := importer.Reconcile(candidates, registry, actorName, time.Now().UTC())

	// Suppliers first so invoice rows never reference a supplier that the
	// registry does not know about yet.
	newSuppliers, supplierErr := s.supplierRepo.CreateBatch(ctx, result.NewSuppliers)
	if supplierErr != nil {
		s.logger.Error("supplier persistence stopped mid-batch",
			zap.Int("persisted", len(newSuppliers)),
			zap.Int("expected", len(result.NewSuppliers)),
			zap.Error(supplierErr),
		)
	}

	invoices, invoiceErr := s.invoiceRepo.CreateBatch(ctx, result.Invoices)
	if invoiceErr != nil {
		s.logger.Error("invoice persistence stopped mid-batch",
			zap.Int("persisted", len(invoices)),
			zap.Int("expected", len(result.Invoices)),
			zap.Error(invoiceErr),
		)
	}

	batch := &domain.ImportBatch{
		ActorName:        actorName,
		Source:           source,
		InvoiceCount:     len(invoices),
		SuppliersCreated: len(newSuppliers),
	}
	batch.PayloadPath = s.archivePayload(ctx, req.Payload, source)
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		s.logger.Warn("failed to record import batch", zap.Error(err))
	}

	s.pushToMirror(ctx, invoices, newSuppliers)

	if invoiceErr != nil && len(invoices) == 0 {
		return nil, fmt.Errorf("failed to persist imported invoices: %w", invoiceErr)
	}

	s.logger.Info("import batch completed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("actor", actorName),
		zap.Int("invoices", len(invoices)),
		zap.Int("suppliers_created", len(newSuppliers)),
	)

	return &domain.ImportResultDTO{
		BatchID:          batch.ID,
		Invoices:         mapper.InvoicesToDTOs(invoices),
		NewSuppliers:     mapper.SuppliersToDTOs(newSuppliers),
		SuppliersCreated: len(newSuppliers),
	}, nil
}

// archivePayload stores the raw payload for later inspection. Archiving is
// best effort; an empty path on the batch just means no archive.
func (s *ImportService) archivePayload(ctx context.Context, payload string, source domain.ImportBatchSource) string {
	if s.store == nil {
		return ""
	}

	ext := "txt"
	contentType := "text/plain; charset=utf-8"
	if source == domain.ImportSourceXML {
		ext = "xml"
		contentType = "application/xml"
	}
	filename := fmt.Sprintf("imports/%s.%s", time.Now().UTC().Format("2006-01-02T150405"), ext)

	path, _, err := s.store.Upload(ctx, filename, contentType, strings.NewReader(payload))
	if err != nil {
		s.logger.Warn("failed to archive import payload", zap.Error(err))
		return ""
	}
	return path
}

func (s *ImportService) pushToMirror(ctx context.Context, invoices []domain.Invoice, suppliers []domain.Supplier) {
	if !s.mirror.IsEnabled() {
		return
	}
	for i := range suppliers {
		if err := s.mirror.UpsertSupplier(ctx, &suppliers[i]); err != nil {
			s.logger.Warn("mirror supplier sync failed",
				zap.String("supplier_id", suppliers[i].ID.String()),
				zap.Error(err),
			)
		}
	}
	for i := range invoices {
		if err := s.mirror.UpsertInvoice(ctx, &invoices[i]); err != nil {
			s.logger.Warn("mirror invoice sync failed",
				zap.String("invoice_id", invoices[i].ID.String()),
				zap.Error(err),
			)
		}
	}
}

// ListBatches returns the import audit log, newest first
func (s *ImportService) ListBatches(ctx context.Context, page, pageSize int) (*domain.PaginatedResponse, error) {
	batches, total, err := s.batchRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}

	return paginated(mapper.ImportBatchesToDTOs(batches), total, page, pageSize), nil
}

// GetBatch returns one import batch record
func (s *ImportService) GetBatch(ctx context.Context, id uuid.UUID) (*domain.ImportBatchDTO, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportBatchNotFound
		}
		return nil, fmt.Errorf("failed to get import batch: %w", err)
	}

	dto := mapper.ImportBatchToDTO(batch)
	return &dto, nil
}
