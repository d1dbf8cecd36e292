package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/extraction"
	"github.com/prefvista/fiscal-api/internal/importer"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
	"github.com/prefvista/fiscal-api/internal/storage"
)

type stubExtractor struct {
	candidates []importer.Candidate
	err        error
}

func (s *stubExtractor) IsEnabled() bool { return true }

func (s *stubExtractor) Extract(ctx context.Context, payload string) ([]importer.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func newImportService(t *testing.T, db *gorm.DB, extractor service.Extractor) *service.ImportService {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	return service.NewImportService(
		repository.NewInvoiceRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewImportBatchRepository(db),
		extractor,
		store,
		nil,
		zap.NewNop(),
	)
}

func TestImportService_Run(t *testing.T) {
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	t.Run("blank payload", func(t *testing.T) {
		svc := newImportService(t, setupTestDB(t), &stubExtractor{})
		_, err := svc.Run(ctx, &domain.ImportRequest{Payload: "   \n\t"})
		assert.ErrorIs(t, err, service.ErrEmptyPayload)
	})

	t.Run("extractor not configured", func(t *testing.T) {
		svc := newImportService(t, setupTestDB(t), nil)
		_, err := svc.Run(ctx, &domain.ImportRequest{Payload: "NF 123 Alfa Serviços R$ 100,00 10/09/2026"})
		assert.ErrorIs(t, err, extraction.ErrNotConfigured)
	})

	t.Run("nothing recognized in payload", func(t *testing.T) {
		svc := newImportService(t, setupTestDB(t), &stubExtractor{err: extraction.ErrNoCandidates})
		_, err := svc.Run(ctx, &domain.ImportRequest{Payload: "ata da reunião de ontem"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("full pipeline persists invoices, suppliers and the batch record", func(t *testing.T) {
		db := setupTestDB(t)
		dueDate := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
		extractor := &stubExtractor{candidates: []importer.Candidate{
			{
				BudgetUnit:    "Secretaria de Saúde",
				SupplierName:  "Alfa Serviços Ltda",
				InvoiceNumber: "NF-3001",
				Amount:        decimal.RequireFromString("1500.50"),
				DueDate:       &dueDate,
				Supplier:      &importer.SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Serviços Ltda"},
			},
			{
				BudgetUnit:    "Secretaria de Saúde",
				SupplierName:  "Alfa Serviços Ltda",
				InvoiceNumber: "NF-3002",
				Amount:        decimal.RequireFromString("200.00"),
				DueDate:       &dueDate,
				Supplier:      &importer.SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Serviços Ltda"},
			},
			{
				SupplierName:  "Fornecedor Avulso",
				InvoiceNumber: "NF-3003",
				Amount:        decimal.RequireFromString("50.00"),
				DueDate:       &dueDate,
			},
		}}
		svc := newImportService(t, db, extractor)

		result, err := svc.Run(ctx, &domain.ImportRequest{Payload: "três notas da Alfa"})
		require.NoError(t, err)

		assert.Len(t, result.Invoices, 3)
		assert.Len(t, result.NewSuppliers, 1)
		assert.Equal(t, 1, result.SuppliersCreated)
		assert.Equal(t, "Alfa Serviços Ltda", result.NewSuppliers[0].LegalName)

		for _, inv := range result.Invoices {
			assert.Equal(t, domain.InvoiceStatusUnpaid, inv.Status)
		}

		// The batch is recorded with the archived payload path.
		batch, err := repository.NewImportBatchRepository(db).GetByID(ctx, result.BatchID)
		require.NoError(t, err)
		assert.Equal(t, "Maria Souza", batch.ActorName)
		assert.Equal(t, 3, batch.InvoiceCount)
		assert.Equal(t, 1, batch.SuppliersCreated)
		assert.NotEmpty(t, batch.PayloadPath)

		// The persisted rows are queryable through the regular services.
		invoiceSvc := newInvoiceService(t, db)
		listed, err := invoiceSvc.List(ctx, 1, 20, nil, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(3), listed.Total)
	})

	t.Run("a second run against the grown registry creates no suppliers", func(t *testing.T) {
		db := setupTestDB(t)
		extractor := &stubExtractor{candidates: []importer.Candidate{
			{
				InvoiceNumber: "NF-3004",
				Amount:        decimal.RequireFromString("10.00"),
				Supplier:      &importer.SupplierPayload{TaxID: "12345000199", LegalName: "Alfa Serviços Ltda"},
			},
		}}
		svc := newImportService(t, db, extractor)

		first, err := svc.Run(ctx, &domain.ImportRequest{Payload: "primeira remessa"})
		require.NoError(t, err)
		require.Equal(t, 1, first.SuppliersCreated)

		// Same supplier, differently formatted tax id.
		extractor.candidates[0].Supplier.TaxID = "12.345/0001-99"
		second, err := svc.Run(ctx, &domain.ImportRequest{Payload: "segunda remessa"})
		require.NoError(t, err)
		assert.Equal(t, 0, second.SuppliersCreated)
		assert.Empty(t, second.NewSuppliers)
		assert.Len(t, second.Invoices, 1)
	})
}

func TestImportService_Batches(t *testing.T) {
	db := setupTestDB(t)
	svc := newImportService(t, db, &stubExtractor{})
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	batch := &domain.ImportBatch{
		ActorName:        "Maria Souza",
		Source:           domain.ImportSourceText,
		InvoiceCount:     3,
		SuppliersCreated: 1,
	}
	require.NoError(t, repository.NewImportBatchRepository(db).Create(ctx, batch))

	t.Run("list returns recorded batches", func(t *testing.T) {
		result, err := svc.ListBatches(ctx, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)

		batches, ok := result.Data.([]domain.ImportBatchDTO)
		require.True(t, ok)
		require.Len(t, batches, 1)
		assert.Equal(t, "Maria Souza", batches[0].ActorName)
		assert.Equal(t, 3, batches[0].InvoiceCount)
	})

	t.Run("get by id", func(t *testing.T) {
		dto, err := svc.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ImportSourceText, dto.Source)
		assert.Equal(t, 1, dto.SuppliersCreated)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := svc.GetBatch(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrImportBatchNotFound)
	})
}
