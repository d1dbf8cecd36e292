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
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/database"
	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newInvoiceService(t *testing.T, db *gorm.DB) *service.InvoiceService {
	t.Helper()
	return service.NewInvoiceService(repository.NewInvoiceRepository(db), nil, zap.NewNop())
}

func testContext(role domain.UserRole, name string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: name,
		Email:       "user@example.com",
		Role:        role,
	})
}

func createTestInvoice(t *testing.T, svc *service.InvoiceService, ctx context.Context) *domain.InvoiceDTO {
	t.Helper()

	invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
		BudgetUnit:    "Secretaria de Saúde",
		SupplierName:  "Alfa Serviços Ltda",
		InvoiceNumber: "NF-1001",
		Amount:        decimal.NewFromFloat(1500.50),
		DueDate:       time.Now().AddDate(0, 0, 10).Format("2006-01-02"),
	})
	require.NoError(t, err)
	return invoice
}

func TestInvoiceService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := newInvoiceService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	t.Run("new invoices start unpaid with one history entry", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		assert.Equal(t, domain.InvoiceStatusUnpaid, invoice.Status)
		assert.Nil(t, invoice.PaymentDate)
		require.Len(t, invoice.History, 1)
		assert.Equal(t, "Nota fiscal cadastrada", invoice.History[0].Description)
		assert.Equal(t, "Maria Souza", invoice.History[0].ActorName)
	})

	t.Run("rejects malformed due date", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			BudgetUnit:    "Secretaria de Saúde",
			SupplierName:  "Alfa Serviços Ltda",
			InvoiceNumber: "NF-1002",
			Amount:        decimal.NewFromInt(100),
			DueDate:       "10/05/2026",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
			BudgetUnit:    "Secretaria de Saúde",
			SupplierName:  "Alfa Serviços Ltda",
			InvoiceNumber: "NF-1003",
			Amount:        decimal.NewFromInt(-10),
			DueDate:       "2026-09-10",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestInvoiceService_StatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	svc := newInvoiceService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	t.Run("mark paid sets payment date and appends history", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		paid, err := svc.MarkPaid(ctx, invoice.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
		require.NotNil(t, paid.PaymentDate)
		require.Len(t, paid.History, 2)
		assert.Equal(t, "Pagamento registrado", paid.History[1].Description)
	})

	t.Run("mark paid twice fails", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		_, err := svc.MarkPaid(ctx, invoice.ID, nil)
		require.NoError(t, err)
		_, err = svc.MarkPaid(ctx, invoice.ID, nil)
		assert.ErrorIs(t, err, service.ErrInvoiceAlreadyPaid)
	})

	t.Run("mark unpaid clears payment date", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		_, err := svc.MarkPaid(ctx, invoice.ID, nil)
		require.NoError(t, err)

		reverted, err := svc.MarkUnpaid(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusUnpaid, reverted.Status)
		assert.Nil(t, reverted.PaymentDate)
		require.Len(t, reverted.History, 3)
		assert.Equal(t, "Pagamento estornado", reverted.History[2].Description)
	})

	t.Run("mark unpaid on an unpaid invoice fails", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		_, err := svc.MarkUnpaid(ctx, invoice.ID)
		assert.ErrorIs(t, err, service.ErrInvoiceNotPaid)
	})

	t.Run("cancel clears payment date and blocks further changes", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)

		_, err := svc.MarkPaid(ctx, invoice.ID, nil)
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, cancelled.Status)
		assert.Nil(t, cancelled.PaymentDate)

		_, err = svc.MarkPaid(ctx, invoice.ID, nil)
		assert.ErrorIs(t, err, service.ErrInvoiceCancelled)
		_, err = svc.MarkUnpaid(ctx, invoice.ID)
		assert.ErrorIs(t, err, service.ErrInvoiceCancelled)
		_, err = svc.Cancel(ctx, invoice.ID)
		assert.ErrorIs(t, err, service.ErrInvoiceCancelled)
	})

	t.Run("explicit payment date is kept", func(t *testing.T) {
		invoice := createTestInvoice(t, svc, ctx)
		when := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

		paid, err := svc.MarkPaid(ctx, invoice.ID, &when)
		require.NoError(t, err)
		require.NotNil(t, paid.PaymentDate)
		assert.Equal(t, "2026-03-15", *paid.PaymentDate)
	})

	t.Run("unknown invoice returns not found", func(t *testing.T) {
		_, err := svc.MarkPaid(ctx, uuid.New(), nil)
		assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
	})
}

func TestInvoiceService_HistoryIsAppendOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := newInvoiceService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	invoice := createTestInvoice(t, svc, ctx)

	_, err := svc.MarkPaid(ctx, invoice.ID, nil)
	require.NoError(t, err)
	_, err = svc.MarkUnpaid(ctx, invoice.ID)
	require.NoError(t, err)
	_, err = svc.Update(ctx, invoice.ID, &domain.UpdateInvoiceRequest{
		BudgetUnit:    "Secretaria de Educação",
		SupplierName:  "Alfa Serviços Ltda",
		InvoiceNumber: "NF-1001",
		Amount:        decimal.NewFromInt(2000),
		DueDate:       time.Now().AddDate(0, 0, 20).Format("2006-01-02"),
	})
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, invoice.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	// Oldest first, one entry per state change
	assert.Equal(t, "Nota fiscal cadastrada", history[0].Description)
	assert.Equal(t, "Pagamento registrado", history[1].Description)
	assert.Equal(t, "Pagamento estornado", history[2].Description)
	assert.Equal(t, "Nota fiscal editada", history[3].Description)
}

func TestInvoiceService_BulkDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newInvoiceService(t, db)
	operatorCtx := testContext(domain.RoleOperator, "Maria Souza")
	adminCtx := testContext(domain.RoleAdmin, "João Lima")

	first := createTestInvoice(t, svc, operatorCtx)
	second := createTestInvoice(t, svc, operatorCtx)

	t.Run("non-admin is rejected", func(t *testing.T) {
		_, err := svc.BulkDelete(operatorCtx, []uuid.UUID{first.ID})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("missing user context is rejected", func(t *testing.T) {
		_, err := svc.BulkDelete(context.Background(), []uuid.UUID{first.ID})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("admin deletes and gets the row count", func(t *testing.T) {
		deleted, err := svc.BulkDelete(adminCtx, []uuid.UUID{first.ID, second.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		_, err = svc.GetByID(adminCtx, first.ID)
		assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
	})
}

func TestInvoiceService_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newInvoiceService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	invoice := createTestInvoice(t, svc, ctx)
	_, err := svc.MarkPaid(ctx, invoice.ID, nil)
	require.NoError(t, err)
	createTestInvoice(t, svc, ctx)

	t.Run("status filter", func(t *testing.T) {
		paid := domain.InvoiceStatusPaid
		result, err := svc.List(ctx, 1, 20, &repository.InvoiceFilters{Status: &paid}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("pagination metadata", func(t *testing.T) {
		result, err := svc.List(ctx, 1, 1, nil, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
		assert.Equal(t, 2, result.TotalPages)
		assert.Equal(t, 1, result.PageSize)
	})
}
