package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
)

func newSupplierService(t *testing.T, db *gorm.DB) *service.SupplierService {
	t.Helper()
	return service.NewSupplierService(repository.NewSupplierRepository(db), nil, zap.NewNop())
}

func TestSupplierService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := newSupplierService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	t.Run("defaults to active", func(t *testing.T) {
		supplier, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			LegalName: "Alfa Serviços Ltda",
			TaxID:     "12.345.678/0001-90",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SupplierStatusActive, supplier.Status)
		assert.NotEmpty(t, supplier.RegisteredAt)
	})

	t.Run("rejects a duplicate tax id regardless of formatting", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			LegalName: "Alfa Filial Ltda",
			TaxID:     "12345678000190",
		})
		assert.ErrorIs(t, err, service.ErrSupplierTaxIDExists)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			LegalName: "Beta Engenharia Ltda",
			Status:    domain.SupplierStatus("suspended"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestSupplierService_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newSupplierService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	supplier, err := svc.Create(ctx, &domain.CreateSupplierRequest{
		LegalName: "Alfa Serviços Ltda",
	})
	require.NoError(t, err)

	t.Run("update keeps status when the request omits it", func(t *testing.T) {
		updated, err := svc.Update(ctx, supplier.ID, &domain.UpdateSupplierRequest{
			LegalName: "Alfa Serviços e Comércio Ltda",
			Email:     "contato@alfa.com.br",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alfa Serviços e Comércio Ltda", updated.LegalName)
		assert.Equal(t, domain.SupplierStatusActive, updated.Status)
	})

	t.Run("update keeps its own tax id but rejects another supplier's", func(t *testing.T) {
		first, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			LegalName: "Delta Transportes Ltda",
			TaxID:     "11.222.333/0001-44",
		})
		require.NoError(t, err)
		second, err := svc.Create(ctx, &domain.CreateSupplierRequest{
			LegalName: "Gama Comércio Ltda",
			TaxID:     "98.765.432/0001-10",
		})
		require.NoError(t, err)

		// Re-submitting the supplier's own tax id is not a conflict.
		_, err = svc.Update(ctx, second.ID, &domain.UpdateSupplierRequest{
			LegalName: "Gama Comércio Ltda",
			TaxID:     "98765432000110",
		})
		require.NoError(t, err)

		_, err = svc.Update(ctx, second.ID, &domain.UpdateSupplierRequest{
			LegalName: "Gama Comércio Ltda",
			TaxID:     first.TaxID,
		})
		assert.ErrorIs(t, err, service.ErrSupplierTaxIDExists)
	})

	t.Run("update can deactivate", func(t *testing.T) {
		updated, err := svc.Update(ctx, supplier.ID, &domain.UpdateSupplierRequest{
			LegalName: "Alfa Serviços e Comércio Ltda",
			Status:    domain.SupplierStatusInactive,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SupplierStatusInactive, updated.Status)
	})

	t.Run("delete leaves invoices untouched", func(t *testing.T) {
		invoiceSvc := newInvoiceService(t, db)
		invoice := createTestInvoice(t, invoiceSvc, ctx)

		require.NoError(t, svc.Delete(ctx, supplier.ID))

		_, err := svc.GetByID(ctx, supplier.ID)
		assert.ErrorIs(t, err, service.ErrSupplierNotFound)

		// Invoices keep the supplier name they were recorded with.
		kept, err := invoiceSvc.GetByID(ctx, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alfa Serviços Ltda", kept.SupplierName)
	})

	t.Run("unknown supplier", func(t *testing.T) {
		_, err := svc.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrSupplierNotFound)
	})
}

func TestSupplierService_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newSupplierService(t, db)
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	_, err := svc.Create(ctx, &domain.CreateSupplierRequest{LegalName: "Alfa Serviços Ltda", TaxID: "12.345.678/0001-90"})
	require.NoError(t, err)
	inactive, err := svc.Create(ctx, &domain.CreateSupplierRequest{LegalName: "Beta Engenharia Ltda"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, inactive.ID, &domain.UpdateSupplierRequest{
		LegalName: "Beta Engenharia Ltda",
		Status:    domain.SupplierStatusInactive,
	})
	require.NoError(t, err)

	t.Run("status filter", func(t *testing.T) {
		active := domain.SupplierStatusActive
		result, err := svc.List(ctx, 1, 20, &repository.SupplierFilters{Status: &active}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})

	t.Run("search matches legal name", func(t *testing.T) {
		result, err := svc.List(ctx, 1, 20, &repository.SupplierFilters{Search: "beta"}, repository.DefaultSortConfig())
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
	})
}
