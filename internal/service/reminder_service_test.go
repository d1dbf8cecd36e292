package service_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
)

func createInvoiceDueIn(t *testing.T, svc *service.InvoiceService, days int, number string) *domain.InvoiceDTO {
	t.Helper()

	ctx := testContext(domain.RoleOperator, "Maria Souza")
	invoice, err := svc.Create(ctx, &domain.CreateInvoiceRequest{
		BudgetUnit:    "Secretaria de Obras",
		SupplierName:  "Beta Engenharia Ltda",
		InvoiceNumber: number,
		Amount:        decimal.NewFromInt(500),
		DueDate:       time.Now().AddDate(0, 0, days).Format("2006-01-02"),
	})
	require.NoError(t, err)
	return invoice
}

func TestReminderService_Grouping(t *testing.T) {
	db := setupTestDB(t)
	invoiceSvc := newInvoiceService(t, db)
	reminderSvc := service.NewReminderService(repository.NewInvoiceRepository(db), zap.NewNop())
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	createInvoiceDueIn(t, invoiceSvc, -1, "NF-2001") // overdue
	createInvoiceDueIn(t, invoiceSvc, 1, "NF-2002")  // due in three days or less
	createInvoiceDueIn(t, invoiceSvc, 5, "NF-2003")  // warning window
	createInvoiceDueIn(t, invoiceSvc, 15, "NF-2004") // planning window
	createInvoiceDueIn(t, invoiceSvc, 4, "NF-2005")  // no window

	// A paid invoice never surfaces, even when overdue.
	paidOverdue := createInvoiceDueIn(t, invoiceSvc, -10, "NF-2006")
	_, err := invoiceSvc.MarkPaid(ctx, paidOverdue.ID, nil)
	require.NoError(t, err)

	groups, err := reminderSvc.GetReminderGroups(ctx)
	require.NoError(t, err)

	assert.Equal(t, time.Now().Format("2006-01-02"), groups.ReferenceDate)
	assert.Len(t, groups.Urgent, 2)
	assert.Len(t, groups.Warning, 1)
	assert.Len(t, groups.Planning, 1)
	assert.Equal(t, "NF-2003", groups.Warning[0].InvoiceNumber)
	assert.Equal(t, "NF-2004", groups.Planning[0].InvoiceNumber)
	for _, inv := range groups.Urgent {
		assert.NotEqual(t, "NF-2006", inv.InvoiceNumber)
	}
}

func TestReminderService_NotificationSummaryAgreesWithGroups(t *testing.T) {
	db := setupTestDB(t)
	invoiceSvc := newInvoiceService(t, db)
	reminderSvc := service.NewReminderService(repository.NewInvoiceRepository(db), zap.NewNop())
	ctx := testContext(domain.RoleOperator, "Maria Souza")

	createInvoiceDueIn(t, invoiceSvc, -2, "NF-2101")
	createInvoiceDueIn(t, invoiceSvc, 0, "NF-2102")
	createInvoiceDueIn(t, invoiceSvc, 5, "NF-2103")
	createInvoiceDueIn(t, invoiceSvc, 30, "NF-2104")

	groups, err := reminderSvc.GetReminderGroups(ctx)
	require.NoError(t, err)
	summary, err := reminderSvc.GetNotificationSummary(ctx)
	require.NoError(t, err)

	assert.Len(t, summary.Urgent, len(groups.Urgent))
	assert.Len(t, summary.Warning, len(groups.Warning))
	assert.Len(t, summary.Planning, len(groups.Planning))
	assert.Equal(t, len(summary.Urgent)+len(summary.Warning)+len(summary.Planning), summary.PendingCount)
	assert.Equal(t, 3, summary.PendingCount)
}

func TestDashboardService_Metrics(t *testing.T) {
	db := setupTestDB(t)
	invoiceSvc := newInvoiceService(t, db)
	supplierRepo := repository.NewSupplierRepository(db)
	dashboardSvc := service.NewDashboardService(repository.NewInvoiceRepository(db), supplierRepo, zap.NewNop())
	supplierSvc := service.NewSupplierService(supplierRepo, nil, zap.NewNop())
	ctx := testContext(domain.RoleAdmin, "João Lima")

	createInvoiceDueIn(t, invoiceSvc, -3, "NF-2201")
	createInvoiceDueIn(t, invoiceSvc, 10, "NF-2202")
	paid := createInvoiceDueIn(t, invoiceSvc, 10, "NF-2203")
	_, err := invoiceSvc.MarkPaid(ctx, paid.ID, nil)
	require.NoError(t, err)
	cancelled := createInvoiceDueIn(t, invoiceSvc, 10, "NF-2204")
	_, err = invoiceSvc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	_, err = supplierSvc.Create(ctx, &domain.CreateSupplierRequest{LegalName: "Beta Engenharia Ltda"})
	require.NoError(t, err)

	metrics, err := dashboardSvc.GetMetrics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), metrics.TotalInvoices)
	assert.Equal(t, int64(1), metrics.PaidCount)
	assert.Equal(t, int64(2), metrics.UnpaidCount)
	assert.Equal(t, int64(1), metrics.CancelledCount)
	assert.Equal(t, 1, metrics.OverdueCount)
	assert.Equal(t, int64(1), metrics.SupplierCount)

	// Cancelled invoices are excluded from the monetary totals.
	assert.True(t, metrics.TotalAmount.Equal(decimal.NewFromInt(1500)),
		"total amount: %s", metrics.TotalAmount)
	assert.True(t, metrics.PaidAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, metrics.UnpaidAmount.Equal(decimal.NewFromInt(1000)))
}
