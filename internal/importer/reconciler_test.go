package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefvista/fiscal-api/internal/domain"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func TestReconcileAppliesDefaults(t *testing.T) {
	res := Reconcile([]Candidate{{}}, nil, "", testNow)

	require.Len(t, res.Invoices, 1)
	inv := res.Invoices[0]
	assert.Equal(t, DefaultBudgetUnit, inv.BudgetUnit)
	assert.Equal(t, DefaultSupplierName, inv.SupplierName)
	assert.Equal(t, DefaultDocumentNumber, inv.InvoiceNumber)
	assert.Equal(t, DefaultDocumentNumber, inv.CommitmentNumber)
	assert.True(t, inv.Amount.IsZero())
	assert.Equal(t, testNow, inv.DueDate)
	assert.Nil(t, inv.PaymentDate)
	assert.Equal(t, domain.InvoiceStatusUnpaid, inv.Status)

	require.Len(t, inv.History, 1)
	assert.Equal(t, DefaultActorName, inv.History[0].ActorName)
	assert.Equal(t, testNow, inv.History[0].RecordedAt)
}

func TestReconcilePreservesOrderAndFields(t *testing.T) {
	due := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	candidates := []Candidate{
		{InvoiceNumber: "NF-100", Amount: decimal.NewFromFloat(1250.50), DueDate: &due},
		{InvoiceNumber: "NF-101"},
		{InvoiceNumber: "NF-102"},
	}

	res := Reconcile(candidates, nil, "Maria Souza", testNow)

	require.Len(t, res.Invoices, 3)
	assert.Equal(t, "NF-100", res.Invoices[0].InvoiceNumber)
	assert.Equal(t, "NF-101", res.Invoices[1].InvoiceNumber)
	assert.Equal(t, "NF-102", res.Invoices[2].InvoiceNumber)
	assert.Equal(t, due, res.Invoices[0].DueDate)
	assert.True(t, res.Invoices[0].Amount.Equal(decimal.NewFromFloat(1250.50)))
	for _, inv := range res.Invoices {
		require.Len(t, inv.History, 1)
		assert.Equal(t, "Maria Souza", inv.History[0].ActorName)
	}
}

func TestReconcileRawTaxIDBatchDedup(t *testing.T) {
	candidates := []Candidate{
		{Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Ltda"}},
		{Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa duplicada"}},
	}

	res := Reconcile(candidates, nil, "", testNow)

	require.Len(t, res.NewSuppliers, 1)
	assert.Equal(t, "Alfa Ltda", res.NewSuppliers[0].LegalName)
	assert.Equal(t, 1, res.SuppliersCreated)
}

func TestReconcileRegistryMatchIsDigitsOnly(t *testing.T) {
	registry := []domain.Supplier{{LegalName: "Alfa Ltda", TaxID: "12345000199"}}
	candidates := []Candidate{
		{Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa com outro nome"}},
	}

	res := Reconcile(candidates, registry, "", testNow)

	assert.Empty(t, res.NewSuppliers)
	assert.Equal(t, 0, res.SuppliersCreated)
}

func TestReconcileMixedFormatBatchCreatesOnce(t *testing.T) {
	// Raw dedup does not collapse these two, but the running registry copy
	// catches the second once digit-normalized.
	candidates := []Candidate{
		{Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Ltda"}},
		{Supplier: &SupplierPayload{TaxID: "12345000199", LegalName: "Alfa sem pontuação"}},
	}

	res := Reconcile(candidates, nil, "", testNow)

	require.Len(t, res.NewSuppliers, 1)
	assert.Equal(t, "Alfa Ltda", res.NewSuppliers[0].LegalName)
}

func TestReconcileIdempotentAgainstUpdatedRegistry(t *testing.T) {
	candidates := []Candidate{
		{Supplier: &SupplierPayload{TaxID: "98.765/0001-00", LegalName: "Beta Serviços"}},
		{Supplier: &SupplierPayload{TaxID: "11.222/0001-33", TradeName: "Gama"}},
	}

	first := Reconcile(candidates, nil, "", testNow)
	require.Len(t, first.NewSuppliers, 2)

	second := Reconcile(candidates, first.NewSuppliers, "", testNow)
	assert.Empty(t, second.NewSuppliers)
	assert.Equal(t, 0, second.SuppliersCreated)
	assert.Len(t, second.Invoices, 2)
}

func TestReconcileSupplierNameFallbackChain(t *testing.T) {
	candidates := []Candidate{
		{Supplier: &SupplierPayload{TaxID: "1", TradeName: "Só fantasia"}},
		{Supplier: &SupplierPayload{TaxID: "2"}},
	}

	res := Reconcile(candidates, nil, "", testNow)

	require.Len(t, res.NewSuppliers, 2)
	assert.Equal(t, "Só fantasia", res.NewSuppliers[0].LegalName)
	assert.Equal(t, DefaultSupplierName, res.NewSuppliers[1].LegalName)
}

func TestReconcileEndToEndScenario(t *testing.T) {
	candidates := []Candidate{
		{InvoiceNumber: "NF-1", Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Ltda"}},
		{InvoiceNumber: "NF-2", Supplier: &SupplierPayload{TaxID: "12.345/0001-99", LegalName: "Alfa Ltda"}},
		{InvoiceNumber: "NF-3"},
	}

	res := Reconcile(candidates, nil, "Maria Souza", testNow)

	assert.Len(t, res.Invoices, 3)
	require.Len(t, res.NewSuppliers, 1)
	assert.Equal(t, "12.345/0001-99", res.NewSuppliers[0].TaxID)
	assert.Equal(t, domain.SupplierStatusActive, res.NewSuppliers[0].Status)
	assert.Equal(t, 1, res.SuppliersCreated)
}
