// Package importer contains the batch import reconciler. It turns freshly
// extracted invoice candidates into persistable records and decides which
// supplier mentions need a new registry entry. The reconciler performs no
// I/O; persistence is the caller's job.
package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// Default values substituted for missing candidate fields.
const (
	DefaultBudgetUnit     = "Unidade não informada"
	DefaultSupplierName   = "Fornecedor não informado"
	DefaultDocumentNumber = "S/N"
	DefaultActorName      = "Sistema"

	importHistoryDescription = "Importado via lote"
)

// SupplierPayload is the partial supplier record an extraction may attach to
// a candidate. TaxID is required for the payload to be considered at all.
type SupplierPayload struct {
	TaxID     string
	LegalName string
	TradeName string
	Email     string
	Phone     string
}

// Candidate is one freshly extracted invoice. Empty string fields, a zero
// amount and a nil due date are treated as missing and replaced by defaults.
type Candidate struct {
	BudgetUnit       string
	SupplierName     string
	InvoiceNumber    string
	CommitmentNumber string
	Amount           decimal.Decimal
	DueDate          *time.Time
	Supplier         *SupplierPayload
}

// Result carries the reconciler output for the caller to persist and report.
type Result struct {
	Invoices         []domain.Invoice
	NewSuppliers     []domain.Supplier
	SuppliersCreated int
}

// DigitsOnly strips everything but digits from a tax identifier so
// "12.345/0001-99" and "12345000199" compare equal.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Reconcile normalizes the candidate batch and matches supplier mentions
// against the registry. Invoice order follows the input order. Existing
// suppliers are never modified; a mention matching one is simply dropped.
//
// Note the two dedup keys are intentionally different: within a batch,
// supplier mentions are deduplicated by the raw tax identifier string as
// extracted, while the registry match compares digits-only forms. Unifying
// them would change which mentions survive in mixed-format batches.
func Reconcile(candidates []Candidate, registry []domain.Supplier, actorName string, now time.Time) Result {
	if strings.TrimSpace(actorName) == "" {
		actorName = DefaultActorName
	}

	invoices := make([]domain.Invoice, 0, len(candidates))
	seenRawTaxIDs := make(map[string]bool)
	var mentions []SupplierPayload

	for _, c := range candidates {
		dueDate := now
		if c.DueDate != nil {
			dueDate = *c.DueDate
		}
		invoices = append(invoices, domain.Invoice{
			BudgetUnit:       fallback(c.BudgetUnit, DefaultBudgetUnit),
			SupplierName:     fallback(c.SupplierName, DefaultSupplierName),
			InvoiceNumber:    fallback(c.InvoiceNumber, DefaultDocumentNumber),
			CommitmentNumber: fallback(c.CommitmentNumber, DefaultDocumentNumber),
			Amount:           c.Amount,
			DueDate:          dueDate,
			PaymentDate:      nil,
			Status:           domain.InvoiceStatusUnpaid,
			History: []domain.InvoiceHistoryEntry{{
				Description: importHistoryDescription,
				ActorName:   actorName,
				RecordedAt:  now,
			}},
		})

		if c.Supplier == nil || strings.TrimSpace(c.Supplier.TaxID) == "" {
			continue
		}
		if seenRawTaxIDs[c.Supplier.TaxID] {
			continue
		}
		seenRawTaxIDs[c.Supplier.TaxID] = true
		mentions = append(mentions, *c.Supplier)
	}

	known := make(map[string]bool, len(registry))
	for _, s := range registry {
		if key := DigitsOnly(s.TaxID); key != "" {
			known[key] = true
		}
	}

	var created []domain.Supplier
	for _, m := range mentions {
		key := DigitsOnly(m.TaxID)
		if key == "" || known[key] {
			continue
		}
		known[key] = true
		created = append(created, domain.Supplier{
			LegalName:    fallback(m.LegalName, m.TradeName, DefaultSupplierName),
			TradeName:    m.TradeName,
			TaxID:        m.TaxID,
			Email:        m.Email,
			Phone:        m.Phone,
			Status:       domain.SupplierStatusActive,
			RegisteredAt: now,
		})
	}

	return Result{
		Invoices:         invoices,
		NewSuppliers:     created,
		SuppliersCreated: len(created),
	}
}
