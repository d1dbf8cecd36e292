package triage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prefvista/fiscal-api/internal/domain"
)

func unpaidDueIn(days int, reference time.Time) *domain.Invoice {
	return &domain.Invoice{
		Status:  domain.InvoiceStatusUnpaid,
		DueDate: reference.AddDate(0, 0, days),
	}
}

func TestDaysUntilDue(t *testing.T) {
	ref := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysUntilDue(ref, ref))
	assert.Equal(t, 1, DaysUntilDue(ref.AddDate(0, 0, 1), ref))
	assert.Equal(t, -1, DaysUntilDue(ref.AddDate(0, 0, -1), ref))
	assert.Equal(t, 15, DaysUntilDue(ref.AddDate(0, 0, 15), ref))
}

func TestDaysUntilDueIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)
	lateEvening := time.Date(2026, 3, 10, 23, 45, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysUntilDue(due, lateEvening))
	assert.Equal(t, 1, DaysUntilDue(due, earlyMorning))
}

func TestDaysUntilDueIgnoresLocation(t *testing.T) {
	// Due dates are stored as UTC midnights; the reference is wall-clock
	// time in whatever zone the server runs in.
	due := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	west := time.FixedZone("UTC-3", -3*60*60)
	east := time.FixedZone("UTC+3", 3*60*60)

	assert.Equal(t, 5, DaysUntilDue(due, time.Date(2026, 9, 9, 10, 0, 0, 0, west)))
	assert.Equal(t, 5, DaysUntilDue(due, time.Date(2026, 9, 9, 10, 0, 0, 0, east)))
	assert.Equal(t, 5, DaysUntilDue(due, time.Date(2026, 9, 9, 23, 59, 0, 0, west)))
	assert.Equal(t, 5, DaysUntilDue(due, time.Date(2026, 9, 9, 0, 1, 0, 0, east)))

	inv := &domain.Invoice{Status: domain.InvoiceStatusUnpaid, DueDate: due}
	assert.Equal(t, domain.BucketWarning, Classify(inv, time.Date(2026, 9, 9, 10, 0, 0, 0, west)))
	assert.Equal(t, domain.BucketWarning, Classify(inv, time.Date(2026, 9, 9, 10, 0, 0, 0, east)))
}

func TestClassifyBuckets(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		days int
		want domain.UrgencyBucket
	}{
		{"overdue yesterday", -1, domain.BucketOverdue},
		{"overdue last month", -30, domain.BucketOverdue},
		{"due today", 0, domain.BucketCritical},
		{"due in one day", 1, domain.BucketCritical},
		{"due in three days", 3, domain.BucketCritical},
		{"due in four days falls through", 4, domain.BucketNone},
		{"due in five days", 5, domain.BucketWarning},
		{"due in six days falls through", 6, domain.BucketNone},
		{"due in fourteen days falls through", 14, domain.BucketNone},
		{"due in fifteen days", 15, domain.BucketPlanning},
		{"due in sixteen days falls through", 16, domain.BucketNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(unpaidDueIn(tc.days, ref), ref))
		})
	}
}

func TestClassifySettledInvoicesAreNeverSurfaced(t *testing.T) {
	ref := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	paid := unpaidDueIn(-10, ref)
	paid.Status = domain.InvoiceStatusPaid
	assert.Equal(t, domain.BucketNone, Classify(paid, ref))

	cancelled := unpaidDueIn(0, ref)
	cancelled.Status = domain.InvoiceStatusCancelled
	assert.Equal(t, domain.BucketNone, Classify(cancelled, ref))
}

func TestGroupPartitionsAndPreservesOrder(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	overdue := unpaidDueIn(-2, ref)
	overdue.InvoiceNumber = "NF-1"
	critical := unpaidDueIn(2, ref)
	critical.InvoiceNumber = "NF-2"
	warning := unpaidDueIn(5, ref)
	warning.InvoiceNumber = "NF-3"
	planning := unpaidDueIn(15, ref)
	planning.InvoiceNumber = "NF-4"
	quiet := unpaidDueIn(8, ref)
	quiet.InvoiceNumber = "NF-5"

	g := Group([]domain.Invoice{*overdue, *critical, *warning, *planning, *quiet}, ref)

	if assert.Len(t, g.Urgent, 2) {
		assert.Equal(t, "NF-1", g.Urgent[0].InvoiceNumber)
		assert.Equal(t, "NF-2", g.Urgent[1].InvoiceNumber)
	}
	if assert.Len(t, g.Warning, 1) {
		assert.Equal(t, "NF-3", g.Warning[0].InvoiceNumber)
	}
	if assert.Len(t, g.Planning, 1) {
		assert.Equal(t, "NF-4", g.Planning[0].InvoiceNumber)
	}
	assert.Equal(t, 4, g.PendingCount())
}

func TestCountOverdue(t *testing.T) {
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	paidLate := unpaidDueIn(-5, ref)
	paidLate.Status = domain.InvoiceStatusPaid

	invoices := []domain.Invoice{
		*unpaidDueIn(-1, ref),
		*unpaidDueIn(-40, ref),
		*unpaidDueIn(0, ref),
		*paidLate,
	}

	assert.Equal(t, 2, CountOverdue(invoices, ref))
}
