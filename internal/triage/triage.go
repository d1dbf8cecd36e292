// Package triage classifies invoices by payment urgency. All consumers of
// due-date buckets (reminders, notification summaries, dashboard overdue
// counts) go through this package so the classification stays consistent.
package triage

import (
	"time"

	"github.com/prefvista/fiscal-api/internal/domain"
)

// midnight rebuilds t's calendar day as a UTC midnight. Taking the day in
// t's own location but anchoring the result in one fixed location makes the
// difference of two normalized values an exact multiple of 24 hours, so no
// zone offset between a stored due date and a wall-clock reference can
// shift the day count.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysUntilDue returns the whole-calendar-day difference between the due
// date and the reference date. Both sides are normalized to midnight first,
// so the result does not depend on the time of day or the location of
// either argument. Negative means overdue, zero means due today.
func DaysUntilDue(dueDate, reference time.Time) int {
	due := midnight(dueDate)
	ref := midnight(reference)
	return int(due.Sub(ref).Hours() / 24)
}

// Classify maps an invoice to its urgency bucket as of the reference time.
// Paid and cancelled invoices never demand attention regardless of date.
//
// The reminder horizon deliberately has gaps: an invoice that is 4 days out,
// or between 6 and 14 days out, or more than 15 days out, is not surfaced.
// The warning and planning buckets fire on the exact day only.
func Classify(inv *domain.Invoice, reference time.Time) domain.UrgencyBucket {
	if inv.Status != domain.InvoiceStatusUnpaid {
		return domain.BucketNone
	}
	days := DaysUntilDue(inv.DueDate, reference)
	switch {
	case days < 0:
		return domain.BucketOverdue
	case days <= 3:
		return domain.BucketCritical
	case days == 5:
		return domain.BucketWarning
	case days == 15:
		return domain.BucketPlanning
	default:
		return domain.BucketNone
	}
}

// Groups holds invoices partitioned for the reminder panel. Urgent merges
// overdue and critical since both need action now.
type Groups struct {
	Urgent   []domain.Invoice
	Warning  []domain.Invoice
	Planning []domain.Invoice
}

// Group partitions invoices into reminder groups as of the reference time.
// Input order is preserved within each group. Invoices classified as
// BucketNone are dropped.
func Group(invoices []domain.Invoice, reference time.Time) Groups {
	var g Groups
	for _, inv := range invoices {
		switch Classify(&inv, reference) {
		case domain.BucketOverdue, domain.BucketCritical:
			g.Urgent = append(g.Urgent, inv)
		case domain.BucketWarning:
			g.Warning = append(g.Warning, inv)
		case domain.BucketPlanning:
			g.Planning = append(g.Planning, inv)
		}
	}
	return g
}

// PendingCount is the total number of invoices surfaced across all groups.
func (g Groups) PendingCount() int {
	return len(g.Urgent) + len(g.Warning) + len(g.Planning)
}

// CountOverdue returns how many invoices are past due as of the reference
// time. Only unpaid invoices count.
func CountOverdue(invoices []domain.Invoice, reference time.Time) int {
	n := 0
	for _, inv := range invoices {
		if Classify(&inv, reference) == domain.BucketOverdue {
			n++
		}
	}
	return n
}
