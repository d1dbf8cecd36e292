package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/mapper"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/triage"
)

// ReminderService produces the due-date views: the reminder panel, the
// notification summary and the data for the e-mail digest. All three come
// from the same grouping pass so they can never disagree.
type ReminderService struct {
	invoiceRepo *repository.InvoiceRepository
	logger      *zap.Logger
}

// NewReminderService creates a new reminder service instance
func NewReminderService(invoiceRepo *repository.InvoiceRepository, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// groups loads the unpaid set and partitions it as of the reference time
func (s *ReminderService) groups(ctx context.Context, reference time.Time) (triage.Groups, error) {
	unpaid, err := s.invoiceRepo.ListByStatus(ctx, domain.InvoiceStatusUnpaid)
	if err != nil {
		return triage.Groups{}, fmt.Errorf("failed to load unpaid invoices: %w", err)
	}
	return triage.Group(unpaid, reference), nil
}

// GetReminderGroups returns the reminder panel view as of now
func (s *ReminderService) GetReminderGroups(ctx context.Context) (*domain.ReminderGroupsDTO, error) {
	now := time.Now()
	g, err := s.groups(ctx, now)
	if err != nil {
		return nil, err
	}

	return &domain.ReminderGroupsDTO{
		ReferenceDate: now.Format("2006-01-02"),
		Urgent:        mapper.InvoicesToDTOs(g.Urgent),
		Warning:       mapper.InvoicesToDTOs(g.Warning),
		Planning:      mapper.InvoicesToDTOs(g.Planning),
	}, nil
}

// GetNotificationSummary returns the bell view. It carries the same groups
// as the reminder panel plus the pending count.
func (s *ReminderService) GetNotificationSummary(ctx context.Context) (*domain.NotificationSummaryDTO, error) {
	now := time.Now()
	g, err := s.groups(ctx, now)
	if err != nil {
		return nil, err
	}

	return &domain.NotificationSummaryDTO{
		ReferenceDate: now.Format("2006-01-02"),
		Urgent:        mapper.InvoicesToDTOs(g.Urgent),
		Warning:       mapper.InvoicesToDTOs(g.Warning),
		Planning:      mapper.InvoicesToDTOs(g.Planning),
		PendingCount:  g.PendingCount(),
	}, nil
}

// GroupsForDigest exposes the raw grouping for the e-mail digest job
func (s *ReminderService) GroupsForDigest(ctx context.Context, reference time.Time) (triage.Groups, error) {
	return s.groups(ctx, reference)
}
