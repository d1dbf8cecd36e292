package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/mirror"
	"github.com/prefvista/fiscal-api/internal/repository"
)

// MirrorSyncJobName is the name of the mirror catch-up sync job
const MirrorSyncJobName = "mirror_sync"

// initialSyncWindow bounds the first catch-up run after a restart
const initialSyncWindow = 24 * time.Hour

// MirrorSyncJob periodically pushes rows modified since the last run to the
// MS SQL mirror. Per-write mirroring is best effort, so this job exists to
// repair the gaps left by transient mirror outages.
type MirrorSyncJob struct {
	invoiceRepo  *repository.InvoiceRepository
	supplierRepo *repository.SupplierRepository
	mirror       *mirror.Client
	logger       *zap.Logger
	timeout      time.Duration

	mu       sync.Mutex
	lastSync time.Time
}

// NewMirrorSyncJob creates a new mirror sync job.
func NewMirrorSyncJob(
	invoiceRepo *repository.InvoiceRepository,
	supplierRepo *repository.SupplierRepository,
	mirrorClient *mirror.Client,
	logger *zap.Logger,
	timeout time.Duration,
) *MirrorSyncJob {
	return &MirrorSyncJob{
		invoiceRepo:  invoiceRepo,
		supplierRepo: supplierRepo,
		mirror:       mirrorClient,
		logger:       logger,
		timeout:      timeout,
	}
}

// Run executes one catch-up pass. The window only advances when the pass
// completes without errors, so failed rows are retried on the next run.
func (j *MirrorSyncJob) Run() {
	if !j.mirror.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.mu.Lock()
	since := j.lastSync
	j.mu.Unlock()
	if since.IsZero() {
		since = time.Now().UTC().Add(-initialSyncWindow)
	}
	runStart := time.Now().UTC()

	start := time.Now()
	synced, failed := 0, 0

	suppliers, err := j.supplierRepo.ListModifiedSince(ctx, since)
	if err != nil {
		j.logger.Error("mirror sync failed to list modified suppliers", zap.Error(err))
		return
	}
	for i := range suppliers {
		if err := j.mirror.UpsertSupplier(ctx, &suppliers[i]); err != nil {
			j.logger.Warn("mirror sync supplier upsert failed",
				zap.String("supplier_id", suppliers[i].ID.String()),
				zap.Error(err),
			)
			failed++
			continue
		}
		synced++
	}

	invoices, err := j.invoiceRepo.ListModifiedSince(ctx, since)
	if err != nil {
		j.logger.Error("mirror sync failed to list modified invoices", zap.Error(err))
		return
	}
	for i := range invoices {
		if err := j.mirror.UpsertInvoice(ctx, &invoices[i]); err != nil {
			j.logger.Warn("mirror sync invoice upsert failed",
				zap.String("invoice_id", invoices[i].ID.String()),
				zap.Error(err),
			)
			failed++
			continue
		}
		synced++
	}

	if failed == 0 {
		j.mu.Lock()
		j.lastSync = runStart
		j.mu.Unlock()
	}

	j.logger.Info("mirror sync completed",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Time("since", since),
		zap.Duration("duration", time.Since(start)),
	)
}
