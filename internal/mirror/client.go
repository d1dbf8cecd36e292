// Package mirror provides write-only connectivity to the MS SQL Server
// mirror database. Other municipal systems read invoice and supplier data
// from the mirror; the portal pushes best-effort copies after every write
// to the primary store. A mirror failure never fails the primary write.
package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // MS SQL Server driver
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/domain"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	defaultHealthCheckTimeout = 5 * time.Second
)

// Client manages the mirror connection pool. All methods are nil-safe so
// callers can hold a nil client when the mirror is disabled.
type Client struct {
	db           *sql.DB
	config       *config.MirrorConfig
	logger       *zap.Logger
	queryTimeout time.Duration
}

// NewClient creates a new mirror client. Returns nil (without error) when
// the mirror is disabled or credentials are missing, so the portal keeps
// running on the primary store alone.
func NewClient(cfg *config.MirrorConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Mirror connection disabled")
		return nil, nil
	}

	if cfg.URL == "" || cfg.User == "" || cfg.Password == "" {
		logger.Warn("Mirror enabled but missing credentials, skipping connection",
			zap.Bool("url_present", cfg.URL != ""),
			zap.Bool("user_present", cfg.User != ""),
			zap.Bool("password_present", cfg.Password != ""),
		)
		return nil, nil
	}

	connStr, err := buildConnectionString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	var db *sql.DB
	backoff := defaultInitialBackoff

	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		db, err = sql.Open("sqlserver", connStr)
		if err != nil {
			logger.Warn("Failed to open mirror connection",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

		ctx, cancel := context.WithTimeout(context.Background(), defaultHealthCheckTimeout)
		err = db.PingContext(ctx)
		cancel()

		if err != nil {
			logger.Warn("Mirror ping failed",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			_ = db.Close()
			if attempt < defaultMaxRetries {
				time.Sleep(backoff)
				backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
			}
			continue
		}

		logger.Info("Mirror connection established",
			zap.Int("attempts_taken", attempt),
		)

		return &Client{
			db:           db,
			config:       cfg,
			logger:       logger,
			queryTimeout: cfg.QueryTimeoutDuration(),
		}, nil
	}

	return nil, fmt.Errorf("failed to connect to mirror after %d attempts: %w", defaultMaxRetries, err)
}

// buildConnectionString constructs a SQL Server connection string.
// URL format expected: host:port/database or host:port.
func buildConnectionString(cfg *config.MirrorConfig) (string, error) {
	urlParts := strings.SplitN(cfg.URL, "/", 2)
	hostPort := urlParts[0]
	database := ""
	if len(urlParts) > 1 {
		database = urlParts[1]
	}

	hostParts := strings.SplitN(hostPort, ":", 2)
	host := hostParts[0]
	port := "1433"
	if len(hostParts) > 1 {
		port = hostParts[1]
	}

	query := url.Values{}
	query.Add("encrypt", "true")
	query.Add("TrustServerCertificate", "false")
	query.Add("connection timeout", "30")
	if database != "" {
		query.Add("database", database)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", host, port),
		RawQuery: query.Encode(),
	}

	return u.String(), nil
}

// IsEnabled returns true if the client is initialized and ready for writes
func (c *Client) IsEnabled() bool {
	return c != nil && c.db != nil
}

// Close gracefully closes the mirror connection
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close mirror connection: %w", err)
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, c.queryTimeout)
	}
	return ctx, func() {}
}

// UpsertInvoice pushes one invoice row to the mirror
func (c *Client) UpsertInvoice(ctx context.Context, invoice *domain.Invoice) error {
	if !c.IsEnabled() {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := `
MERGE dbo.portal_invoices AS target
USING (SELECT @p1 AS id) AS source
ON target.id = source.id
WHEN MATCHED THEN UPDATE SET
    budget_unit = @p2, supplier_name = @p3, invoice_number = @p4,
    commitment_number = @p5, amount = @p6, due_date = @p7,
    payment_date = @p8, status = @p9, updated_at = @p10
WHEN NOT MATCHED THEN INSERT
    (id, budget_unit, supplier_name, invoice_number, commitment_number,
     amount, due_date, payment_date, status, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10);`

	var paymentDate interface{}
	if invoice.PaymentDate != nil {
		paymentDate = *invoice.PaymentDate
	}

	_, err := c.db.ExecContext(ctx, query,
		invoice.ID.String(),
		invoice.BudgetUnit,
		invoice.SupplierName,
		invoice.InvoiceNumber,
		invoice.CommitmentNumber,
		invoice.Amount.String(),
		invoice.DueDate,
		paymentDate,
		string(invoice.Status),
		invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert invoice %s to mirror: %w", invoice.ID, err)
	}
	return nil
}

// DeleteInvoice removes one invoice row from the mirror
func (c *Client) DeleteInvoice(ctx context.Context, id string) error {
	if !c.IsEnabled() {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.db.ExecContext(ctx, "DELETE FROM dbo.portal_invoices WHERE id = @p1", id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s from mirror: %w", id, err)
	}
	return nil
}

// UpsertSupplier pushes one supplier row to the mirror
func (c *Client) UpsertSupplier(ctx context.Context, supplier *domain.Supplier) error {
	if !c.IsEnabled() {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := `
MERGE dbo.portal_suppliers AS target
USING (SELECT @p1 AS id) AS source
ON target.id = source.id
WHEN MATCHED THEN UPDATE SET
    legal_name = @p2, trade_name = @p3, tax_id = @p4,
    email = @p5, phone = @p6, status = @p7, updated_at = @p8
WHEN NOT MATCHED THEN INSERT
    (id, legal_name, trade_name, tax_id, email, phone, status, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8);`

	_, err := c.db.ExecContext(ctx, query,
		supplier.ID.String(),
		supplier.LegalName,
		supplier.TradeName,
		supplier.TaxID,
		supplier.Email,
		supplier.Phone,
		string(supplier.Status),
		supplier.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert supplier %s to mirror: %w", supplier.ID, err)
	}
	return nil
}

// HealthStatus represents the health check result for the mirror connection
type HealthStatus struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
	Open    int           `json:"open_connections"`
	InUse   int           `json:"in_use"`
	Idle    int           `json:"idle"`
}

// HealthCheck pings the mirror and reports connection pool statistics
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if !c.IsEnabled() {
		return &HealthStatus{Status: "disabled"}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.db.PingContext(ctx)
	latency := time.Since(start)

	stats := c.db.Stats()
	status := &HealthStatus{
		Latency: latency,
		Open:    stats.OpenConnections,
		InUse:   stats.InUse,
		Idle:    stats.Idle,
	}

	if err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}

	return status
}
