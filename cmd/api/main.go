package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/docs"
	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/database"
	"github.com/prefvista/fiscal-api/internal/extraction"
	"github.com/prefvista/fiscal-api/internal/http/handler"
	"github.com/prefvista/fiscal-api/internal/http/middleware"
	"github.com/prefvista/fiscal-api/internal/http/router"
	"github.com/prefvista/fiscal-api/internal/jobs"
	"github.com/prefvista/fiscal-api/internal/logger"
	"github.com/prefvista/fiscal-api/internal/mailer"
	"github.com/prefvista/fiscal-api/internal/mirror"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
	"github.com/prefvista/fiscal-api/internal/storage"
)

// @title Portal de Notas Fiscais API
// @version 1.0
// @description API for tracking government invoices, suppliers and payment due dates

// @contact.name API Support
// @contact.email suporte@prefvista.gov.br

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "notas-staging.prefvista.gov.br"
	case "production":
		docs.SwaggerInfo.Host = "notas.prefvista.gov.br"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// SQLite deployments skip goose and migrate in place
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Optional MS SQL mirror, the portal runs fine without it
	var mirrorClient *mirror.Client
	if cfg.Mirror.Enabled {
		mirrorClient, err = mirror.NewClient(&cfg.Mirror, log)
		if err != nil {
			log.Warn("Mirror connection failed, continuing without it", zap.Error(err))
		} else if mirrorClient != nil {
			log.Info("Mirror connected successfully",
				zap.Int("max_open_conns", cfg.Mirror.MaxOpenConns),
				zap.Int("query_timeout_seconds", cfg.Mirror.QueryTimeout),
			)
		}
	} else {
		log.Info("Mirror not configured, skipping")
	}

	// Initialize repositories
	invoiceRepo := repository.NewInvoiceRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewImportBatchRepository(db)

	// Token issuer and auth middleware
	tokenIssuer, err := auth.NewTokenIssuer(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	authMiddleware := auth.NewMiddleware(tokenIssuer, log)

	// Extraction client (nil-safe when no API key is configured)
	extractionClient := extraction.NewClient(&cfg.Extraction, log)

	// Mailer for the due-date digest
	digestMailer := mailer.NewMailer(&cfg.SMTP, log)

	// Initialize services
	invoiceService := service.NewInvoiceService(invoiceRepo, mirrorClient, log)
	supplierService := service.NewSupplierService(supplierRepo, mirrorClient, log)
	userService := service.NewUserService(userRepo, tokenIssuer, log)
	importService := service.NewImportService(invoiceRepo, supplierRepo, batchRepo, extractionClient, fileStorage, mirrorClient, log)
	reminderService := service.NewReminderService(invoiceRepo, log)
	dashboardService := service.NewDashboardService(invoiceRepo, supplierRepo, log)

	// Seed the first administrator on an empty install
	if err := userService.EnsureBootstrapAdmin(ctx,
		cfg.Auth.BootstrapAdminEmail,
		cfg.Auth.BootstrapAdminPassword,
		cfg.Auth.BootstrapAdminName,
	); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	// Initialize middleware and handlers
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	authHandler := handler.NewAuthHandler(userService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	supplierHandler := handler.NewSupplierHandler(supplierService, log)
	importHandler := handler.NewImportHandler(importService, log)
	reminderHandler := handler.NewReminderHandler(reminderService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		mirrorClient,
		authMiddleware,
		rateLimiter,
		authHandler,
		invoiceHandler,
		supplierHandler,
		importHandler,
		reminderHandler,
		dashboardHandler,
	)

	// Background jobs: due-date digest and mirror catch-up sync
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		digestJob := jobs.NewDigestJob(reminderService, digestMailer, cfg.SMTP.DigestRecipients, log, 2*time.Minute)
		if err := scheduler.AddJob(jobs.DigestJobName, cfg.Jobs.DigestSchedule, digestJob.Run); err != nil {
			log.Error("Failed to register digest job", zap.Error(err))
		}

		if mirrorClient.IsEnabled() {
			syncJob := jobs.NewMirrorSyncJob(invoiceRepo, supplierRepo, mirrorClient, log, 5*time.Minute)
			if err := scheduler.AddJob(jobs.MirrorSyncJobName, cfg.Mirror.SyncSchedule, syncJob.Run); err != nil {
				log.Error("Failed to register mirror sync job", zap.Error(err))
			}
		}

		scheduler.Start()
		log.Info("Scheduler started", zap.Strings("jobs", scheduler.GetJobNames()))
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if mirrorClient.IsEnabled() {
			if err := mirrorClient.Close(); err != nil {
				log.Warn("Error closing mirror connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
