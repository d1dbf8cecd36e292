package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prefvista/fiscal-api/internal/auth"
	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/database"
	"github.com/prefvista/fiscal-api/internal/http/handler"
	"github.com/prefvista/fiscal-api/internal/http/middleware"
	"github.com/prefvista/fiscal-api/internal/mirror"

	_ "github.com/prefvista/fiscal-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	mirror           *mirror.Client
	authMiddleware   *auth.Middleware
	rateLimiter      *middleware.RateLimiter
	authHandler      *handler.AuthHandler
	invoiceHandler   *handler.InvoiceHandler
	supplierHandler  *handler.SupplierHandler
	importHandler    *handler.ImportHandler
	reminderHandler  *handler.ReminderHandler
	dashboardHandler *handler.DashboardHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	mirrorClient *mirror.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	invoiceHandler *handler.InvoiceHandler,
	supplierHandler *handler.SupplierHandler,
	importHandler *handler.ImportHandler,
	reminderHandler *handler.ReminderHandler,
	dashboardHandler *handler.DashboardHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		mirror:           mirrorClient,
		authMiddleware:   authMiddleware,
		rateLimiter:      rateLimiter,
		authHandler:      authHandler,
		invoiceHandler:   invoiceHandler,
		supplierHandler:  supplierHandler,
		importHandler:    importHandler,
		reminderHandler:  reminderHandler,
		dashboardHandler: dashboardHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check. The mirror is reported but never fails
	// readiness, writes to it are best effort.
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		if rt.mirror.IsEnabled() {
			checks["mirror"] = rt.mirror.HealthCheck(r.Context())
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Post("/auth/login", rt.authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Auth
			r.Get("/auth/me", rt.authHandler.Me)

			// Invoices
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.invoiceHandler.List)
				r.Get("/{id}", rt.invoiceHandler.GetByID)
				r.Get("/{id}/history", rt.invoiceHandler.GetHistory)

				// Writes require operator or admin
				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireWriter)
					r.Post("/", rt.invoiceHandler.Create)
					r.Put("/{id}", rt.invoiceHandler.Update)
					r.Delete("/{id}", rt.invoiceHandler.Delete)
					r.Post("/{id}/pay", rt.invoiceHandler.MarkPaid)
					r.Post("/{id}/unpay", rt.invoiceHandler.MarkUnpaid)
					r.Post("/{id}/cancel", rt.invoiceHandler.Cancel)
				})

				// Bulk delete is admin only
				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireAdmin)
					r.Post("/bulk-delete", rt.invoiceHandler.BulkDelete)
				})
			})

			// Suppliers
			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", rt.supplierHandler.List)
				r.Get("/{id}", rt.supplierHandler.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireWriter)
					r.Post("/", rt.supplierHandler.Create)
					r.Put("/{id}", rt.supplierHandler.Update)
					r.Delete("/{id}", rt.supplierHandler.Delete)
				})
			})

			// Imports
			r.Route("/imports", func(r chi.Router) {
				r.Get("/", rt.importHandler.ListBatches)
				r.Get("/{id}", rt.importHandler.GetBatch)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireWriter)
					r.Post("/", rt.importHandler.Run)
				})
			})

			// Reminders & notifications
			r.Get("/reminders", rt.reminderHandler.GetGroups)
			r.Get("/notifications", rt.reminderHandler.GetNotifications)

			// Dashboard
			r.Get("/dashboard/metrics", rt.dashboardHandler.GetMetrics)
		})
	})

	return r
}
