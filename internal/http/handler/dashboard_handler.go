package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/service"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetMetrics godoc
// @Summary Get dashboard metrics
// @Description Returns portal-wide aggregates.
// @Description
// @Description - Monetary totals (`totalAmount`, `paidAmount`, `unpaidAmount`) exclude cancelled invoices
// @Description - `overdueCount` uses the same day-based classification as the reminder views
// @Description - `supplierCount` counts active suppliers only
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardMetricsDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /dashboard/metrics [get]
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboardService.GetMetrics(r.Context())
	if err != nil {
		h.logger.Error("failed to get dashboard metrics", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to get dashboard metrics",
		})
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}
