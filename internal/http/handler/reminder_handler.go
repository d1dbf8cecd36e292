package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/service"
)

// ReminderHandler serves the due-date views
type ReminderHandler struct {
	reminderService *service.ReminderService
	logger          *zap.Logger
}

// NewReminderHandler creates a new reminder handler instance
func NewReminderHandler(reminderService *service.ReminderService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		reminderService: reminderService,
		logger:          logger,
	}
}

// GetGroups godoc
// @Summary Get reminder groups
// @Description Unpaid invoices grouped by urgency as of today. Urgent combines overdue and due within three days; warning fires exactly five days out, planning exactly fifteen.
// @Tags Reminders
// @Produce json
// @Success 200 {object} domain.ReminderGroupsDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /reminders [get]
func (h *ReminderHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.reminderService.GetReminderGroups(r.Context())
	if err != nil {
		h.logger.Error("failed to get reminder groups", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to get reminders",
		})
		return
	}

	respondJSON(w, http.StatusOK, groups)
}

// GetNotifications godoc
// @Summary Get notification summary
// @Description Same grouping as the reminder panel plus the total pending count
// @Tags Reminders
// @Produce json
// @Success 200 {object} domain.NotificationSummaryDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /notifications [get]
func (h *ReminderHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reminderService.GetNotificationSummary(r.Context())
	if err != nil {
		h.logger.Error("failed to get notification summary", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to get notifications",
		})
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
