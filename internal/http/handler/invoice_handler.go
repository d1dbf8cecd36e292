package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/repository"
	"github.com/prefvista/fiscal-api/internal/service"
)

// InvoiceHandler handles HTTP requests for invoice operations
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

// NewInvoiceHandler creates a new invoice handler instance
func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// List godoc
// @Summary List invoices
// @Description Get paginated list of invoices with optional filters
// @Tags Invoices
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by supplier name, invoice number or commitment number"
// @Param status query string false "Filter by status" Enums(paid, unpaid, cancelled)
// @Param budgetUnit query string false "Filter by budget unit"
// @Param dueBefore query string false "Due on or before (YYYY-MM-DD)"
// @Param dueAfter query string false "Due on or after (YYYY-MM-DD)"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, dueDate, paymentDate, amount, status, budgetUnit, supplierName, invoiceNumber)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InvoiceDTO}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := &repository.InvoiceFilters{
		Search:     r.URL.Query().Get("search"),
		BudgetUnit: r.URL.Query().Get("budgetUnit"),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.InvoiceStatus(status)
		if !s.IsValid() {
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: "Invalid status filter",
			})
			return
		}
		filters.Status = &s
	}
	if dueBefore := r.URL.Query().Get("dueBefore"); dueBefore != "" {
		t, err := time.Parse("2006-01-02", dueBefore)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: "dueBefore must be a date in format YYYY-MM-DD",
			})
			return
		}
		filters.DueBefore = &t
	}
	if dueAfter := r.URL.Query().Get("dueAfter"); dueAfter != "" {
		t, err := time.Parse("2006-01-02", dueAfter)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: "dueAfter must be a date in format YYYY-MM-DD",
			})
			return
		}
		filters.DueAfter = &t
	}

	result, err := h.invoiceService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to list invoices",
		})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get invoice by ID
// @Description Get an invoice with its full history log
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			respondJSON(w, http.StatusNotFound, domain.ErrorResponse{
				Error:   "Not Found",
				Message: "Invoice not found",
			})
			return
		}
		h.logger.Error("failed to get invoice", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to get invoice",
		})
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// Create godoc
// @Summary Create invoice
// @Description Register a new invoice manually. New invoices start unpaid.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid request body",
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
			})
			return
		}
		h.logger.Error("failed to create invoice", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to create invoice",
		})
		return
	}

	w.Header().Set("Location", "/api/v1/invoices/"+invoice.ID.String())
	respondJSON(w, http.StatusCreated, invoice)
}

// Update godoc
// @Summary Update invoice
// @Description Edit invoice fields. Status changes go through the status endpoints.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.UpdateInvoiceRequest true "Invoice data"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	var req domain.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid request body",
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Update(r.Context(), id, &req)
	if err != nil {
		h.respondInvoiceError(w, err, "failed to update invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

type markPaidRequest struct {
	PaymentDate string `json:"paymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// MarkPaid godoc
// @Summary Mark invoice as paid
// @Description Sets the status to paid with the given payment date, defaulting to today
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body handler.markPaidRequest false "Payment date override"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Already paid or cancelled"
// @Security BearerAuth
// @Router /invoices/{id}/pay [post]
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	var paymentDate *time.Time
	var req markPaidRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: "Invalid request body",
			})
			return
		}
		if err := validate.Struct(req); err != nil {
			respondValidationError(w, err)
			return
		}
		if req.PaymentDate != "" {
			t, _ := time.Parse("2006-01-02", req.PaymentDate)
			paymentDate = &t
		}
	}

	invoice, err := h.invoiceService.MarkPaid(r.Context(), id, paymentDate)
	if err != nil {
		h.respondInvoiceError(w, err, "failed to mark invoice paid")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// MarkUnpaid godoc
// @Summary Revert invoice to unpaid
// @Description Clears the payment date and sets the status back to unpaid
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Not paid or cancelled"
// @Security BearerAuth
// @Router /invoices/{id}/unpay [post]
func (h *InvoiceHandler) MarkUnpaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	invoice, err := h.invoiceService.MarkUnpaid(r.Context(), id)
	if err != nil {
		h.respondInvoiceError(w, err, "failed to mark invoice unpaid")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// Cancel godoc
// @Summary Cancel invoice
// @Description Marks the invoice as cancelled. Cancelled invoices leave totals and triage.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Already cancelled"
// @Security BearerAuth
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	invoice, err := h.invoiceService.Cancel(r.Context(), id)
	if err != nil {
		h.respondInvoiceError(w, err, "failed to cancel invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// GetHistory godoc
// @Summary Get invoice history
// @Description Returns the append-only history log, oldest entry first
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {array} domain.InvoiceHistoryDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id}/history [get]
func (h *InvoiceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	history, err := h.invoiceService.GetHistory(r.Context(), id)
	if err != nil {
		h.respondInvoiceError(w, err, "failed to get invoice history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Delete godoc
// @Summary Delete invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid invoice ID format",
		})
		return
	}

	if err := h.invoiceService.Delete(r.Context(), id); err != nil {
		h.respondInvoiceError(w, err, "failed to delete invoice")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete godoc
// @Summary Bulk delete invoices
// @Description Deletes multiple invoices at once. Administrators only.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.BulkDeleteInvoicesRequest true "Invoice IDs"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} domain.ErrorResponse
// @Failure 403 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /invoices/bulk-delete [post]
func (h *InvoiceHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteInvoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid request body",
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	deleted, err := h.invoiceService.BulkDelete(r.Context(), req.IDs)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			respondJSON(w, http.StatusForbidden, domain.ErrorResponse{
				Error:   "Forbidden",
				Message: "Only administrators can bulk delete invoices",
			})
			return
		}
		h.respondInvoiceError(w, err, "failed to bulk delete invoices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// respondInvoiceError maps service errors to HTTP responses shared by the
// invoice endpoints.
func (h *InvoiceHandler) respondInvoiceError(w http.ResponseWriter, err error, logMessage string) {
	switch {
	case errors.Is(err, service.ErrInvoiceNotFound):
		respondJSON(w, http.StatusNotFound, domain.ErrorResponse{
			Error:   "Not Found",
			Message: "Invoice not found",
		})
	case errors.Is(err, service.ErrInvoiceCancelled):
		respondJSON(w, http.StatusConflict, domain.ErrorResponse{
			Error:   "Conflict",
			Message: "Invoice is cancelled",
		})
	case errors.Is(err, service.ErrInvoiceAlreadyPaid):
		respondJSON(w, http.StatusConflict, domain.ErrorResponse{
			Error:   "Conflict",
			Message: "Invoice is already paid",
		})
	case errors.Is(err, service.ErrInvoiceNotPaid):
		respondJSON(w, http.StatusConflict, domain.ErrorResponse{
			Error:   "Conflict",
			Message: "Invoice is not paid",
		})
	case errors.Is(err, service.ErrUnauthorized):
		respondJSON(w, http.StatusUnauthorized, domain.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication required",
		})
	case errors.Is(err, service.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: err.Error(),
		})
	default:
		h.logger.Error(logMessage, zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "An unexpected error occurred",
		})
	}
}
