package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/domain"
	"github.com/prefvista/fiscal-api/internal/extraction"
	"github.com/prefvista/fiscal-api/internal/service"
)

// ImportHandler handles HTTP requests for AI-assisted bulk imports
type ImportHandler struct {
	importService *service.ImportService
	logger        *zap.Logger
}

// NewImportHandler creates a new import handler instance
func NewImportHandler(importService *service.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		logger:        logger,
	}
}

// Run godoc
// @Summary Import invoices from pasted text or XML
// @Description Extracts invoices from the payload, reconciles supplier mentions against the registry and persists the batch
// @Tags Imports
// @Accept json
// @Produce json
// @Param request body domain.ImportRequest true "Payload to import"
// @Success 200 {object} domain.ImportResultDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Failure 503 {object} domain.ErrorResponse "Extraction not configured"
// @Security BearerAuth
// @Router /imports [post]
func (h *ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req domain.ImportRequest
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

	result, err := h.importService.Run(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPayload):
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: "Payload is empty",
			})
		case errors.Is(err, service.ErrInvalidInput):
			respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
				Error:   "Bad Request",
				Message: err.Error(),
			})
		case errors.Is(err, extraction.ErrNotConfigured):
			respondJSON(w, http.StatusServiceUnavailable, domain.ErrorResponse{
				Error:   "Service Unavailable",
				Message: "Import extraction is not configured",
			})
		default:
			h.logger.Error("failed to run import", zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
				Error:   "Internal Server Error",
				Message: "Failed to import invoices",
			})
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListBatches godoc
// @Summary List import batches
// @Description Returns the import audit log, newest first
// @Tags Imports
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ImportBatchDTO}
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /imports [get]
func (h *ImportHandler) ListBatches(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	result, err := h.importService.ListBatches(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list import batches", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to list import batches",
		})
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetBatch godoc
// @Summary Get import batch by ID
// @Tags Imports
// @Produce json
// @Param id path string true "Batch ID" format(uuid)
// @Success 200 {object} domain.ImportBatchDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Router /imports/{id} [get]
func (h *ImportHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Error:   "Bad Request",
			Message: "Invalid batch ID format",
		})
		return
	}

	batch, err := h.importService.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrImportBatchNotFound) {
			respondJSON(w, http.StatusNotFound, domain.ErrorResponse{
				Error:   "Not Found",
				Message: "Import batch not found",
			})
			return
		}
		h.logger.Error("failed to get import batch", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, domain.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "Failed to get import batch",
		})
		return
	}

	respondJSON(w, http.StatusOK, batch)
}
