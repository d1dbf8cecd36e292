// Package mapper converts domain models to API DTOs. Calendar dates
// (due date, payment date) are rendered as YYYY-MM-DD; timestamps use
// RFC 3339.
package mapper

import (
	"time"

	"github.com/prefvista/fiscal-api/internal/domain"
)

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// InvoiceToDTO converts an invoice without its history log
func InvoiceToDTO(invoice *domain.Invoice) domain.InvoiceDTO {
	dto := domain.InvoiceDTO{
		ID:               invoice.ID,
		BudgetUnit:       invoice.BudgetUnit,
		SupplierName:     invoice.SupplierName,
		InvoiceNumber:    invoice.InvoiceNumber,
		CommitmentNumber: invoice.CommitmentNumber,
		Amount:           invoice.Amount,
		DueDate:          formatDate(invoice.DueDate),
		Status:           invoice.Status,
		CreatedAt:        formatTimestamp(invoice.CreatedAt),
		UpdatedAt:        formatTimestamp(invoice.UpdatedAt),
	}
	if invoice.PaymentDate != nil {
		paymentDate := formatDate(*invoice.PaymentDate)
		dto.PaymentDate = &paymentDate
	}
	return dto
}

// InvoiceToDTOWithHistory converts an invoice including its history log
func InvoiceToDTOWithHistory(invoice *domain.Invoice) domain.InvoiceDTO {
	dto := InvoiceToDTO(invoice)
	dto.History = make([]domain.InvoiceHistoryDTO, 0, len(invoice.History))
	for i := range invoice.History {
		dto.History = append(dto.History, HistoryEntryToDTO(&invoice.History[i]))
	}
	return dto
}

// HistoryEntryToDTO converts an invoice history entry
func HistoryEntryToDTO(entry *domain.InvoiceHistoryEntry) domain.InvoiceHistoryDTO {
	return domain.InvoiceHistoryDTO{
		ID:          entry.ID,
		Description: entry.Description,
		ActorName:   entry.ActorName,
		RecordedAt:  formatTimestamp(entry.RecordedAt),
	}
}

// InvoicesToDTOs converts a slice of invoices without history
func InvoicesToDTOs(invoices []domain.Invoice) []domain.InvoiceDTO {
	dtos := make([]domain.InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		dtos = append(dtos, InvoiceToDTO(&invoices[i]))
	}
	return dtos
}

// SupplierToDTO converts a supplier
func SupplierToDTO(supplier *domain.Supplier) domain.SupplierDTO {
	return domain.SupplierDTO{
		ID:           supplier.ID,
		LegalName:    supplier.LegalName,
		TradeName:    supplier.TradeName,
		TaxID:        supplier.TaxID,
		Email:        supplier.Email,
		Phone:        supplier.Phone,
		Status:       supplier.Status,
		RegisteredAt: formatTimestamp(supplier.RegisteredAt),
		CreatedAt:    formatTimestamp(supplier.CreatedAt),
		UpdatedAt:    formatTimestamp(supplier.UpdatedAt),
	}
}

// SuppliersToDTOs converts a slice of suppliers
func SuppliersToDTOs(suppliers []domain.Supplier) []domain.SupplierDTO {
	dtos := make([]domain.SupplierDTO, 0, len(suppliers))
	for i := range suppliers {
		dtos = append(dtos, SupplierToDTO(&suppliers[i]))
	}
	return dtos
}

// UserToDTO converts a user. The password hash never leaves the domain layer.
func UserToDTO(user *domain.User) domain.UserDTO {
	dto := domain.UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		IsActive:    user.IsActive,
	}
	if user.LastLoginAt != nil {
		lastLogin := formatTimestamp(*user.LastLoginAt)
		dto.LastLoginAt = &lastLogin
	}
	return dto
}

// ImportBatchToDTO converts an import batch record
func ImportBatchToDTO(batch *domain.ImportBatch) domain.ImportBatchDTO {
	return domain.ImportBatchDTO{
		ID:               batch.ID,
		ActorName:        batch.ActorName,
		Source:           batch.Source,
		InvoiceCount:     batch.InvoiceCount,
		SuppliersCreated: batch.SuppliersCreated,
		CreatedAt:        formatTimestamp(batch.CreatedAt),
	}
}

// ImportBatchesToDTOs converts a slice of import batches
func ImportBatchesToDTOs(batches []domain.ImportBatch) []domain.ImportBatchDTO {
	dtos := make([]domain.ImportBatchDTO, 0, len(batches))
	for i := range batches {
		dtos = append(dtos, ImportBatchToDTO(&batches[i]))
	}
	return dtos
}
