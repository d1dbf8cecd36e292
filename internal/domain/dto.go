package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API responses. Dates use ISO 8601; due/payment dates carry no
// time component.

type InvoiceDTO struct {
	ID               uuid.UUID              `json:"id"`
	BudgetUnit       string                 `json:"budgetUnit"`
	SupplierName     string                 `json:"supplierName"`
	InvoiceNumber    string                 `json:"invoiceNumber"`
	CommitmentNumber string                 `json:"commitmentNumber"`
	Amount           decimal.Decimal        `json:"amount"`
	DueDate          string                 `json:"dueDate"`
	PaymentDate      *string                `json:"paymentDate,omitempty"`
	Status           InvoiceStatus          `json:"status"`
	History          []InvoiceHistoryDTO    `json:"history,omitempty"`
	CreatedAt        string                 `json:"createdAt"`
	UpdatedAt        string                 `json:"updatedAt"`
}

type InvoiceHistoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	ActorName   string    `json:"actorName"`
	RecordedAt  string    `json:"recordedAt"`
}

type SupplierDTO struct {
	ID           uuid.UUID      `json:"id"`
	LegalName    string         `json:"legalName"`
	TradeName    string         `json:"tradeName,omitempty"`
	TaxID        string         `json:"taxId,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Status       SupplierStatus `json:"status"`
	RegisteredAt string         `json:"registeredAt"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
}

type UserDTO struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        UserRole  `json:"role"`
	IsActive    bool      `json:"isActive"`
	LastLoginAt *string   `json:"lastLoginAt,omitempty"`
}

// ReminderGroupsDTO is the reminder panel view: unpaid invoices grouped by
// urgency as of the request time. Urgent combines overdue and critical
// (due within three days).
type ReminderGroupsDTO struct {
	ReferenceDate string       `json:"referenceDate"`
	Urgent        []InvoiceDTO `json:"urgent"`
	Warning       []InvoiceDTO `json:"warning"`
	Planning      []InvoiceDTO `json:"planning"`
}

// NotificationSummaryDTO is the bell-style view over the same grouping.
// PendingCount is the sum of the three group sizes.
type NotificationSummaryDTO struct {
	ReferenceDate string       `json:"referenceDate"`
	Urgent        []InvoiceDTO `json:"urgent"`
	Warning       []InvoiceDTO `json:"warning"`
	Planning      []InvoiceDTO `json:"planning"`
	PendingCount  int          `json:"pendingCount"`
}

// DashboardMetricsDTO holds portal-wide aggregates. Cancelled invoices are
// excluded from all monetary totals.
type DashboardMetricsDTO struct {
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	UnpaidAmount   decimal.Decimal `json:"unpaidAmount"`
	TotalInvoices  int64           `json:"totalInvoices"`
	PaidCount      int64           `json:"paidCount"`
	UnpaidCount    int64           `json:"unpaidCount"`
	CancelledCount int64           `json:"cancelledCount"`
	OverdueCount   int             `json:"overdueCount"`
	SupplierCount  int64           `json:"supplierCount"`
}

// ImportResultDTO reports one bulk import run back to the user
type ImportResultDTO struct {
	BatchID          uuid.UUID     `json:"batchId"`
	Invoices         []InvoiceDTO  `json:"invoices"`
	NewSuppliers     []SupplierDTO `json:"newSuppliers"`
	SuppliersCreated int           `json:"suppliersCreated"`
}

type ImportBatchDTO struct {
	ID               uuid.UUID         `json:"id"`
	ActorName        string            `json:"actorName"`
	Source           ImportBatchSource `json:"source"`
	InvoiceCount     int               `json:"invoiceCount"`
	SuppliersCreated int               `json:"suppliersCreated"`
	CreatedAt        string            `json:"createdAt"`
}

type LoginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expiresAt"`
	User      UserDTO `json:"user"`
}

// Pagination response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type CreateInvoiceRequest struct {
	BudgetUnit       string          `json:"budgetUnit" validate:"required,max=200"`
	SupplierName     string          `json:"supplierName" validate:"required,max=200"`
	InvoiceNumber    string          `json:"invoiceNumber" validate:"required,max=100"`
	CommitmentNumber string          `json:"commitmentNumber,omitempty" validate:"max=100"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

type UpdateInvoiceRequest struct {
	BudgetUnit       string          `json:"budgetUnit" validate:"required,max=200"`
	SupplierName     string          `json:"supplierName" validate:"required,max=200"`
	InvoiceNumber    string          `json:"invoiceNumber" validate:"required,max=100"`
	CommitmentNumber string          `json:"commitmentNumber,omitempty" validate:"max=100"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          string          `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

type BulkDeleteInvoicesRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,dive,required"`
}

type CreateSupplierRequest struct {
	LegalName string         `json:"legalName" validate:"required,max=200"`
	TradeName string         `json:"tradeName,omitempty" validate:"max=200"`
	TaxID     string         `json:"taxId,omitempty" validate:"max=30"`
	Email     string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string         `json:"phone,omitempty" validate:"max=50"`
	Status    SupplierStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type UpdateSupplierRequest struct {
	LegalName string         `json:"legalName" validate:"required,max=200"`
	TradeName string         `json:"tradeName,omitempty" validate:"max=200"`
	TaxID     string         `json:"taxId,omitempty" validate:"max=30"`
	Email     string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string         `json:"phone,omitempty" validate:"max=50"`
	Status    SupplierStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

type ImportRequest struct {
	Source  ImportBatchSource `json:"source,omitempty" validate:"omitempty,oneof=text xml"`
	Payload string            `json:"payload" validate:"required"`
}
