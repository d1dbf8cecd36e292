package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when none is set. Keeps the models portable
// between PostgreSQL and SQLite, which has no gen_random_uuid().
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the InvoiceStatus is a valid enum value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusUnpaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// UrgencyBucket is the derived due-date classification of an unpaid invoice.
// It is recomputed on every read and never persisted.
type UrgencyBucket string

const (
	BucketOverdue  UrgencyBucket = "overdue"
	BucketCritical UrgencyBucket = "critical"
	BucketWarning  UrgencyBucket = "warning"
	BucketPlanning UrgencyBucket = "planning"
	BucketNone     UrgencyBucket = "none"
)

// Invoice represents a tracked government invoice ("nota fiscal")
type Invoice struct {
	BaseModel
	BudgetUnit       string                `gorm:"type:varchar(200);not null;index;column:budget_unit"`
	SupplierName     string                `gorm:"type:varchar(200);not null;index;column:supplier_name"`
	InvoiceNumber    string                `gorm:"type:varchar(100);not null;column:invoice_number"`
	CommitmentNumber string                `gorm:"type:varchar(100);not null;column:commitment_number"`
	Amount           decimal.Decimal       `gorm:"type:decimal(15,2);not null;default:0"`
	DueDate          time.Time             `gorm:"type:date;not null;index;column:due_date"`
	PaymentDate      *time.Time            `gorm:"type:date;column:payment_date"`
	Status           InvoiceStatus         `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	History          []InvoiceHistoryEntry `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceHistoryEntry is an append-only log line attached to an invoice.
// Entries are never edited or removed, one per state-changing operation.
type InvoiceHistoryEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID `gorm:"type:uuid;not null;index;column:invoice_id"`
	Description string    `gorm:"type:varchar(500);not null"`
	ActorName   string    `gorm:"type:varchar(200);not null;column:actor_name"`
	RecordedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:recorded_at"`
}

// TableName overrides the default table name to match the migration
func (InvoiceHistoryEntry) TableName() string {
	return "invoice_history"
}

// BeforeCreate assigns an ID when none is set
func (e *InvoiceHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

// IsValid checks if the SupplierStatus is a valid enum value
func (s SupplierStatus) IsValid() bool {
	switch s {
	case SupplierStatusActive, SupplierStatusInactive:
		return true
	}
	return false
}

// Supplier represents a registered vendor. For reconciliation purposes the
// uniqueness key is the digits-only tax id, not the row id.
type Supplier struct {
	BaseModel
	LegalName    string         `gorm:"type:varchar(200);not null;index;column:legal_name"`
	TradeName    string         `gorm:"type:varchar(200);column:trade_name"`
	TaxID        string         `gorm:"type:varchar(30);index;column:tax_id"`
	Email        string         `gorm:"type:varchar(255)"`
	Phone        string         `gorm:"type:varchar(50)"`
	Status       SupplierStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	RegisteredAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;column:registered_at"`
}

// UserRole represents a role a user can have
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
	RoleViewer   UserRole = "viewer"
)

// IsValid checks if the UserRole is a valid enum value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// User represents a portal user
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);not null;unique"`
	DisplayName  string     `gorm:"type:varchar(200);not null;column:display_name"`
	PasswordHash string     `gorm:"type:varchar(100);not null;column:password_hash"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'operator'"`
	IsActive     bool       `gorm:"not null;default:true;column:is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// ImportBatchSource represents the payload kind of an import batch
type ImportBatchSource string

const (
	ImportSourceText ImportBatchSource = "text"
	ImportSourceXML  ImportBatchSource = "xml"
)

// ImportBatch records one AI-assisted bulk import run for auditing
type ImportBatch struct {
	BaseModel
	ActorName        string            `gorm:"type:varchar(200);not null;column:actor_name"`
	Source           ImportBatchSource `gorm:"type:varchar(20);not null;default:'text'"`
	InvoiceCount     int               `gorm:"not null;default:0;column:invoice_count"`
	SuppliersCreated int               `gorm:"not null;default:0;column:suppliers_created"`
	PayloadPath      string            `gorm:"type:varchar(500);column:payload_path"`
}
