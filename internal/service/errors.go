package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a deactivated user attempts to log in
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvoiceNotFound is returned when an invoice is not found
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvoiceCancelled is returned when a settled operation targets a cancelled invoice
	ErrInvoiceCancelled = errors.New("invoice is cancelled")

	// ErrInvoiceAlreadyPaid is returned when marking an already paid invoice as paid
	ErrInvoiceAlreadyPaid = errors.New("invoice is already paid")

	// ErrInvoiceNotPaid is returned when reverting payment on an unpaid invoice
	ErrInvoiceNotPaid = errors.New("invoice is not paid")

	// ErrSupplierNotFound is returned when a supplier is not found
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrSupplierTaxIDExists is returned when another supplier already
	// carries the same tax id after digit normalization
	ErrSupplierTaxIDExists = errors.New("supplier with this tax id already exists")

	// ErrImportBatchNotFound is returned when an import batch is not found
	ErrImportBatchNotFound = errors.New("import batch not found")

	// ErrEmptyPayload is returned when an import payload is blank
	ErrEmptyPayload = errors.New("import payload is empty")
)
