package rentas

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("rentas: not found")
	ErrAlreadyExists = errors.New("rentas: already exists")
	ErrInvalidInput  = errors.New("rentas: invalid input")

	// Credit balance errors
	ErrCreditNotFound = errors.New("rentas: credit balance not found")
	ErrCreditConsumed = errors.New("rentas: credit balance already consumed")
	ErrInvalidAmount  = errors.New("rentas: amount must be positive")

	// Invoice errors
	ErrInvoiceNotFound   = errors.New("rentas: invoice not found")
	ErrNoEligibleInvoice = errors.New("rentas: no pending invoices for tenant")
	ErrInvoiceSettled    = errors.New("rentas: invoice already settled")

	// Lookup errors
	ErrTenantNotFound   = errors.New("rentas: tenant not found")
	ErrPropertyNotFound = errors.New("rentas: property not found")

	// Command boundary errors
	ErrConfirmationDeclined = errors.New("rentas: confirmation declined")
	ErrUnknownAction        = errors.New("rentas: unknown action")

	// Store errors
	ErrStoreNotReady     = errors.New("rentas: store not ready")
	ErrStoreClosed       = errors.New("rentas: store is closed")
	ErrTransactionFailed = errors.New("rentas: transaction failed")
	ErrMigrationFailed   = errors.New("rentas: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rentas: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCreditNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrPropertyNotFound)
}

// IsUserFacing returns true for errors that represent a normal, expected
// outcome the operator should be told about rather than a system fault.
// These abort an operation without any writes.
func IsUserFacing(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrCreditConsumed) ||
		errors.Is(err, ErrNoEligibleInvoice) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrConfirmationDeclined)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
