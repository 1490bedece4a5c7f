package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets callers classify wrapped errors with errors.Is against
// the sentinel values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConflict            = NewDomainError("CONFLICT", "Operation violates a business rule")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrRetryExhausted      = NewDomainError("RETRY_EXHAUSTED", "Operation failed after exhausting the retry budget")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	// ErrIntegrityFault signals an unbalanced ledger posting. It is never
	// recovered automatically: the unit of work aborts and the error is
	// surfaced for operator investigation.
	ErrIntegrityFault = NewDomainError("INTEGRITY_FAULT", "Ledger entries do not balance")
)

// Taxonomy constructors. Each carries enough detail (ids, offending
// amounts) for the caller to react.

// NewValidationError creates a VALIDATION_ERROR with detail
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainErrorf(ErrValidation.Code, format, args...)
}

// NewNotFoundError creates a NOT_FOUND with detail
func NewNotFoundError(format string, args ...any) *DomainError {
	return NewDomainErrorf(ErrNotFound.Code, format, args...)
}

// NewConflictError creates a CONFLICT with detail
func NewConflictError(format string, args ...any) *DomainError {
	return NewDomainErrorf(ErrConflict.Code, format, args...)
}

// NewIntegrityFault creates an INTEGRITY_FAULT with detail
func NewIntegrityFault(format string, args ...any) *DomainError {
	return NewDomainErrorf(ErrIntegrityFault.Code, format, args...)
}
