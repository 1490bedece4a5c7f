package dto

import (
	"errors"
	"net/http"

	"github.com/finledger/backend/internal/domain/shared"
)

// Error codes exposed over the API. The domain taxonomy maps onto these
// one-to-one; RETRY_EXHAUSTED and INTEGRITY_FAULT deliberately surface
// under their own codes so operators can tell them apart from ordinary
// conflicts.
const (
	ErrCodeUnknown             = "ERR_UNKNOWN"
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeRetryExhausted      = "ERR_RETRY_EXHAUSTED"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeIntegrityFault      = "ERR_INTEGRITY_FAULT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:             http.StatusInternalServerError,
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRetryExhausted:      http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeIntegrityFault:      http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainError classifies a domain error into an API error code and
// message. Unrecognized errors become ERR_INTERNAL without leaking
// their detail.
func FromDomainError(err error) (code, message string) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return ErrCodeInternal, "internal server error"
	}

	switch domainErr.Code {
	case shared.ErrValidation.Code:
		return ErrCodeValidation, domainErr.Message
	case shared.ErrNotFound.Code:
		return ErrCodeNotFound, domainErr.Message
	case shared.ErrConflict.Code:
		return ErrCodeConflict, domainErr.Message
	case shared.ErrConcurrencyConflict.Code:
		return ErrCodeConcurrencyConflict, domainErr.Message
	case shared.ErrRetryExhausted.Code:
		return ErrCodeRetryExhausted, domainErr.Message
	case shared.ErrInvalidState.Code:
		return ErrCodeInvalidState, domainErr.Message
	case shared.ErrInsufficientStock.Code:
		return ErrCodeInsufficientStock, domainErr.Message
	case shared.ErrIntegrityFault.Code:
		return ErrCodeIntegrityFault, domainErr.Message
	}
	return ErrCodeUnknown, domainErr.Message
}
