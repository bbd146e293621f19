package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized API responses
const (
	// 4xxx - Client errors
	CodeInvalidAmount      = 4001
	CodeInvalidPhone       = 4002
	CodeInvalidReference   = 4003
	CodeDuplicateReference = 4004
	CodeInvalidRequest     = 4005
	CodeTransactionMissing = 4040
	CodeInvalidSignature   = 4010

	// 5xxx - Server errors
	CodeInternalServer  = 5000
	CodeProviderFailure = 5020
)

// Base error types
var (
	// ErrInvalidAmount is returned when the amount format is invalid
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrNegativeAmount is returned when the amount is negative
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrInvalidPhone is returned when the counterparty identifier is malformed
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidReference is returned when the transaction reference is empty or malformed
	ErrInvalidReference = errors.New("reference cannot be empty")

	// ErrDuplicateReference is returned when a transaction with the same reference already exists
	ErrDuplicateReference = errors.New("transaction with this reference already exists")

	// ErrTransactionNotFound is returned when the requested transaction doesn't exist
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidSignature is returned when an inbound event fails signature verification
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrTerminalStatus is returned when a write targets an already resolved transaction
	ErrTerminalStatus = errors.New("transaction already in a terminal state")

	// ErrInvalidStatus is returned when a status value is outside the known vocabulary
	ErrInvalidStatus = errors.New("invalid transaction status")

	// ErrInvalidRequest is returned when the request format is invalid
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrDatabaseConnection is returned when there's a problem talking to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrProviderUnavailable is returned when the payment provider cannot be reached
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidPhone):
		return CodeInvalidPhone
	case errors.Is(err, ErrInvalidReference):
		return CodeInvalidReference
	case errors.Is(err, ErrDuplicateReference):
		return CodeDuplicateReference
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrTransactionNotFound):
		return CodeTransactionMissing
	case errors.Is(err, ErrInvalidSignature):
		return CodeInvalidSignature
	case errors.Is(err, ErrProviderUnavailable):
		return CodeProviderFailure
	default:
		return CodeInternalServer
	}
}

// ProviderErrorKind classifies provider call outcomes so callers can apply
// one consistent retry policy
type ProviderErrorKind string

// Provider error kinds
const (
	// KindTransient covers network failures and provider 5xx responses;
	// safe to retry on the backoff schedule
	KindTransient ProviderErrorKind = "transient"
	// KindPermanentRejection covers provider 4xx rejections of the request
	// itself; retrying will not help
	KindPermanentRejection ProviderErrorKind = "permanent_rejection"
	// KindUnauthorized covers credential failures; retrying will not help
	// and the condition is operator-actionable
	KindUnauthorized ProviderErrorKind = "unauthorized"
)

// ProviderError is the single typed outcome for failed provider calls
type ProviderError struct {
	Kind       ProviderErrorKind
	Operation  string // "initiate" or "status"
	StatusCode int    // HTTP status from the provider, 0 on transport failure
	Body       string // Raw response body, kept for evidence
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s call failed (%s, http %d): %v",
		e.Operation, e.Kind, e.StatusCode, e.Err)
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure should be retried
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindTransient
}

// LogFields returns a map of fields for structured logging
func (e *ProviderError) LogFields() map[string]any {
	return map[string]any{
		"error_type":  "provider_error",
		"kind":        string(e.Kind),
		"operation":   e.Operation,
		"status_code": e.StatusCode,
		"error":       e.Err.Error(),
	}
}

// NewProviderError creates a typed provider error
func NewProviderError(kind ProviderErrorKind, operation string, statusCode int, body string, err error) *ProviderError {
	return &ProviderError{
		Kind:       kind,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}

// AsProviderError unwraps err into a ProviderError if possible
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	ok := errors.As(err, &pe)
	return pe, ok
}

// IsTransientProviderError reports whether err is a retryable provider failure
func IsTransientProviderError(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Retryable()
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

// IsDuplicateReferenceError checks if the error is a duplicate reference error
func IsDuplicateReferenceError(err error) bool {
	return errors.Is(err, ErrDuplicateReference)
}
