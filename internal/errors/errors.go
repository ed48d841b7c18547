// Package errors provides categorized error types for the behavior diff system.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category represents the broad class of an error.
type Category string

const (
	// CategoryUserInput represents invalid caller input (bad address format)
	CategoryUserInput Category = "user_input"
	// CategoryProvider represents chain data provider failures
	CategoryProvider Category = "provider"
	// CategoryInsufficientData represents a windowed transaction count below the minimum
	CategoryInsufficientData Category = "insufficient_data"
	// CategoryStorage represents baseline store read/write failures
	CategoryStorage Category = "storage"
	// CategorySystem represents unexpected internal failures
	CategorySystem Category = "system"
)

// Error codes surfaced to callers. The CLI and API map these to messages
// and exit/status codes.
const (
	CodeInvalidAddress   = "INVALID_ADDRESS"
	CodeDataUnavailable  = "DATA_UNAVAILABLE"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeStorageError     = "STORAGE_ERROR"
	CodeBaselineExists   = "BASELINE_EXISTS"
	CodeInternal         = "INTERNAL_ERROR"
)

// CategorizedError carries a category and stable code alongside the message.
type CategorizedError struct {
	Category Category
	Code     string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewInvalidAddressError creates an invalid address error.
func NewInvalidAddressError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryUserInput,
		Code:     CodeInvalidAddress,
		Message:  fmt.Sprintf("invalid address format: %s", address),
	}
}

// NewDataUnavailableError creates the single opaque provider failure. Finer
// grained transport errors are preserved only as the cause.
func NewDataUnavailableError(cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryProvider,
		Code:     CodeDataUnavailable,
		Message:  "data unavailable",
		Cause:    cause,
	}
}

// NewInsufficientDataError creates the below-minimum transaction count error.
func NewInsufficientDataError(count, minimum int) *CategorizedError {
	return &CategorizedError{
		Category: CategoryInsufficientData,
		Code:     CodeInsufficientData,
		Message:  fmt.Sprintf("insufficient data for baseline: %d transactions in window, need %d", count, minimum),
	}
}

// NewStorageError creates a baseline store failure.
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStorage,
		Code:     CodeStorageError,
		Message:  fmt.Sprintf("baseline storage error during %s", operation),
		Cause:    cause,
	}
}

// NewBaselineExistsError creates the one-baseline-per-address conflict error.
func NewBaselineExistsError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStorage,
		Code:     CodeBaselineExists,
		Message:  fmt.Sprintf("baseline already exists for %s", address),
	}
}

// NewInternalError creates an unexpected internal failure.
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategorySystem,
		Code:     CodeInternal,
		Message:  message,
		Cause:    cause,
	}
}

// hasCode reports whether err is (or wraps) a CategorizedError with the code.
func hasCode(err error, code string) bool {
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Code == code
	}
	return false
}

// IsInvalidAddress reports whether err is an invalid address error.
func IsInvalidAddress(err error) bool { return hasCode(err, CodeInvalidAddress) }

// IsDataUnavailable reports whether err is a provider data unavailable error.
func IsDataUnavailable(err error) bool { return hasCode(err, CodeDataUnavailable) }

// IsInsufficientData reports whether err is an insufficient data error.
func IsInsufficientData(err error) bool { return hasCode(err, CodeInsufficientData) }

// IsBaselineExists reports whether err is a baseline conflict error.
func IsBaselineExists(err error) bool { return hasCode(err, CodeBaselineExists) }

// HTTPStatusCode maps an error to the HTTP status code the API returns.
func HTTPStatusCode(err error) int {
	var catErr *CategorizedError
	if !errors.As(err, &catErr) {
		return http.StatusInternalServerError
	}

	switch catErr.Category {
	case CategoryUserInput:
		return http.StatusBadRequest
	case CategoryProvider:
		return http.StatusBadGateway
	case CategoryInsufficientData:
		return http.StatusUnprocessableEntity
	case CategoryStorage:
		if catErr.Code == CodeBaselineExists {
			return http.StatusConflict
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the failure class may succeed on retry.
// Only provider failures are retryable; retry policy lives in the caller.
func IsRetryable(err error) bool {
	var catErr *CategorizedError
	if !errors.As(err, &catErr) {
		return false
	}
	return catErr.Category == CategoryProvider
}
