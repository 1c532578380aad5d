// Package errors provides categorized error handling for the form
// autopilot system.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/form-autopilot/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryDetection represents form detection failures
	CategoryDetection ErrorCategory = "detection"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryConnector represents job board connector errors
	CategoryConnector ErrorCategory = "connector"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewDetectionFailedError wraps any failure inside a detection run. Detection
// is all-or-nothing: no partial schema accompanies this error.
func NewDetectionFailedError(url string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDetection,
		StatusCode: http.StatusBadGateway,
		Code:       "DETECTION_FAILED",
		Message:    fmt.Sprintf("form detection failed for %s", url),
		Cause:      cause,
		Details: map[string]interface{}{
			"url": url,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewRetryRejectedError creates an error for retry requests beyond the
// attempt ceiling.
func NewRetryRejectedError(id string, attempts, max int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "MAX_ATTEMPTS_EXCEEDED",
		Message:    fmt.Sprintf("application %s exhausted %d of %d attempts", id, attempts, max),
		Details: map[string]interface{}{
			"id":          id,
			"attempts":    attempts,
			"maxAttempts": max,
		},
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewConnectorError creates a job board connector error
func NewConnectorError(source string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConnector,
		StatusCode: http.StatusBadGateway,
		Code:       "CONNECTOR_ERROR",
		Message:    fmt.Sprintf("job board connector error: %s", source),
		Cause:      cause,
		Details: map[string]interface{}{
			"source": source,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether a failed attempt with the given error type is
// eligible for another automatic attempt. CAPTCHA and mapping-validation
// failures repeat identically until the schema or candidate data changes,
// so they are terminal for automation.
func IsRetryable(errorType types.ErrorType) bool {
	switch errorType {
	case types.ErrorCaptcha, types.ErrorValidation:
		return false
	}
	return true
}
