package errors

import (
	"fmt"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  code.StatusCode(),
	}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error
func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// InvalidArguments creates an INVALID_ARGUMENTS error for malformed or missing parameters.
// field may be empty when the failure is not tied to one parameter.
func InvalidArguments(field, message string) *APIError {
	e := newError(ErrInvalidArguments, message)
	e.Field = field
	return e
}

// InvalidContent is returned when user text is rejected by the content filter
func InvalidContent(field string) *APIError {
	e := newError(ErrInvalidContent, "content contains forbidden words")
	e.Field = field
	return e
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	return newError(ErrInternalError, message)
}

// AlreadyExists creates an ALREADY_EXISTS error
func AlreadyExists(resource string) *APIError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

// OperationInProgress is returned when a per-object lock is already held
func OperationInProgress(operation string) *APIError {
	return newError(ErrOperationInProgress, fmt.Sprintf("%s failed, please try again later", operation))
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// Upstream wraps an error reported by a third-party platform
func Upstream(platform, message string) *APIError {
	e := newError(ErrUpstream, message)
	e.Details = platform
	return e
}

// Timeout creates a TIMEOUT error
func Timeout(operation string) *APIError {
	return newError(ErrTimeout, fmt.Sprintf("%s timed out", operation))
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(retryAfter int) *APIError {
	return newError(ErrRateLimited, fmt.Sprintf("too many requests, retry in %ds", retryAfter))
}
