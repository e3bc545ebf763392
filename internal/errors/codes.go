package errors

import "net/http"

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrForbidden           ErrorCode = "FORBIDDEN"
	ErrConflict            ErrorCode = "CONFLICT"
	ErrInvalidArguments    ErrorCode = "INVALID_ARGUMENTS"
	ErrInvalidContent      ErrorCode = "INVALID_CONTENT"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
	ErrAlreadyExists       ErrorCode = "ALREADY_EXISTS"
	ErrOperationInProgress ErrorCode = "OPERATION_IN_PROGRESS"
	ErrServiceUnavail      ErrorCode = "SERVICE_UNAVAILABLE"
	ErrUpstream            ErrorCode = "UPSTREAM_ERROR"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
)

// StatusCodeMap maps ErrorCode to HTTP status code
var StatusCodeMap = map[ErrorCode]int{
	ErrNotFound:            http.StatusNotFound,
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrForbidden:           http.StatusForbidden,
	ErrConflict:            http.StatusConflict,
	ErrInvalidArguments:    http.StatusBadRequest,
	ErrInvalidContent:      http.StatusUnprocessableEntity,
	ErrInternalError:       http.StatusInternalServerError,
	ErrAlreadyExists:       http.StatusConflict,
	ErrOperationInProgress: http.StatusConflict,
	ErrServiceUnavail:      http.StatusServiceUnavailable,
	ErrUpstream:            http.StatusBadGateway,
	ErrTimeout:             http.StatusGatewayTimeout,
	ErrRateLimited:         http.StatusTooManyRequests,
}

// StatusCode returns the HTTP status code for this error code
func (e ErrorCode) StatusCode() int {
	if code, ok := StatusCodeMap[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
