// Package errors provides custom error types and error handling utilities.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Client errors (4xx).
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeEmptyQuery        = "EMPTY_QUERY"
	CodeEmptyIndex        = "EMPTY_INDEX"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"

	// Server errors (5xx).
	CodeInternal      = "INTERNAL_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	CodeTimeout       = "TIMEOUT"
	CodeIndexingError = "INDEXING_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodeBackendError  = "BACKEND_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidRequest, CodeEmptyQuery, CodeDimensionMismatch:
		return http.StatusBadRequest
	case CodeNotFound, CodeEmptyIndex:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// EmptyQueryError indicates retrieval was attempted with an empty query.
func EmptyQueryError() *AppError {
	return New(CodeEmptyQuery, "query is empty")
}

// EmptyIndexError indicates retrieval was attempted against an empty index.
func EmptyIndexError() *AppError {
	return New(CodeEmptyIndex, "index is empty")
}

// DimensionMismatchError reports a query/document dimension disagreement.
func DimensionMismatchError(queryDim, docDim int) *AppError {
	return New(CodeDimensionMismatch,
		fmt.Sprintf("query has %d dimensions, document has %d", queryDim, docDim))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// JSON marshals the error to a JSON response body.
func (e *AppError) JSON() []byte {
	b, err := json.Marshal(map[string]*AppError{"error": e})
	if err != nil {
		return []byte(`{"error":{"code":"INTERNAL_ERROR","message":"failed to encode error"}}`)
	}
	return b
}
