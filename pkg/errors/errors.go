// Package errors provides the typed error values shared across the API.
//
// Two kinds of errors live here: sentinel errors returned by services and
// repositories, and *Error, the typed API error the response formatter maps
// onto a failure envelope. An *Error's Message must always be safe to show
// to callers; anything that is not an *Error is reported as a generic
// internal error.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in failure envelopes.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// Common errors
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// Error is an API error with a caller-facing message, an HTTP status, and a
// machine-readable code.
type Error struct {
	Code    string
	Status  int
	Message string
	// Fields holds field-level validation detail, keyed by field name.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

// Validation builds a 422 error carrying field-level detail.
func Validation(fields map[string]string) *Error {
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: "request validation failed",
		Fields:  fields,
	}
}

// RateLimited builds a 429 error.
func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusConflict, Message: message}
}

// Internal builds the generic 500 error. The original cause is never carried
// here; it belongs in the server-side log only.
func Internal() *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal server error"}
}

// AsError unwraps err into an *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
