// Package errors provides structured error handling with HTTP status code
// mapping for the API surface.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/richardvergely/GeoNature/internal/domain"
)

// ErrorType categorizes an error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
	// TypeUnavailable indicates a dependency is unreachable (HTTP 503)
	TypeUnavailable ErrorType = "unavailable"
)

// Error is a structured error with type, message, and context fields.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithContext adds a context field to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// UnavailableError creates a new dependency-unavailable error (HTTP 503).
func UnavailableError(message string, cause error) *Error {
	return &Error{Type: TypeUnavailable, Message: message, Cause: cause}
}

// ErrorResponse is the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error. Domain
// sentinels map to not-found; everything else unknown becomes internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}

	switch {
	case errors.Is(err, domain.ErrMapNotFound):
		return NotFoundError("map not found")
	case errors.Is(err, domain.ErrReleveNotFound):
		return NotFoundError("releve not found")
	case errors.Is(err, domain.ErrPayloadNotFound):
		return NotFoundError("no payload pushed yet")
	}

	return InternalError("internal server error", err)
}
