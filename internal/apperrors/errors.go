package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type categorizes a failure for propagation and HTTP mapping.
type Type string

const (
	TypeBadRequest   Type = "BAD_REQUEST"
	TypeUnauthorized Type = "UNAUTHORIZED"
	TypeForbidden    Type = "FORBIDDEN"
	TypeNotFound     Type = "NOT_FOUND"
	TypeRateLimited  Type = "RATE_LIMITED"
	TypeUpstream     Type = "UPSTREAM_ERROR"
	TypeTool         Type = "TOOL_ERROR"
	TypeInternal     Type = "INTERNAL"
)

// Layer identifies the application layer where the error originated.
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerInfrastructure Layer = "infrastructure"
)

// Error carries the failure category alongside a message safe to surface to
// clients. The wrapped cause is for logs only and must never reach a response
// body, so messages here cannot contain credentials or internal addresses.
type Error struct {
	Type    Type
	Layer   Layer
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s] %s: %v", e.Layer, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s] %s", e.Layer, e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a wrapped cause.
func New(layer Layer, errType Type, message string) *Error {
	return &Error{Type: errType, Layer: layer, Message: message}
}

// Wrap creates an Error around an underlying cause.
func Wrap(layer Layer, errType Type, message string, err error) *Error {
	return &Error{Type: errType, Layer: layer, Message: message, Err: err}
}

// TypeOf extracts the Type from an error chain, defaulting to TypeInternal.
func TypeOf(err error) Type {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return TypeInternal
}

// MessageOf returns the client-safe message from an error chain. Unknown
// errors collapse to a generic message so internal detail never leaks.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// IsType reports whether the error chain carries the given Type.
func IsType(err error, t Type) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// HTTPStatus maps an error Type to its HTTP status code.
func HTTPStatus(t Type) int {
	switch t {
	case TypeBadRequest:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeUpstream:
		return http.StatusBadGateway
	case TypeTool, TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
