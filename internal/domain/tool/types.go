package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// ErrorCode is the closed taxonomy of structured tool failures. Every code
// maps to a message safe to show the model and, indirectly, the user.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "not-found"
	ErrCodeForbidden           ErrorCode = "forbidden"
	ErrCodeInvalidInput        ErrorCode = "invalid-input"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream-unavailable"
	ErrCodeInternal            ErrorCode = "internal"
)

// Error is a structured tool failure. It is fed back into the model's
// context as content, never surfaced as an unrecoverable fault.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a structured tool error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Result is the normalized outcome of one tool invocation. Exactly one of
// Output and Error is set.
type Result struct {
	CallID   string          `json:"call_id"`
	ToolName string          `json:"tool_name"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    *Error          `json:"error,omitempty"`
}

// IsError reports whether the invocation failed.
func (r *Result) IsError() bool {
	return r.Error != nil
}

// ModelContent renders the result as text for the model's next round.
func (r *Result) ModelContent() string {
	if r.Error != nil {
		payload, _ := json.Marshal(map[string]string{"error": r.Error.Message})
		return string(payload)
	}
	if len(r.Output) > 0 {
		return string(r.Output)
	}
	return "[tool execution completed]"
}

// Tool declares an external capability the model may invoke. Args returns a
// prototype struct whose jsonschema tags declare the argument contract.
type Tool interface {
	Name() string
	Description() string
	Args() any
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// CompanyRegistry is the outbound contract of the company-registry lookup
// service. Implementations map transport failures to *Error values.
type CompanyRegistry interface {
	CompanyByKRS(ctx context.Context, krsNumber string) (json.RawMessage, error)
}
