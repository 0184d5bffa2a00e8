package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bigsoczeq/ai-chatbot2/internal/apperrors"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		errType apperrors.Type
		want    int
	}{
		{apperrors.TypeBadRequest, http.StatusBadRequest},
		{apperrors.TypeUnauthorized, http.StatusUnauthorized},
		{apperrors.TypeForbidden, http.StatusForbidden},
		{apperrors.TypeNotFound, http.StatusNotFound},
		{apperrors.TypeRateLimited, http.StatusTooManyRequests},
		{apperrors.TypeUpstream, http.StatusBadGateway},
		{apperrors.TypeTool, http.StatusInternalServerError},
		{apperrors.TypeInternal, http.StatusInternalServerError},
		{apperrors.Type("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			if got := apperrors.HTTPStatus(tt.errType); got != tt.want {
				t.Errorf("HTTPStatus(%q) = %d, want %d", tt.errType, got, tt.want)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	base := apperrors.New(apperrors.LayerDomain, apperrors.TypeForbidden, "not the owner")
	wrapped := fmt.Errorf("submit turn: %w", base)

	if got := apperrors.TypeOf(wrapped); got != apperrors.TypeForbidden {
		t.Errorf("TypeOf(wrapped) = %q, want %q", got, apperrors.TypeForbidden)
	}
	if got := apperrors.TypeOf(errors.New("plain")); got != apperrors.TypeInternal {
		t.Errorf("TypeOf(plain) = %q, want %q", got, apperrors.TypeInternal)
	}
}

func TestMessageOf(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.3:5432: connection refused")
	err := apperrors.Wrap(apperrors.LayerRepository, apperrors.TypeInternal, "failed to append message", cause)

	msg := apperrors.MessageOf(err)
	if msg != "failed to append message" {
		t.Errorf("MessageOf() = %q, want client-safe message", msg)
	}

	// Unknown errors must collapse to a generic message; the cause text stays in logs.
	if got := apperrors.MessageOf(cause); got != "an unexpected error occurred" {
		t.Errorf("MessageOf(cause) = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := apperrors.Wrap(apperrors.LayerInfrastructure, apperrors.TypeUpstream, "model provider failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if !apperrors.IsType(err, apperrors.TypeUpstream) {
		t.Error("IsType should match the carried type")
	}
	if apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Error("IsType matched the wrong type")
	}
}
