package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bigsoczeq/ai-chatbot2/internal/domain/tool"
)

func TestCompanyByKRSSuccess(t *testing.T) {
	const apiKey = "sk-registry-secret"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/companies/krs/0000123456" {
			t.Errorf("path = %q, want /api/v1/companies/krs/0000123456", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+apiKey {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"krs":"0000123456","name":"Example Sp. z o.o."}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, apiKey, zerolog.Nop())
	payload, err := client.CompanyByKRS(context.Background(), "0000123456")
	if err != nil {
		t.Fatalf("CompanyByKRS() error = %v", err)
	}
	if !strings.Contains(string(payload), "Example Sp. z o.o.") {
		t.Errorf("payload = %s, want company data", payload)
	}
}

func TestCompanyByKRSStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode tool.ErrorCode
	}{
		{name: "not found", status: http.StatusNotFound, wantCode: tool.ErrCodeNotFound},
		{name: "forbidden", status: http.StatusForbidden, wantCode: tool.ErrCodeForbidden},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, wantCode: tool.ErrCodeInvalidInput},
		{name: "internal", status: http.StatusInternalServerError, wantCode: tool.ErrCodeInternal},
		{name: "bad gateway", status: http.StatusBadGateway, wantCode: tool.ErrCodeUpstreamUnavailable},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, wantCode: tool.ErrCodeUpstreamUnavailable},
		{name: "teapot", status: http.StatusTeapot, wantCode: tool.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "sk-registry-secret", zerolog.Nop())
			_, err := client.CompanyByKRS(context.Background(), "0000123456")
			if err == nil {
				t.Fatal("CompanyByKRS() succeeded, want mapped error")
			}

			var toolErr *tool.Error
			if !errors.As(err, &toolErr) {
				t.Fatalf("error type = %T, want *tool.Error", err)
			}
			if toolErr.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", toolErr.Code, tt.wantCode)
			}
			if strings.Contains(toolErr.Message, "sk-registry-secret") ||
				strings.Contains(toolErr.Message, srv.URL) {
				t.Errorf("error message leaks upstream detail: %q", toolErr.Message)
			}
		})
	}
}

func TestCompanyByKRSUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, "sk-registry-secret", zerolog.Nop())
	_, err := client.CompanyByKRS(context.Background(), "0000123456")
	if err == nil {
		t.Fatal("CompanyByKRS() succeeded, want connection error")
	}

	var toolErr *tool.Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *tool.Error", err)
	}
	if toolErr.Code != tool.ErrCodeUpstreamUnavailable {
		t.Errorf("error code = %q, want %q", toolErr.Code, tool.ErrCodeUpstreamUnavailable)
	}
	if strings.Contains(toolErr.Message, srv.URL) {
		t.Errorf("error message leaks service address: %q", toolErr.Message)
	}
}
