package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bigsoczeq/ai-chatbot2/internal/config"
	"github.com/bigsoczeq/ai-chatbot2/internal/domain/chat"
)

func TestHeaderIdentityWhenAuthDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		headers   map[string]string
		wantUser  string
		wantClass chat.UserClass
	}{
		{
			name:      "no headers defaults to guest",
			wantUser:  "guest",
			wantClass: chat.ClassGuest,
		},
		{
			name:      "user header",
			headers:   map[string]string{"X-User-ID": "user-42"},
			wantUser:  "user-42",
			wantClass: chat.ClassGuest,
		},
		{
			name:      "regular class",
			headers:   map[string]string{"X-User-ID": "user-42", "X-User-Class": "regular"},
			wantUser:  "user-42",
			wantClass: chat.ClassRegular,
		},
		{
			name:      "unknown class stays guest",
			headers:   map[string]string{"X-User-ID": "user-42", "X-User-Class": "admin"},
			wantUser:  "user-42",
			wantClass: chat.ClassGuest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &Validator{cfg: &config.Config{AuthEnabled: false}}
			var got Identity

			router := gin.New()
			router.Use(validator.Middleware())
			router.GET("/probe", func(c *gin.Context) {
				got = IdentityFromContext(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got.UserID != tt.wantUser {
				t.Errorf("user = %q, want %q", got.UserID, tt.wantUser)
			}
			if got.Class != tt.wantClass {
				t.Errorf("class = %q, want %q", got.Class, tt.wantClass)
			}
		})
	}
}

func TestMiddlewareRejectsMissingBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &Validator{cfg: &config.Config{AuthEnabled: true}}

	router := gin.New()
	router.Use(validator.Middleware())
	router.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "empty", header: "", want: ""},
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "no token", header: "Bearer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bearerToken(tt.header); got != tt.want {
				t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
