package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// withRole runs next with an auth context for role, or none when role is empty
func withRole(role domain.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role != "" {
			r = r.WithContext(context.WithValue(r.Context(), authContextKey, &domain.AuthContext{UserID: "u1", Role: role}))
		}
		next.ServeHTTP(w, r)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]struct {
		header string
		want   string
	}{
		"bearer":           {"Bearer abc123", "abc123"},
		"extra spaces":     {"Bearer   token-with-spaces   ", "token-with-spaces"},
		"lowercase scheme": {"bearer token123", "token123"},
		"empty":            {"", ""},
		"no scheme":        {"token123", ""},
		"basic auth":       {"Basic dXNlcjpwYXNz", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(req))
		})
	}
}

func TestGetAuthContext(t *testing.T) {
	assert.Nil(t, GetAuthContext(context.Background()))
	assert.Nil(t, GetAuthContext(context.WithValue(context.Background(), authContextKey, "not an auth context")))

	want := &domain.AuthContext{UserID: "u1", Role: domain.RoleAuditor}
	got := GetAuthContext(context.WithValue(context.Background(), authContextKey, want))
	assert.Same(t, want, got)
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	tests := map[string]struct {
		header  string
		err     error
		status  int
		message string
	}{
		"missing token":      {"", nil, http.StatusUnauthorized, "missing authorization token"},
		"valid":              {"Bearer analyst", nil, http.StatusOK, ""},
		"expired":            {"Bearer t", domain.ErrTokenExpired, http.StatusUnauthorized, "token expired"},
		"wrapped expiry":     {"Bearer t", fmt.Errorf("validate: %w", domain.ErrTokenExpired), http.StatusUnauthorized, "token expired"},
		"session revoked":    {"Bearer t", domain.ErrSessionNotFound, http.StatusUnauthorized, "session not found"},
		"malformed":          {"Bearer t", domain.ErrTokenInvalid, http.StatusUnauthorized, "invalid token"},
		"unknown validation": {"Bearer t", domain.ErrUnauthorized, http.StatusUnauthorized, "invalid token"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var seen *domain.AuthContext
			auth := &mockAuthService{validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.AuthContext{UserID: "u1", Role: domain.Role(token)}, nil
			}}
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetAuthContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			NewAuthMiddleware(auth).Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, domain.RoleAnalyst, seen.Role)
				return
			}
			assert.Nil(t, seen)
			assert.Equal(t, tt.message, decode[ErrorResponse](t, rr).Error)
		})
	}
}

func TestAuthMiddleware_RoleGates(t *testing.T) {
	m := NewAuthMiddleware(&mockAuthService{})
	tests := []struct {
		role     domain.Role
		reviewer int
		admin    int
	}{
		{"", http.StatusUnauthorized, http.StatusUnauthorized},
		{domain.RoleViewer, http.StatusForbidden, http.StatusForbidden},
		{domain.RoleAnalyst, http.StatusOK, http.StatusForbidden},
		{domain.RoleAuditor, http.StatusOK, http.StatusForbidden},
		{domain.RoleAdmin, http.StatusOK, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			rr := httptest.NewRecorder()
			withRole(tt.role, m.RequireReviewer(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/", nil))
			assert.Equal(t, tt.reviewer, rr.Code, "reviewer gate")

			rr = httptest.NewRecorder()
			withRole(tt.role, m.RequireAdmin(okHandler())).ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/", nil))
			assert.Equal(t, tt.admin, rr.Code, "admin gate")
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("hello"))
	})
	h := NewLoggingMiddleware(logger).Handler(next)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"path":"/api/v1/posts"`)
	assert.Contains(t, buf.String(), `"bytes":5`)

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"status":502`)
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("overlay exploded")
	})

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		NewRecoveryMiddleware(logger).Handler(panicky).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/s1", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal server error", decode[ErrorResponse](t, rr).Error)
	assert.Contains(t, buf.String(), "overlay exploded")
}

func TestCORSMiddleware(t *testing.T) {
	tests := map[string]struct {
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantStatus int
	}{
		"listed origin":     {[]string{"https://review.example.com"}, "https://review.example.com", http.MethodGet, "https://review.example.com", http.StatusOK},
		"wildcard":          {[]string{"*"}, "https://any.example.com", http.MethodPatch, "https://any.example.com", http.StatusOK},
		"disallowed origin": {[]string{"https://review.example.com"}, "https://evil.example.com", http.MethodGet, "", http.StatusOK},
		"preflight":         {[]string{"https://review.example.com"}, "https://review.example.com", http.MethodOptions, "https://review.example.com", http.StatusNoContent},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/snapshots/s1/nodes/n1", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			NewCORSMiddleware(tt.allowed).Handler(okHandler()).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	n, err := rw.Write([]byte("missing"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, 7, n)
	assert.Equal(t, 7, rw.written)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
