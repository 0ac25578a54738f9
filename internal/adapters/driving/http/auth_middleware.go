package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// tokenRejections are the 401 messages for tokens ValidateToken refuses,
// checked in order. Anything else reads "invalid token".
var tokenRejections = []struct {
	err error
	msg string
}{
	{domain.ErrTokenExpired, "token expired"},
	{domain.ErrSessionNotFound, "session not found"},
}

// AuthMiddleware turns bearer tokens into a domain.AuthContext and gates
// routes by role.
type AuthMiddleware struct {
	authService driving.AuthService
}

func NewAuthMiddleware(authService driving.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate rejects requests without a valid bearer token with 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		authCtx, err := m.authService.ValidateToken(r.Context(), token)
		if err != nil {
			msg := "invalid token"
			for _, rej := range tokenRejections {
				if errors.Is(err, rej.err) {
					msg = rej.msg
					break
				}
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authContextKey, authCtx)))
	})
}

// RequireAdmin must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, (*domain.AuthContext).IsAdmin, "admin access required")
}

// RequireReviewer admits analysts, auditors and admins. It must run after
// Authenticate.
func (m *AuthMiddleware) RequireReviewer(next http.Handler) http.Handler {
	return requireRole(next, (*domain.AuthContext).CanReview, "reviewer access required")
}

func requireRole(next http.Handler, allowed func(*domain.AuthContext) bool, denied string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r.Context())
		switch {
		case authCtx == nil:
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case !allowed(authCtx):
			writeError(w, http.StatusForbidden, denied)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// GetAuthContext returns the caller set by Authenticate, or nil.
func GetAuthContext(ctx context.Context) *domain.AuthContext {
	authCtx, _ := ctx.Value(authContextKey).(*domain.AuthContext)
	return authCtx
}

// extractBearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" for any other scheme.
func extractBearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
