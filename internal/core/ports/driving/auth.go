package driving

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// AuthService logs analysts in and turns bearer tokens into an
// AuthContext. Tokens stay valid only while their session does.
type AuthService interface {
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	// ValidateToken returns domain.ErrTokenInvalid, domain.ErrTokenExpired
	// or domain.ErrSessionNotFound for tokens that must be refused.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
	// RefreshToken rotates the session. A refresh token is single use.
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error
	// ChangePassword also ends every session of userID.
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}
