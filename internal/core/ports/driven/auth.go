package driven

import "github.com/custodia-labs/sitrep-core/internal/core/domain"

// AuthAdapter hashes analyst passwords and signs session tokens.
// Session persistence lives in SessionStore.
type AuthAdapter interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	GenerateToken(claims *domain.TokenClaims) (string, error)
	// ParseToken returns domain.ErrTokenExpired or domain.ErrTokenInvalid
	ParseToken(token string) (*domain.TokenClaims, error)
}
