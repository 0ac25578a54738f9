package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*Adapter)(nil)

// Issuer is the iss claim of every token this adapter signs
const Issuer = "sitrep-core"

// analystClaims is the JWT form of domain.TokenClaims
type analystClaims struct {
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"sid"`
	jwt.RegisteredClaims
}

// Adapter handles password hashing with bcrypt and analyst tokens with HS256 JWTs
type Adapter struct {
	jwtSecret  []byte
	bcryptCost int
	parser     *jwt.Parser
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return NewAdapterWithCost(jwtSecret, bcrypt.DefaultCost)
}

// NewAdapterWithCost creates a new auth adapter with custom bcrypt cost
func NewAdapterWithCost(jwtSecret string, bcryptCost int) *Adapter {
	return &Adapter{
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// HashPassword generates a bcrypt hash from a plaintext password
func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches a bcrypt hash
func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a signed JWT from domain claims. The user id is
// carried as the subject.
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	ac := analystClaims{
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, ac).SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims. Expired tokens
// return domain.ErrTokenExpired, every other failure domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	var ac analystClaims
	_, err := a.parser.ParseWithClaims(tokenString, &ac, func(*jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if ac.Subject == "" || ac.SessionID == "" || !ac.Role.Valid() {
		return nil, fmt.Errorf("%w: incomplete claims", domain.ErrTokenInvalid)
	}

	claims := &domain.TokenClaims{
		UserID:    ac.Subject,
		Email:     ac.Email,
		Role:      ac.Role,
		SessionID: ac.SessionID,
		ExpiresAt: ac.ExpiresAt.Unix(),
	}
	if ac.IssuedAt != nil {
		claims.IssuedAt = ac.IssuedAt.Unix()
	}
	return claims, nil
}
