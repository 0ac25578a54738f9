package services

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

var _ driving.AuthService = (*authService)(nil)

const defaultSessionTTL = 24 * time.Hour

// AuthOption customises NewAuthService
type AuthOption func(*authService)

// WithSessionTTL sets how long issued tokens and their sessions live.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *authService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAuthLogger sets the logger for login and revocation events.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(s *authService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// authService logs analysts in and checks their tokens. A token is only
// honoured while its session exists, so deleting sessions revokes tokens.
type authService struct {
	users      driven.UserStore
	sessions   driven.SessionStore
	crypto     driven.AuthAdapter
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthService(users driven.UserStore, sessions driven.SessionStore, crypto driven.AuthAdapter, opts ...AuthOption) driving.AuthService {
	s := &authService{
		users:      users,
		sessions:   sessions,
		crypto:     crypto,
		sessionTTL: defaultSessionTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, normaliseEmail(req.Email))
	switch {
	case err != nil:
		return nil, domain.ErrInvalidCredentials
	case !user.Active:
		return nil, domain.ErrUnauthorized
	case !s.crypto.VerifyPassword(req.Password, user.PasswordHash):
		s.logger.Warn("login rejected", "user_id", user.ID)
		return nil, domain.ErrInvalidCredentials
	}

	resp, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("record last login", "user_id", user.ID, "error", err)
	}
	s.logger.Info("analyst logged in", "user_id", user.ID, "role", user.Role)
	return resp, nil
}

// startSession signs a token for user and stores the session backing it.
func (s *authService) startSession(ctx context.Context, user *domain.User) (*domain.LoginResponse, error) {
	now := time.Now()
	session := &domain.Session{
		ID:           domain.GenerateID(),
		UserID:       user.ID,
		RefreshToken: newRefreshToken(),
		ExpiresAt:    now.Add(s.sessionTTL),
		CreatedAt:    now,
	}

	token, err := s.crypto.GenerateToken(&domain.TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.ID,
		IssuedAt:  now.Unix(),
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}
	session.Token = token

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		Token:        token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User:         user.ToSummary(),
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.crypto.ParseToken(token)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, domain.ErrTokenInvalid
	case time.Now().Unix() > claims.ExpiresAt:
		return nil, domain.ErrTokenExpired
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	return &domain.AuthContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: claims.SessionID,
	}, nil
}

// RefreshToken trades a refresh token for a fresh session. The old session
// is deleted, so each refresh token works once.
func (s *authService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if req.RefreshToken == "" {
		return nil, domain.ErrTokenInvalid
	}

	old, err := s.sessions.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if old.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	user, err := s.users.Get(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUnauthorized
	}

	if err := s.sessions.Delete(ctx, old.ID); err != nil {
		return nil, err
	}
	return s.startSession(ctx, user)
}

// Logout ends the session behind token. Unparseable tokens are ignored.
func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.crypto.ParseToken(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("sessions revoked", "user_id", userID)
	return nil
}

// ChangePassword replaces the caller's password and revokes all of their
// sessions, including the current one.
func (s *authService) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !s.crypto.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.crypto.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.LogoutAll(ctx, userID)
}

// newRefreshToken returns 128 random bits, base32 encoded.
func newRefreshToken() string {
	return rand.Text()
}
