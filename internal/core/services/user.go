package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

var _ driving.UserService = (*userService)(nil)

const minPasswordLength = 8

// userService administers analyst accounts. Any change that affects what an
// analyst may do revokes their sessions, so the next request re-authenticates.
type userService struct {
	users    driven.UserStore
	sessions driven.SessionStore
	crypto   driven.AuthAdapter
	logger   *slog.Logger
}

// NewUserService creates the account service. A nil logger uses slog.Default.
func NewUserService(users driven.UserStore, sessions driven.SessionStore, crypto driven.AuthAdapter, logger *slog.Logger) driving.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{users: users, sessions: sessions, crypto: crypto, logger: logger}
}

// Setup creates the first admin. It is refused once any account exists.
func (s *userService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	req.Email, req.Name = normaliseEmail(req.Email), strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: setup already completed", domain.ErrForbidden)
	}

	admin, err := s.Create(ctx, driving.CreateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}
	return &driving.SetupResponse{User: admin, Message: "Setup complete. You can now log in."}, nil
}

func (s *userService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	// Validate the stored form.
	req.Email, req.Name = normaliseEmail(req.Email), strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	email := req.Email
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: analyst %s", domain.ErrAlreadyExists, email)
	}

	hash, err := s.crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateID(),
		Email:        email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("analyst created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, normaliseEmail(email))
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Update applies the non-nil fields. Role changes and deactivation revoke
// the analyst's sessions.
func (s *userService) Update(ctx context.Context, id string, req driving.UpdateUserRequest) (*domain.User, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *req.Role)
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	revoke := false
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil && *req.Role != user.Role {
		user.Role, revoke = *req.Role, true
	}
	if req.Active != nil {
		revoke = revoke || (user.Active && !*req.Active)
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	if revoke {
		s.revokeSessions(ctx, id)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if _, err := s.users.Get(ctx, id); err != nil {
		return err
	}
	s.revokeSessions(ctx, id)
	return s.users.Delete(ctx, id)
}

// SetPassword is the admin reset. The analyst is logged out everywhere.
func (s *userService) SetPassword(ctx context.Context, id string, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	user, err := s.users.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.PasswordHash, err = s.crypto.HashPassword(password); err != nil {
		return err
	}
	user.UpdatedAt = time.Now()
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	return s.sessions.DeleteByUser(ctx, id)
}

func (s *userService) revokeSessions(ctx context.Context, userID string) {
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn("revoke sessions", "user_id", userID, "error", err)
	}
}
