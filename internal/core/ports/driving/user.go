package driving

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

type CreateUserRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Name     string      `json:"name" validate:"required"`
	Role     domain.Role `json:"role" validate:"required,oneof=admin auditor analyst viewer"`
}

// UpdateUserRequest changes only its non-nil fields.
type UpdateUserRequest struct {
	Name   *string      `json:"name,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
	Active *bool        `json:"active,omitempty"`
}

// SetupRequest creates the first admin of an empty installation.
type SetupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type SetupResponse struct {
	User    *domain.User `json:"user"`
	Message string       `json:"message"`
}

// UserService administers analyst accounts. Apart from Setup, callers
// must be admins; the HTTP layer enforces that.
type UserService interface {
	// Setup fails with domain.ErrForbidden once any account exists.
	Setup(ctx context.Context, req SetupRequest) (*SetupResponse, error)
	Create(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id string, password string) error
}
