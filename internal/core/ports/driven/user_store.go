package driven

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// UserStore persists analyst accounts in Postgres. Missing accounts give
// domain.ErrNotFound.
type UserStore interface {
	// Save upserts by ID
	Save(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List orders analysts by name
	List(ctx context.Context) ([]*domain.User, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}
