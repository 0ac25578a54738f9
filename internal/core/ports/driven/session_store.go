package driven

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// SessionStore persists analyst sessions. Redis when configured, Postgres
// otherwise. Lookups of a missing session return an error wrapping
// domain.ErrNotFound.
type SessionStore interface {
	// Save upserts a session, expiring it at ExpiresAt
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByUser revokes every session of userID
	DeleteByUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
