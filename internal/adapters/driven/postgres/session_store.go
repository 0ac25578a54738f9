package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

var sessionColumns = []string{"id", "user_id", "token", "refresh_token", "expires_at",
	"created_at", "user_agent", "ip_address"}

// SessionStore implements driven.SessionStore using PostgreSQL. It backs
// sessions when Redis is not configured.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UserAgent,
		&session.IPAddress,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Save upserts the session row. Rotated tokens overwrite the old ones.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	query, args, err := psql.Insert("sessions").
		Columns(sessionColumns...).
		Values(session.ID, session.UserID, session.Token, session.RefreshToken,
			session.ExpiresAt, session.CreatedAt, session.UserAgent, session.IPAddress).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			user_agent = EXCLUDED.user_agent,
			ip_address = EXCLUDED.ip_address`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapErr(err, "save session "+session.ID)
	}
	return nil
}

func (s *SessionStore) getBy(ctx context.Context, where sq.Eq) (*domain.Session, error) {
	query, args, err := psql.Select(sessionColumns...).From("sessions").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	session, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapErr(err, "session")
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.getBy(ctx, sq.Eq{"id": id})
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.getBy(ctx, sq.Eq{"token": token})
}

// GetByRefreshToken never matches the empty token of sessions issued
// without one.
func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	}
	return s.getBy(ctx, sq.Eq{"refresh_token": refreshToken})
}

func (s *SessionStore) deleteWhere(ctx context.Context, where sq.Eq) error {
	query, args, err := psql.Delete("sessions").Where(where).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

// Delete deletes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.deleteWhere(ctx, sq.Eq{"id": id})
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	return s.deleteWhere(ctx, sq.Eq{"token": token})
}

// DeleteByUser revokes every session of userID.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	return s.deleteWhere(ctx, sq.Eq{"user_id": userID})
}

// ListByUser returns the unexpired sessions of userID, newest first.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	query, args, err := psql.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"user_id": userID}).
		Where("expires_at > NOW()").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
