package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.UserStore = (*UserStore)(nil)

var userColumns = []string{"id", "email", "password_hash", "name", "role", "active",
	"created_at", "updated_at", "last_login_at"}

// UserStore keeps analyst accounts in the users table.
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	var lastLoginAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = TimePtr(lastLoginAt)
	return &user, nil
}

// Save creates or updates a user. A second account with the same email
// returns domain.ErrAlreadyExists.
func (s *UserStore) Save(ctx context.Context, user *domain.User) error {
	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.PasswordHash, user.Name, string(user.Role), user.Active,
			user.CreatedAt, user.UpdatedAt, NullTime(user.LastLoginAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			last_login_at = EXCLUDED.last_login_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return mapErr(err, "save user "+user.ID)
	}
	return nil
}

func (s *UserStore) getBy(ctx context.Context, where sq.Eq, what string) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapErr(err, what)
	}
	return user, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getBy(ctx, sq.Eq{"id": id}, "user "+id)
}

// GetByEmail expects an already normalised address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getBy(ctx, sq.Eq{"email": email}, "user "+email)
}

// List retrieves all analysts ordered by name
func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").OrderBy("name", "id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the number of analysts
func (s *UserStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("users").ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Delete deletes a user and, by cascade, their sessions
func (s *UserStore) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("users").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return requireRow(result, "user "+id)
}

// UpdateLastLogin stamps last_login_at with the database clock.
func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	query, args, err := psql.Update("users").
		Set("last_login_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update last login %s: %w", id, err)
	}
	return requireRow(result, "user "+id)
}
