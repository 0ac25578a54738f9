package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// Keys. A session is a hash; the token keys point at its ID and the user
// set lists the IDs of an analyst's sessions.
const (
	sessionPrefix        = "sitrep:session:"
	sessionTokenPrefix   = "sitrep:session-token:"
	sessionRefreshPrefix = "sitrep:session-refresh:"
	sessionUserPrefix    = "sitrep:session-user:"

	// userSetTTL keeps a user's session set alive past its longest session
	userSetTTL = 30 * 24 * time.Hour
)

// sessionHash is the stored form of a session. Times are unix milliseconds.
type sessionHash struct {
	UserID       string `redis:"user_id"`
	Token        string `redis:"token"`
	RefreshToken string `redis:"refresh_token"`
	ExpiresAt    int64  `redis:"expires_at"`
	CreatedAt    int64  `redis:"created_at"`
	UserAgent    string `redis:"user_agent"`
	IPAddress    string `redis:"ip_address"`
}

func toHash(s *domain.Session) *sessionHash {
	return &sessionHash{
		UserID:       s.UserID,
		Token:        s.Token,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UnixMilli(),
		CreatedAt:    s.CreatedAt.UnixMilli(),
		UserAgent:    s.UserAgent,
		IPAddress:    s.IPAddress,
	}
}

func (h *sessionHash) session(id string) *domain.Session {
	return &domain.Session{
		ID:           id,
		UserID:       h.UserID,
		Token:        h.Token,
		RefreshToken: h.RefreshToken,
		ExpiresAt:    time.UnixMilli(h.ExpiresAt),
		CreatedAt:    time.UnixMilli(h.CreatedAt),
		UserAgent:    h.UserAgent,
		IPAddress:    h.IPAddress,
	}
}

// SessionStore keeps sessions in Redis. Every key of a session expires
// with it, so expired sessions need no sweeping.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save writes the session and its token keys. An already expired session
// is dropped silently. Re-saving a session with rotated tokens removes the
// keys of the old ones.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	prev, err := s.Get(ctx, session.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	key := sessionPrefix + session.ID
	userKey := sessionUserPrefix + session.UserID
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev != nil {
			if prev.Token != session.Token {
				pipe.Del(ctx, sessionTokenPrefix+prev.Token)
			}
			if prev.RefreshToken != "" && prev.RefreshToken != session.RefreshToken {
				pipe.Del(ctx, sessionRefreshPrefix+prev.RefreshToken)
			}
		}
		pipe.HSet(ctx, key, toHash(session))
		pipe.Expire(ctx, key, ttl)
		pipe.Set(ctx, sessionTokenPrefix+session.Token, session.ID, ttl)
		if session.RefreshToken != "" {
			pipe.Set(ctx, sessionRefreshPrefix+session.RefreshToken, session.ID, ttl)
		}
		pipe.SAdd(ctx, userKey, session.ID)
		pipe.Expire(ctx, userKey, userSetTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// decode turns an HGETALL reply into a session. An empty reply means the
// hash does not exist.
func decode(id string, cmd *redis.MapStringStringCmd) (*domain.Session, error) {
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	var h sessionHash
	if err := cmd.Scan(&h); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return h.session(id), nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return decode(id, s.client.HGetAll(ctx, sessionPrefix+id))
}

// lookup follows a token key to its session.
func (s *SessionStore) lookup(ctx context.Context, key string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("session: %w", domain.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}
	return s.Get(ctx, id)
}

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.lookup(ctx, sessionTokenPrefix+token)
}

func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return s.lookup(ctx, sessionRefreshPrefix+refreshToken)
}

// Delete removes a session. Missing sessions are ignored.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.deleteFound(ctx, func() (*domain.Session, error) { return s.Get(ctx, id) })
}

func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	return s.deleteFound(ctx, func() (*domain.Session, error) { return s.GetByToken(ctx, token) })
}

func (s *SessionStore) deleteFound(ctx context.Context, find func() (*domain.Session, error)) error {
	session, err := find()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	return s.remove(ctx, []*domain.Session{session})
}

// DeleteByUser removes every session of userID and the user's set.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	sessions, _, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, sessions); err != nil {
		return err
	}
	return s.client.Del(ctx, sessionUserPrefix+userID).Err()
}

// ListByUser returns the live sessions of userID and prunes the IDs of
// sessions that are gone from the user's set.
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, gone, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	live := make([]*domain.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.IsExpired() {
			gone = append(gone, session.ID)
			continue
		}
		live = append(live, session)
	}
	if len(gone) > 0 {
		s.client.SRem(ctx, sessionUserPrefix+userID, gone)
	}
	return live, nil
}

// loadUser reads every session in the user's set in one round trip. gone
// holds the IDs whose hash has expired.
func (s *SessionStore) loadUser(ctx context.Context, userID string) (sessions []*domain.Session, gone []string, err error) {
	ids, err := s.client.SMembers(ctx, sessionUserPrefix+userID).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions of %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return nil, nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, sessionPrefix+id)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load sessions of %s: %w", userID, err)
	}

	for i, id := range ids {
		session, err := decode(id, cmds[i])
		if errors.Is(err, domain.ErrNotFound) {
			gone = append(gone, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, gone, nil
}

// remove deletes sessions with all of their keys in one transaction.
func (s *SessionStore) remove(ctx context.Context, sessions []*domain.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, session := range sessions {
			pipe.Del(ctx, sessionPrefix+session.ID, sessionTokenPrefix+session.Token)
			if session.RefreshToken != "" {
				pipe.Del(ctx, sessionRefreshPrefix+session.RefreshToken)
			}
			pipe.SRem(ctx, sessionUserPrefix+session.UserID, session.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
