package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

func testSession(id, userID string) *domain.Session {
	return &domain.Session{
		ID:           id,
		UserID:       userID,
		Token:        "token-" + id,
		RefreshToken: "refresh-" + id,
		ExpiresAt:    time.Now().Add(24 * time.Hour).Truncate(time.Second),
		CreatedAt:    time.Now().Truncate(time.Second),
		UserAgent:    "Mozilla/5.0",
		IPAddress:    "192.168.1.1",
	}
}

func TestSessionStore_SaveAndLookup(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := testSession("s1", "u1")
	require.NoError(t, store.Save(ctx, session))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.ExpiresAt.Equal(session.ExpiresAt))
	assert.Equal(t, session.UserAgent, got.UserAgent)

	byToken, err := store.GetByToken(ctx, "token-s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byToken.ID)

	byRefresh, err := store.GetByRefreshToken(ctx, "refresh-s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byRefresh.ID)

	ttl := mr.TTL(sessionPrefix + "s1")
	assert.True(t, ttl > 23*time.Hour && ttl <= 24*time.Hour, "ttl follows ExpiresAt, got %s", ttl)
}

func TestSessionStore_NotFound(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByRefreshToken(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "missing"))
	assert.NoError(t, store.DeleteByToken(ctx, "missing"))
	assert.NoError(t, store.DeleteByUser(ctx, "nobody"))
}

func TestSessionStore_ExpiredIsNotSaved(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)

	session := testSession("s1", "u1")
	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(context.Background(), session))
	assert.False(t, mr.Exists(sessionPrefix+"s1"))
}

func TestSessionStore_SaveRotatesTokens(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	session := testSession("s1", "u1")
	require.NoError(t, store.Save(ctx, session))

	session.Token = "token-rotated"
	session.RefreshToken = "refresh-rotated"
	require.NoError(t, store.Save(ctx, session))

	_, err := store.GetByToken(ctx, "token-s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetByRefreshToken(ctx, "refresh-s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, mr.Exists(sessionTokenPrefix+"token-s1"))

	got, err := store.GetByToken(ctx, "token-rotated")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
}

func TestSessionStore_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1", "u1")))
	require.NoError(t, store.Save(ctx, testSession("s2", "u1")))

	require.NoError(t, store.Delete(ctx, "s1"))
	for _, key := range []string{sessionPrefix + "s1", sessionTokenPrefix + "token-s1", sessionRefreshPrefix + "refresh-s1"} {
		assert.False(t, mr.Exists(key), key)
	}
	members, err := mr.SMembers(sessionUserPrefix + "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, members)

	require.NoError(t, store.DeleteByToken(ctx, "token-s2"))
	_, err = store.Get(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_DeleteByUser(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1", "u1")))
	require.NoError(t, store.Save(ctx, testSession("s2", "u1")))
	require.NoError(t, store.Save(ctx, testSession("s3", "u2")))

	require.NoError(t, store.DeleteByUser(ctx, "u1"))

	assert.False(t, mr.Exists(sessionPrefix+"s1"))
	assert.False(t, mr.Exists(sessionPrefix+"s2"))
	assert.False(t, mr.Exists(sessionUserPrefix+"u1"))

	other, err := store.ListByUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "s3", other[0].ID)
}

func TestSessionStore_ListByUser_PrunesExpired(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	long := testSession("s1", "u1")
	short := testSession("s2", "u1")
	short.ExpiresAt = time.Now().Add(time.Minute)
	require.NoError(t, store.Save(ctx, long))
	require.NoError(t, store.Save(ctx, short))

	sessions, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	mr.FastForward(2 * time.Minute)

	sessions, err = store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)

	members, err := mr.SMembers(sessionUserPrefix + "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)
}

func TestSessionStore_Empty(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewSessionStore(client)

	sessions, err := store.ListByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
