package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "sitrep:lock:"

// ErrLockNotHeld is returned by Extend for a lock this instance does not hold.
var ErrLockNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock using SET NX with a TTL.
//
// Every successful Acquire stores a fresh token as the key's value, so a
// holder whose TTL ran out cannot release or extend the lock of whoever
// took it next.
type Lock struct {
	client  *redis.Client
	ownerID string

	mu     sync.Mutex
	tokens map[string]string
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client *redis.Client) *Lock {
	hostname, _ := os.Hostname()
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		tokens:  make(map[string]string),
	}
}

// Acquire attempts to take the named lock for ttl.
// Returns false if it is held by anyone, this instance included.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	token := l.ownerID + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockPrefix+name, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if ok {
		l.mu.Lock()
		l.tokens[name] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release releases the named lock if this instance holds it.
// Releasing a lock that expired or was never taken is not an error.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	token, ok := l.tokens[name]
	delete(l.tokens, name)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// extendScript resets the TTL of KEYS[1] only while it still holds ARGV[1].
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend resets the TTL of a lock this instance holds.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	token, ok := l.tokens[name]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}

	n, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		l.mu.Lock()
		delete(l.tokens, name)
		l.mu.Unlock()
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this instance (hostname:pid) for logging.
func (l *Lock) OwnerID() string {
	return l.ownerID
}
