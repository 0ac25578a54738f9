package driven

import (
	"context"
	"time"
)

// DistributedLock serialises work across instances: lifecycle advances of
// one post, and scheduler cycles.
type DistributedLock interface {
	// Acquire takes name for at most ttl. It returns false without error
	// when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up name. Releasing a lock that is not held is a no-op.
	Release(ctx context.Context, name string) error

	// Extend pushes the deadline of a held lock to now+ttl. Backends
	// without deadlines (Postgres advisory locks) only check ownership.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks the backend
	Ping(ctx context.Context) error
}
