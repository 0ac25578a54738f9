package driven

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// TaskQueue carries asynchronous ingest and eligibility recompute work
// from the API to the workers. Redis backs it when configured, Postgres
// otherwise.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *domain.Task) error
	// EnqueueBatch stores all tasks or none of them
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// Dequeue claims the next due task, highest priority first, and marks
	// it processing. It returns nil, nil when nothing is due.
	Dequeue(ctx context.Context) (*domain.Task, error)
	// DequeueWithTimeout is Dequeue that waits up to timeout seconds for a
	// task to become due.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task completed
	Ack(ctx context.Context, taskID string) error
	// Nack records reason and reschedules the task with backoff, or fails
	// it once MaxAttempts is reached.
	Nack(ctx context.Context, taskID string, reason string) error

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	// CancelTask cancels a pending task. Other states give
	// domain.ErrTaskNotPending.
	CancelTask(ctx context.Context, taskID string) error
	// PurgeTasks deletes finished tasks untouched for olderThanSeconds and
	// returns how many went.
	PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error)
	Stats(ctx context.Context) (*QueueStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	PostID string
	Status domain.TaskStatus
	Type   domain.TaskType
	Limit  int
	Offset int
}

// QueueStats counts tasks per status
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
	// OldestPendingAge is in seconds
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
