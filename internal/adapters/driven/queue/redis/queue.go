package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

// Keys. Task records are JSON strings; the sorted sets hold task IDs.
const (
	taskKeyPrefix = "sitrep:task:"

	// taskIndex scores every known task by creation time, for listing
	taskIndex = "sitrep:tasks:index"
	// readyQueue holds due tasks, scored by readyScore
	readyQueue = "sitrep:tasks:ready"
	// delayedQueue holds tasks scored by when they become due (unix ms)
	delayedQueue = "sitrep:tasks:delayed"
	// claimedSet holds claimed tasks scored by their claim deadline (unix ms)
	claimedSet = "sitrep:tasks:claimed"
)

const (
	// claimTimeout is how long a worker may hold a task before another
	// worker takes it over.
	claimTimeout = 5 * time.Minute
	// taskTTL bounds how long a record outlives its last update
	taskTTL      = 8 * 24 * time.Hour
	pollInterval = 100 * time.Millisecond

	// priorityWeight makes one priority step outweigh any age difference
	priorityWeight = 1e13

	abandonedReason = "claim expired"
)

var _ driven.TaskQueue = (*Queue)(nil)

// Queue is the Redis task queue. Claims pop the lowest readyScore from a
// sorted set, so at most one worker gets each task. Claimed tasks whose
// worker vanished are re-queued once their claim deadline passes.
type Queue struct {
	client *redis.Client
}

// NewQueue checks that client is reachable. The client stays owned by the
// caller.
func NewQueue(ctx context.Context, client *redis.Client) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis task queue: nil client")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis task queue: %w", err)
	}
	return &Queue{client: client}, nil
}

// readyScore orders claims: higher priority first, then older first.
func readyScore(task *domain.Task) float64 {
	return float64(task.CreatedAt.UnixMilli()) - float64(task.Priority)*priorityWeight
}

func unixMilli(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// put queues the write of task's record on pipe
func put(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
	return nil
}

// schedule queues task on pipe into readyQueue when due, delayedQueue otherwise
func schedule(ctx context.Context, pipe redis.Pipeliner, task *domain.Task, now time.Time) {
	if task.ScheduledFor.After(now) {
		pipe.ZAdd(ctx, delayedQueue, redis.Z{Score: unixMilli(task.ScheduledFor), Member: task.ID})
		return
	}
	pipe.ZAdd(ctx, readyQueue, redis.Z{Score: readyScore(task), Member: task.ID})
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", domain.ErrInvalidInput)
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch writes all tasks in one MULTI/EXEC.
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	now := time.Now()
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, task := range tasks {
			if task == nil {
				continue
			}
			if err := put(ctx, pipe, task); err != nil {
				return err
			}
			pipe.ZAdd(ctx, taskIndex, redis.Z{Score: float64(task.CreatedAt.UnixNano()), Member: task.ID})
			schedule(ctx, pipe, task, now)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue %d tasks: %w", len(tasks), err)
	}
	return nil
}

// Dequeue claims the best ready task without waiting. Abandoned claims and
// delayed tasks that fell due are moved to readyQueue first.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	now := time.Now()
	if err := q.recoverAbandoned(ctx, now); err != nil {
		return nil, err
	}
	if err := q.promoteDue(ctx, now); err != nil {
		return nil, err
	}

	for {
		popped, err := q.client.ZPopMin(ctx, readyQueue, 1).Result()
		if err != nil {
			return nil, fmt.Errorf("pop ready task: %w", err)
		}
		if len(popped) == 0 {
			return nil, nil
		}
		id, _ := popped[0].Member.(string)

		task, err := q.claim(ctx, id, now)
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrTaskNotPending) {
			continue
		}
		return task, err
	}
}

// DequeueWithTimeout polls every pollInterval until a task is claimed or
// timeout seconds have passed.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		task, err := q.Dequeue(ctx)
		if err != nil || task != nil || !time.Now().Before(deadline) {
			return task, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// claim marks a popped task processing and records its claim deadline.
// Records that expired or left the pending state meanwhile are skipped.
func (q *Queue) claim(ctx context.Context, id string, now time.Time) (*domain.Task, error) {
	task, err := q.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusPending {
		return nil, domain.ErrTaskNotPending
	}

	task.MarkProcessing()
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, claimedSet, redis.Z{Score: unixMilli(now.Add(claimTimeout)), Member: id})
		return put(ctx, pipe, task)
	})
	if err != nil {
		return nil, fmt.Errorf("claim task %s: %w", id, err)
	}
	return task, nil
}

// takeDue removes the members of set scored at or below now. Each member
// is removed with its own ZREM, so of two racing workers only one sees it.
func (q *Queue) takeDue(ctx context.Context, set string, now time.Time) ([]string, error) {
	ids, err := q.client.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", set, err)
	}

	taken := ids[:0]
	for _, id := range ids {
		n, err := q.client.ZRem(ctx, set, id).Result()
		if err != nil {
			return nil, fmt.Errorf("take %s from %s: %w", id, set, err)
		}
		if n == 1 {
			taken = append(taken, id)
		}
	}
	return taken, nil
}

func (q *Queue) promoteDue(ctx context.Context, now time.Time) error {
	ids, err := q.takeDue(ctx, delayedQueue, now)
	if err != nil {
		return err
	}
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := q.client.ZAdd(ctx, readyQueue, redis.Z{Score: readyScore(task), Member: id}).Err(); err != nil {
			return fmt.Errorf("promote task %s: %w", id, err)
		}
	}
	return nil
}

// recoverAbandoned re-queues tasks whose claim deadline passed, or fails
// them once they are out of attempts.
func (q *Queue) recoverAbandoned(ctx context.Context, now time.Time) error {
	ids, err := q.takeDue(ctx, claimedSet, now)
	if err != nil {
		return err
	}
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if task.Status != domain.TaskStatusProcessing {
			continue
		}

		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if !task.CanRetry() {
				task.MarkFailed(abandonedReason)
				return put(ctx, pipe, task)
			}
			task.Retry(abandonedReason)
			task.ScheduledFor = now
			schedule(ctx, pipe, task, now)
			return put(ctx, pipe, task)
		})
		if err != nil {
			return fmt.Errorf("recover task %s: %w", id, err)
		}
	}
	return nil
}

// finish loads a claimed task, applies fn to it and stores the result while
// dropping the claim.
func (q *Queue) finish(ctx context.Context, taskID string, fn func(pipe redis.Pipeliner, task *domain.Task)) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, claimedSet, taskID)
		fn(pipe, task)
		return put(ctx, pipe, task)
	})
	if err != nil {
		return fmt.Errorf("finish task %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	return q.finish(ctx, taskID, func(_ redis.Pipeliner, task *domain.Task) {
		task.MarkCompleted()
	})
}

// Nack re-queues the task after its backoff while attempts remain and
// fails it otherwise.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	return q.finish(ctx, taskID, func(pipe redis.Pipeliner, task *domain.Task) {
		if !task.CanRetry() {
			task.MarkFailed(reason)
			return
		}
		task.Retry(reason)
		schedule(ctx, pipe, task, time.Now())
	})
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return &task, nil
}

// scan calls fn for every indexed task, newest first, until fn returns
// false. Index entries whose record expired are pruned on the way.
func (q *Queue) scan(ctx context.Context, fn func(task *domain.Task) bool) error {
	ids, err := q.client.ZRevRange(ctx, taskIndex, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("read task index: %w", err)
	}
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			q.client.ZRem(ctx, taskIndex, id)
			continue
		}
		if err != nil {
			return err
		}
		if !fn(task) {
			return nil
		}
	}
	return nil
}

func matches(filter driven.TaskFilter, task *domain.Task) bool {
	return (filter.PostID == "" || task.PostID == filter.PostID) &&
		(filter.Status == "" || task.Status == filter.Status) &&
		(filter.Type == "" || task.Type == filter.Type)
}

// ListTasks returns matching tasks, newest first.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	skip := filter.Offset
	err := q.scan(ctx, func(task *domain.Task) bool {
		if !matches(filter, task) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		tasks = append(tasks, task)
		return filter.Limit <= 0 || len(tasks) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CancelTask fails a pending task with domain.CancelledReason and takes it
// out of both queues.
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.TaskStatusPending {
		return fmt.Errorf("%w: task %s is %s", domain.ErrTaskNotPending, taskID, task.Status)
	}

	task.MarkFailed(domain.CancelledReason)
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, readyQueue, taskID)
		pipe.ZRem(ctx, delayedQueue, taskID)
		return put(ctx, pipe, task)
	})
	if err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)

	var stale []string
	err := q.scan(ctx, func(task *domain.Task) bool {
		finished := task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed
		if finished && task.UpdatedAt.Before(cutoff) {
			stale = append(stale, task.ID)
		}
		return true
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range stale {
			pipe.Del(ctx, taskKeyPrefix+id)
			pipe.ZRem(ctx, taskIndex, id)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return len(stale), nil
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	var st driven.QueueStats
	var oldest time.Time

	counts := map[domain.TaskStatus]*int64{
		domain.TaskStatusPending:    &st.PendingCount,
		domain.TaskStatusProcessing: &st.ProcessingCount,
		domain.TaskStatusCompleted:  &st.CompletedCount,
		domain.TaskStatusFailed:     &st.FailedCount,
	}
	err := q.scan(ctx, func(task *domain.Task) bool {
		if n, ok := counts[task.Status]; ok {
			*n++
		}
		if task.Status == domain.TaskStatusPending && (oldest.IsZero() || task.CreatedAt.Before(oldest)) {
			oldest = task.CreatedAt
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if !oldest.IsZero() {
		st.OldestPendingAge = int64(time.Since(oldest) / time.Second)
	}
	return &st, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close leaves the shared client open.
func (q *Queue) Close() error {
	return nil
}
