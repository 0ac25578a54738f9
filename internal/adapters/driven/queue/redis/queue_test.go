package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

func newTestQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, err := NewQueue(context.Background(), client)
	require.NoError(t, err)
	return q, client
}

func zcard(t *testing.T, client *redis.Client, key string) int64 {
	t.Helper()
	n, err := client.ZCard(context.Background(), key).Result()
	require.NoError(t, err)
	return n
}

func recomputeTask(postID string, created time.Time) *domain.Task {
	task := domain.NewRecomputeSnapshotTask(postID, "snap-"+postID)
	task.CreatedAt = created
	task.ScheduledFor = created
	return task
}

func TestNewQueue(t *testing.T) {
	_, err := NewQueue(context.Background(), nil)
	assert.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err = NewQueue(context.Background(), client)
	assert.Error(t, err, "unreachable server")
}

func TestReadyScore(t *testing.T) {
	base := time.Now()
	older := recomputeTask("p1", base)
	newer := recomputeTask("p2", base.Add(time.Hour))
	urgent := recomputeTask("p3", base.Add(24*time.Hour))
	urgent.Priority = 1

	assert.Less(t, readyScore(older), readyScore(newer))
	assert.Less(t, readyScore(urgent), readyScore(older))
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	task := recomputeTask("p1", time.Now())
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, "snap-p1", got.SnapshotID())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, got.ID))

	stored, err := q.GetTask(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	assert.Zero(t, zcard(t, client, readyQueue))
	assert.Zero(t, zcard(t, client, claimedSet), "ack drops the claim")
}

func TestQueue_Nack(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	task := recomputeTask("p1", time.Now())
	task.MaxAttempts = 2
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, q.Nack(ctx, got.ID, "db down"))

	stored, err := q.GetTask(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "db down", stored.Error)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	assert.Equal(t, int64(1), zcard(t, client, delayedQueue))
	assert.Zero(t, zcard(t, client, claimedSet))

	none, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, none, "retry waits for its backoff")

	// Make the retry due right away.
	require.NoError(t, client.ZAdd(ctx, delayedQueue, redis.Z{Score: 0, Member: got.ID}).Err())

	retry, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, got.ID, retry.ID)
	assert.Equal(t, 2, retry.Attempts)

	require.NoError(t, q.Nack(ctx, retry.ID, "still down"))
	stored, err = q.GetTask(ctx, retry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "still down", stored.Error)
}

func TestQueue_DelayedTask(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	task := recomputeTask("p1", time.Now())
	task.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, task))

	assert.Zero(t, zcard(t, client, readyQueue))
	assert.Equal(t, int64(1), zcard(t, client, delayedQueue))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_Priority(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	first := recomputeTask("p1", base)
	second := recomputeTask("p2", base.Add(time.Second))
	urgent := recomputeTask("p3", base.Add(2*time.Second))
	urgent.Priority = 5
	require.NoError(t, q.EnqueueBatch(ctx, []*domain.Task{first, second, urgent}))

	var order []string
	for range 3 {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		order = append(order, got.ID)
	}
	assert.Equal(t, []string{urgent.ID, first.ID, second.ID}, order)

	empty, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestQueue_AbandonedClaim(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	task := recomputeTask("p1", time.Now())
	task.MaxAttempts = 2
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	// The worker died: expire its claim.
	require.NoError(t, client.ZAdd(ctx, claimedSet, redis.Z{Score: 0, Member: task.ID}).Err())

	again, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, task.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
	assert.Equal(t, abandonedReason, again.Error)

	require.NoError(t, client.ZAdd(ctx, claimedSet, redis.Z{Score: 0, Member: task.ID}).Err())
	none, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status, "out of attempts")
}

func TestQueue_UnknownTask(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, q.Ack(ctx, "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(ctx, "missing", "x"), domain.ErrNotFound)
	assert.ErrorIs(t, q.CancelTask(ctx, "missing"), domain.ErrNotFound)
}

func TestQueue_ListTasks(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	t1 := recomputeTask("p1", base)
	t2 := recomputeTask("p2", base.Add(time.Second))
	t3 := recomputeTask("p1", base.Add(2*time.Second))
	require.NoError(t, q.EnqueueBatch(ctx, []*domain.Task{t1, t2, t3}))

	all, err := q.ListTasks(ctx, driven.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{t3.ID, t2.ID, t1.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	byPost, err := q.ListTasks(ctx, driven.TaskFilter{PostID: "p1"})
	require.NoError(t, err)
	assert.Len(t, byPost, 2)

	page, err := q.ListTasks(ctx, driven.TaskFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, t2.ID, page[0].ID)

	none, err := q.ListTasks(ctx, driven.TaskFilter{Type: domain.TaskTypeIngestDocument})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueue_CancelTask(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	pending := recomputeTask("p1", time.Now())
	require.NoError(t, q.Enqueue(ctx, pending))
	require.NoError(t, q.CancelTask(ctx, pending.ID))

	stored, err := q.GetTask(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "cancelled", stored.Error)

	assert.ErrorIs(t, q.CancelTask(ctx, pending.ID), domain.ErrTaskNotPending)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "cancelled task is never claimed")
}

func TestQueue_PurgeAndStats(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	done := recomputeTask("p1", time.Now().Add(-time.Second))
	waiting := recomputeTask("p2", time.Now())
	require.NoError(t, q.EnqueueBatch(ctx, []*domain.Task{done, waiting}))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NoError(t, q.Ack(ctx, got.ID))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)
	assert.Equal(t, int64(1), stats.CompletedCount)

	kept, err := q.PurgeTasks(ctx, 3600)
	require.NoError(t, err)
	assert.Zero(t, kept)

	time.Sleep(10 * time.Millisecond)
	purged, err := q.PurgeTasks(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = q.GetTask(ctx, got.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)
	assert.Zero(t, stats.CompletedCount)
}

func TestQueue_Ping(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.NoError(t, q.Ping(context.Background()))
	assert.NoError(t, q.Close())
}
