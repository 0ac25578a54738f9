package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval is how often DequeueWithTimeout looks for a ready task.
const pollInterval = 250 * time.Millisecond

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var taskColumns = []string{
	"id", "type", "post_id", "payload", "status", "priority",
	"attempts", "max_attempts", "error", "created_at", "updated_at",
	"started_at", "completed_at", "scheduled_for",
}

// Queue keeps tasks in the tasks table of the DOM database. Workers claim
// rows with FOR UPDATE SKIP LOCKED, so concurrent claims never collide.
// Used when no Redis is configured.
type Queue struct {
	db *sql.DB
}

// NewQueue wraps db. The tasks table comes from the postgres schema.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var postID sql.NullString
	var payload []byte
	var started, completed sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Type,
		&postID,
		&payload,
		&task.Status,
		&task.Priority,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&task.CreatedAt,
		&task.UpdatedAt,
		&started,
		&completed,
		&task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	task.PostID = postID.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of task %s: %w", task.ID, err)
		}
	}
	task.StartedAt = nullTime(started)
	task.CompletedAt = nullTime(completed)
	return &task, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func insertTask(task *domain.Task) (string, []any, error) {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return "", nil, fmt.Errorf("encode payload of task %s: %w", task.ID, err)
	}
	return psql.Insert("tasks").
		Columns("id", "type", "post_id", "payload", "status", "priority",
			"attempts", "max_attempts", "error", "created_at", "updated_at", "scheduled_for").
		Values(task.ID, task.Type, sql.NullString{String: task.PostID, Valid: task.PostID != ""},
			payload, task.Status, task.Priority, task.Attempts, task.MaxAttempts,
			task.Error, task.CreatedAt, task.UpdatedAt, task.ScheduledFor).
		ToSql()
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch inserts tasks in one transaction.
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, task := range tasks {
		query, args, err := insertTask(task)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("enqueue task %s: %w", task.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enqueue: %w", err)
	}
	return nil
}

// Dequeue claims the next ready task. Claiming is one statement: the inner
// SELECT skips rows locked by other workers.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	next := psql.Select("id").From("tasks").
		Where(sq.Eq{"status": domain.TaskStatusPending}).
		Where("scheduled_for <= NOW()").
		OrderBy("priority DESC", "created_at ASC").
		Limit(1).
		Suffix("FOR UPDATE SKIP LOCKED")

	now := time.Now()
	query, args, err := psql.Update("tasks").
		Set("status", domain.TaskStatusProcessing).
		Set("started_at", now).
		Set("updated_at", now).
		Set("attempts", sq.Expr("attempts + 1")).
		Where(sq.Expr("id = (?)", next)).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, err
	}

	task, err := scanTask(q.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// DequeueWithTimeout polls every pollInterval until a task is claimed or
// timeout seconds have passed.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.Dequeue(ctx)
		if err != nil || task != nil {
			return task, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ack completes a claimed task and clears its last error.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	now := time.Now()
	query, args, err := psql.Update("tasks").
		Set("status", domain.TaskStatusCompleted).
		Set("completed_at", now).
		Set("updated_at", now).
		Set("error", "").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return err
	}
	return q.execOne(ctx, query, args...)
}

// Nack records reason. The task goes back to pending after its backoff
// while attempts remain and fails otherwise.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	update := psql.Update("tasks").
		Set("error", reason).
		Set("updated_at", now).
		Where(sq.Eq{"id": taskID})

	if task.CanRetry() {
		update = update.Set("status", domain.TaskStatusPending).
			Set("scheduled_for", now.Add(domain.RetryBackoff(task.Attempts)))
	} else {
		update = update.Set("status", domain.TaskStatusFailed)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return err
	}
	return q.execOne(ctx, query, args...)
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.Select(taskColumns...).From("tasks").Where(sq.Eq{"id": taskID}).ToSql()
	if err != nil {
		return nil, err
	}

	task, err := scanTask(q.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return task, nil
}

// ListTasks returns matching tasks, newest first.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	b := psql.Select(taskColumns...).From("tasks").OrderBy("created_at DESC")
	if filter.PostID != "" {
		b = b.Where(sq.Eq{"post_id": filter.PostID})
	}
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{"type": filter.Type})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CancelTask fails a pending task with domain.CancelledReason. The status
// check is part of the UPDATE, so a task claimed meanwhile is left alone.
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	query, args, err := psql.Update("tasks").
		Set("status", domain.TaskStatusFailed).
		Set("updated_at", time.Now()).
		Set("error", domain.CancelledReason).
		Where(sq.Eq{"id": taskID, "status": domain.TaskStatusPending}).
		ToSql()
	if err != nil {
		return err
	}
	err = q.execOne(ctx, query, args...)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	task, getErr := q.GetTask(ctx, taskID)
	if getErr != nil {
		return getErr
	}
	return fmt.Errorf("%w: task %s is %s", domain.ErrTaskNotPending, taskID, task.Status)
}

func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	query, args, err := psql.Delete("tasks").
		Where(sq.Eq{"status": []domain.TaskStatus{domain.TaskStatusCompleted, domain.TaskStatusFailed}}).
		Where(sq.Lt{"updated_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

const statsQuery = `
SELECT
	COUNT(*) FILTER (WHERE status = 'pending'),
	COUNT(*) FILTER (WHERE status = 'processing'),
	COUNT(*) FILTER (WHERE status = 'completed'),
	COUNT(*) FILTER (WHERE status = 'failed'),
	COALESCE(EXTRACT(EPOCH FROM NOW() - MIN(created_at) FILTER (WHERE status = 'pending'))::bigint, 0)
FROM tasks`

// Stats counts tasks per status in a single scan.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	var st driven.QueueStats
	err := q.db.QueryRowContext(ctx, statsQuery).Scan(
		&st.PendingCount,
		&st.ProcessingCount,
		&st.CompletedCount,
		&st.FailedCount,
		&st.OldestPendingAge,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &st, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close leaves the shared *sql.DB open.
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func columnList() string {
	return strings.Join(taskColumns, ", ")
}
