package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTaskNotPending is returned when cancelling a task a worker already
// claimed or finished.
var ErrTaskNotPending = errors.New("task is not pending")

// GenerateID returns a random UUID string.
func GenerateID() string {
	return uuid.NewString()
}

// TaskType names the work a queued task carries
type TaskType string

const (
	// TaskTypeIngestDocument stores a record set that was too large or too
	// slow to ingest inline.
	TaskTypeIngestDocument TaskType = "ingest_document"
	// TaskTypeRecomputeSnapshot rebuilds one snapshot's commit eligibility.
	TaskTypeRecomputeSnapshot TaskType = "recompute_snapshot"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Payload keys
const (
	payloadDocumentID      = "document_id"
	payloadExtractionRunID = "extraction_run_id"
	payloadRecordSet       = "record_set"
	payloadSnapshotID      = "snapshot_id"
)

const (
	// DefaultMaxAttempts bounds how often a task is claimed before it fails
	DefaultMaxAttempts = 3
	maxRetryBackoff    = 5 * time.Minute
)

// CancelledReason is the error recorded on cancelled tasks
const CancelledReason = "cancelled"

// Task is a unit of queued work. Payload values are strings so every queue
// backend can store them without a schema per type.
type Task struct {
	ID     string   `json:"id"`
	Type   TaskType `json:"type"`
	PostID string   `json:"post_id,omitempty"` // empty until ingest has created the post
	// Payload holds document_id, extraction_run_id and record_set for
	// ingest tasks, snapshot_id for recompute tasks.
	Payload map[string]string `json:"payload"`
	Status  TaskStatus        `json:"status"`
	// Priority orders claims, highest first
	Priority    int    `json:"priority"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewTask returns a pending task that is due immediately.
func NewTask(taskType TaskType, postID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		PostID:       postID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestDocumentTask queues recordSet, JSON encoded, for ingestion under key.
func NewIngestDocumentTask(key DocumentKey, recordSet string) *Task {
	return NewTask(TaskTypeIngestDocument, "", map[string]string{
		payloadDocumentID:      key.DocumentID,
		payloadExtractionRunID: key.ExtractionRunID,
		payloadRecordSet:       recordSet,
	})
}

func NewRecomputeSnapshotTask(postID, snapshotID string) *Task {
	return NewTask(TaskTypeRecomputeSnapshot, postID, map[string]string{
		payloadSnapshotID: snapshotID,
	})
}

// Reading a nil map yields "", so the accessors need no guard.

func (t *Task) SnapshotID() string { return t.Payload[payloadSnapshotID] }

func (t *Task) RecordSet() string { return t.Payload[payloadRecordSet] }

func (t *Task) DocumentKey() DocumentKey {
	return DocumentKey{
		DocumentID:      t.Payload[payloadDocumentID],
		ExtractionRunID: t.Payload[payloadExtractionRunID],
	}
}

// CanRetry reports whether another attempt is allowed
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady reports whether a worker may claim the task now
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && !time.Now().Before(t.ScheduledFor)
}

// MarkProcessing records a claim and counts it as an attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status, t.StartedAt, t.UpdatedAt = TaskStatusProcessing, &now, now
	t.Attempts++
}

func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status, t.CompletedAt, t.UpdatedAt = TaskStatusCompleted, &now, now
	t.Error = ""
}

func (t *Task) MarkFailed(reason string) {
	t.Status, t.UpdatedAt, t.Error = TaskStatusFailed, time.Now(), reason
}

// Retry puts the task back in the queue, due after RetryBackoff.
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status, t.UpdatedAt, t.Error = TaskStatusPending, now, reason
	t.ScheduledFor = now.Add(RetryBackoff(t.Attempts))
}

// RetryBackoff doubles from one second per attempt, capped at five minutes.
func RetryBackoff(attempts int) time.Duration {
	switch {
	case attempts <= 0:
		return time.Second
	case attempts >= 9:
		return maxRetryBackoff
	}
	return min(time.Duration(1<<attempts)*time.Second, maxRetryBackoff)
}
