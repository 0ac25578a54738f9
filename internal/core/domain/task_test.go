package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask(TaskTypeRecomputeSnapshot, "post-1", nil)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, DefaultMaxAttempts, task.MaxAttempts)
	assert.Zero(t, task.Attempts)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.ScheduledFor)
	assert.True(t, task.IsReady())
}

func TestTaskPayloads(t *testing.T) {
	key := DocumentKey{DocumentID: "doc-1", ExtractionRunID: "run-1"}

	ingest := NewIngestDocumentTask(key, `{"events":[]}`)
	assert.Equal(t, TaskTypeIngestDocument, ingest.Type)
	assert.Empty(t, ingest.PostID)
	assert.Equal(t, key, ingest.DocumentKey())
	assert.Equal(t, `{"events":[]}`, ingest.RecordSet())
	assert.Empty(t, ingest.SnapshotID())

	recompute := NewRecomputeSnapshotTask("post-1", "snap-1")
	assert.Equal(t, TaskTypeRecomputeSnapshot, recompute.Type)
	assert.Equal(t, "post-1", recompute.PostID)
	assert.Equal(t, "snap-1", recompute.SnapshotID())
	assert.Equal(t, DocumentKey{}, recompute.DocumentKey())

	bare := &Task{}
	assert.Empty(t, bare.SnapshotID())
	assert.Empty(t, bare.RecordSet())
	assert.Equal(t, DocumentKey{}, bare.DocumentKey())
}

func TestTask_CanRetry(t *testing.T) {
	for attempts, want := range map[int]bool{0: true, 2: true, 3: false, 4: false} {
		task := &Task{Attempts: attempts, MaxAttempts: 3}
		assert.Equal(t, want, task.CanRetry(), "attempts=%d", attempts)
	}
}

func TestTask_IsReady(t *testing.T) {
	past, future := time.Now().Add(-time.Minute), time.Now().Add(time.Minute)
	tests := map[string]struct {
		status TaskStatus
		due    time.Time
		want   bool
	}{
		"due":         {TaskStatusPending, past, true},
		"not yet due": {TaskStatusPending, future, false},
		"claimed":     {TaskStatusProcessing, past, false},
		"finished":    {TaskStatusCompleted, past, false},
		"given up":    {TaskStatusFailed, past, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, (&Task{Status: tt.status, ScheduledFor: tt.due}).IsReady())
		})
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := NewRecomputeSnapshotTask("post-1", "snap-1")

	task.MarkProcessing()
	assert.Equal(t, TaskStatusProcessing, task.Status)
	require.NotNil(t, task.StartedAt)
	assert.Equal(t, 1, task.Attempts)

	before := time.Now()
	task.Retry("store unavailable")
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Equal(t, "store unavailable", task.Error)
	assert.False(t, task.ScheduledFor.Before(before.Add(2*time.Second)))
	assert.False(t, task.IsReady())

	task.MarkProcessing()
	task.MarkFailed(CancelledReason)
	assert.Equal(t, TaskStatusFailed, task.Status)
	assert.Equal(t, CancelledReason, task.Error)

	task.MarkCompleted()
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.Empty(t, task.Error)
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{-1, time.Second},
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{8, 256 * time.Second},
		{9, 5 * time.Minute},
		{63, 5 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RetryBackoff(tt.attempts), "attempts=%d", tt.attempts)
	}
}
