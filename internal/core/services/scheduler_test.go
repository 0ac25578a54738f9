package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven/mocks"
)

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{TaskQueue: mocks.NewMockTaskQueue()})

	assert.Equal(t, time.Hour, s.interval)
	assert.Equal(t, 7*24*time.Hour, s.retention)
	assert.Equal(t, 5*time.Minute, s.lockTTL)
	assert.NotNil(t, s.logger)
}

func TestScheduler_PurgeOnce(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	var gotAge int
	queue.PurgeFn = func(olderThanSeconds int) (int, error) {
		gotAge = olderThanSeconds
		return 3, nil
	}
	lock := mocks.NewMockDistributedLock()
	s := NewScheduler(SchedulerConfig{TaskQueue: queue, Lock: lock, Retention: 2 * time.Hour})

	assert.Equal(t, 3, s.PurgeOnce(context.Background()))
	assert.Equal(t, 7200, gotAge)
	assert.False(t, lock.IsHeld(schedulerLockName), "lock released after the cycle")
}

func TestScheduler_PurgeOnce_LockHeld(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	var calls atomic.Int32
	queue.PurgeFn = func(int) (int, error) {
		calls.Add(1)
		return 1, nil
	}
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(schedulerLockName, time.Minute)
	s := NewScheduler(SchedulerConfig{TaskQueue: queue, Lock: lock})

	assert.Equal(t, 0, s.PurgeOnce(context.Background()))
	assert.Equal(t, int32(0), calls.Load())
}

func TestScheduler_PurgeOnce_Errors(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	queue.PurgeFn = func(int) (int, error) { return 0, errors.New("db down") }
	lock := mocks.NewMockDistributedLock()
	s := NewScheduler(SchedulerConfig{TaskQueue: queue, Lock: lock})
	assert.Equal(t, 0, s.PurgeOnce(context.Background()))

	lock.AcquireFn = func(string, time.Duration) (bool, error) { return false, errors.New("redis down") }
	assert.Equal(t, 0, s.PurgeOnce(context.Background()))
}

func TestScheduler_StartStop(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	var calls atomic.Int32
	queue.PurgeFn = func(int) (int, error) {
		calls.Add(1)
		return 0, nil
	}
	s := NewScheduler(SchedulerConfig{TaskQueue: queue, PurgeInterval: 10 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestScheduler_ContextCancel(t *testing.T) {
	s := NewScheduler(SchedulerConfig{TaskQueue: mocks.NewMockTaskQueue(), PurgeInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	s.mu.RLock()
	done := s.doneCh
	s.mu.RUnlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, time.Minute, orDefault(0, time.Minute))
	assert.Equal(t, time.Minute, orDefault(-time.Second, time.Minute))
	assert.Equal(t, time.Second, orDefault(time.Second, time.Minute))
}
