package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

const (
	schedulerLockName = "scheduler:purge"

	defaultPurgeInterval = time.Hour
	defaultTaskRetention = 7 * 24 * time.Hour
	defaultPurgeLockTTL  = 5 * time.Minute
)

// Scheduler keeps the task queue small: every interval it drops finished
// ingest and recompute tasks older than the retention window. With a
// DistributedLock set, one worker node purges per cycle.
type Scheduler struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	interval  time.Duration
	retention time.Duration
	lockTTL   time.Duration

	mu     sync.RWMutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// SchedulerConfig configures NewScheduler. Zero durations take defaults:
// hourly purges, a week of retention and a five minute lock.
type SchedulerConfig struct {
	TaskQueue     driven.TaskQueue
	Lock          driven.DistributedLock // optional
	Logger        *slog.Logger
	PurgeInterval time.Duration
	Retention     time.Duration
	LockTTL       time.Duration
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    cfg.Logger,
		interval:  orDefault(cfg.PurgeInterval, defaultPurgeInterval),
		retention: orDefault(cfg.Retention, defaultTaskRetention),
		lockTTL:   orDefault(cfg.LockTTL, defaultPurgeLockTTL),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start purges once, then keeps purging in the background until Stop is
// called or ctx ends. Starting a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel, s.doneCh = cancel, make(chan struct{})
	s.logger.Info("scheduler starting", "purge_interval", s.interval, "retention", s.retention)

	go s.run(runCtx, s.doneCh)
	return nil
}

// Stop ends the loop and waits for an in-progress purge to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.doneCh
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.PurgeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PurgeOnce runs a single cycle and reports how many tasks it removed.
// A cycle is skipped, returning 0, while another node holds the lock.
func (s *Scheduler) PurgeOnce(ctx context.Context) int {
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
		if err != nil || !ok {
			s.logger.Debug("purge skipped", "lock_acquired", ok, "error", err)
			return 0
		}
		defer s.releaseLock(ctx)
	}

	removed, err := s.taskQueue.PurgeTasks(ctx, int(s.retention/time.Second))
	if err != nil {
		s.logger.Error("purge tasks", "error", err)
		return 0
	}
	if removed > 0 {
		s.logger.Info("tasks purged", "count", removed, "older_than", s.retention)
	}
	return removed
}

func (s *Scheduler) releaseLock(ctx context.Context) {
	if err := s.lock.Release(context.WithoutCancel(ctx), schedulerLockName); err != nil {
		s.logger.Warn("release purge lock", "error", err)
	}
}
