package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/core/services"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

const (
	defaultDequeueTimeout = 5 // seconds
	dequeueErrorBackoff   = time.Second
)

// Task outcomes, as recorded in metrics
const (
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeNacked    = "nacked"
)

type taskHandler func(ctx context.Context, task *domain.Task) error

// Worker drains the task queue: asynchronous ingests and eligibility
// recomputes. Tasks that fail a precondition are acked, since they would
// fail the same way on every attempt. Other failures are nacked for retry.
type Worker struct {
	taskQueue   driven.TaskQueue
	ingest      driving.IngestService
	eligibility driving.EligibilityService
	scheduler   *services.Scheduler
	metrics     *metrics.Metrics
	logger      *slog.Logger
	handlers    map[domain.TaskType]taskHandler

	concurrency    int
	dequeueTimeout int // seconds

	mu          sync.RWMutex
	running     bool
	stopDequeue context.CancelFunc
	done        chan struct{}
}

// WorkerConfig configures NewWorker. Scheduler and Metrics are optional.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Ingest         driving.IngestService
	Eligibility    driving.EligibilityService
	Scheduler      *services.Scheduler
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	Concurrency    int // processing goroutines, default 1
	DequeueTimeout int // seconds each dequeue waits for a task, default 5
}

func NewWorker(cfg WorkerConfig) *Worker {
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		ingest:         cfg.Ingest,
		eligibility:    cfg.Eligibility,
		scheduler:      cfg.Scheduler,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		concurrency:    max(cfg.Concurrency, 1),
		dequeueTimeout: cfg.DequeueTimeout,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = defaultDequeueTimeout
	}
	w.handlers = map[domain.TaskType]taskHandler{
		domain.TaskTypeIngestDocument:    w.ingestDocument,
		domain.TaskTypeRecomputeSnapshot: w.recomputeSnapshot,
	}
	return w
}

// Start launches the processing goroutines and the scheduler, then returns.
// They run until Stop is called or ctx is cancelled. Starting a running
// worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dequeueCtx, cancel := context.WithCancel(ctx)
	w.running, w.stopDequeue, w.done = true, cancel, make(chan struct{})

	w.logger.Info("worker starting", "concurrency", w.concurrency, "dequeue_timeout", w.dequeueTimeout)
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("start scheduler", "error", err)
		}
	}

	var g errgroup.Group
	for id := range w.concurrency {
		g.Go(func() error {
			w.loop(ctx, dequeueCtx, w.logger.With("worker_id", id))
			return nil
		})
	}
	done := w.done
	go func() {
		_ = g.Wait()
		close(done)
	}()
	return nil
}

// Stop stops claiming tasks, lets in-flight tasks finish and waits for the
// goroutines to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.stopDequeue()
	done := w.done
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	<-done

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	w.logger.Info("worker stopped")
}

// Wait blocks until every processing goroutine has exited.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.done
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// loop claims tasks with dequeueCtx and processes them with ctx, so that
// Stop interrupts a waiting dequeue but not a running task.
func (w *Worker) loop(ctx, dequeueCtx context.Context, logger *slog.Logger) {
	for dequeueCtx.Err() == nil {
		task, err := w.taskQueue.DequeueWithTimeout(dequeueCtx, w.dequeueTimeout)
		switch {
		case dequeueCtx.Err() != nil:
		case err != nil:
			logger.Error("dequeue task", "error", err)
			select {
			case <-time.After(dequeueErrorBackoff):
			case <-dequeueCtx.Done():
			}
		case task != nil:
			w.processTask(ctx, task, logger)
		}
	}
}

// processTask runs the handler for task and acks or nacks it.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "post_id", task.PostID, "attempt", task.Attempts)
	start := time.Now()

	var err error
	if handle, ok := w.handlers[task.Type]; ok {
		err = handle(ctx, task)
	} else {
		err = fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, task.Type)
	}
	took := time.Since(start)

	outcome := outcomeCompleted
	switch {
	case err == nil:
		logger.Info("task completed", "duration", took)
	case isPermanent(err):
		outcome = outcomeRejected
		logger.Warn("task rejected", "duration", took, "error", err)
	default:
		outcome = outcomeNacked
		logger.Error("task failed", "duration", took, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("nack task", "error", nackErr)
		}
	}
	w.metrics.ObserveTask(task.Type, outcome, took)

	if outcome != outcomeNacked {
		if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
			logger.Error("ack task", "error", ackErr)
		}
	}
}

func isPermanent(err error) bool {
	return domain.IsDomRejection(err) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound)
}

// ingestDocument stores a queued record set. A redelivered task whose
// document key is already ingested counts as done.
func (w *Worker) ingestDocument(ctx context.Context, task *domain.Task) error {
	raw := task.RecordSet()
	if raw == "" {
		return fmt.Errorf("%w: task has no record_set", domain.ErrInvalidInput)
	}
	req := driving.IngestRequest{DocumentKey: task.DocumentKey()}
	if err := json.Unmarshal([]byte(raw), &req.RecordSet); err != nil {
		return fmt.Errorf("%w: decode record_set: %v", domain.ErrInvalidInput, err)
	}

	res, err := w.ingest.Ingest(ctx, req)
	switch {
	case errors.Is(err, domain.ErrAlreadyIngested):
		w.logger.Info("document already ingested", "document_id", req.DocumentID, "extraction_run_id", req.ExtractionRunID)
		return nil
	case err != nil:
		return err
	}
	w.logger.Info("document ingested", "post_id", res.Post.ID, "snapshot_id", res.Snapshot.ID, "events", len(res.Records.Events))
	return nil
}

// recomputeSnapshot rebuilds eligibility of a current snapshot. If the
// post advanced meanwhile, the snapshot's table is frozen and is left as is.
func (w *Worker) recomputeSnapshot(ctx context.Context, task *domain.Task) error {
	snapshotID := task.SnapshotID()
	if snapshotID == "" {
		return fmt.Errorf("%w: task has no snapshot_id", domain.ErrInvalidInput)
	}

	rows, err := w.eligibility.Recompute(ctx, snapshotID)
	switch {
	case errors.Is(err, domain.ErrImmutableSnapshot):
		w.logger.Info("snapshot frozen, recompute skipped", "snapshot_id", snapshotID)
		return nil
	case err != nil:
		return err
	}

	eligible := 0
	for _, row := range rows {
		if row.Eligible {
			eligible++
		}
	}
	w.logger.Info("eligibility recomputed", "snapshot_id", snapshotID, "nodes", len(rows), "eligible", eligible)
	return nil
}

// Health is the worker's view of itself and its queue.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	h := Health{Running: w.running, QueueHealth: true}
	w.mu.RUnlock()

	if err := w.taskQueue.Ping(ctx); err != nil {
		h.QueueHealth, h.Error = false, err.Error()
	}
	return h
}
