package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

var _ driving.LifecycleService = (*lifecycleService)(nil)

type lifecycleService struct {
	store   driven.DomStore
	lock    driven.DistributedLock
	metrics *metrics.Metrics
	logger  *slog.Logger
	lockTTL time.Duration

	// Advances of one post inside this process are serialized before they
	// reach the distributed lock.
	posts *postLocks
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(cfg DomConfig) driving.LifecycleService {
	return &lifecycleService{
		store:   cfg.Store,
		lock:    cfg.Lock,
		metrics: cfg.Metrics,
		logger:  cfg.logger(),
		lockTTL: cfg.lockTTL(),
		posts:   newPostLocks(),
	}
}

func advanceLockName(postID string) string {
	return "advance:" + postID
}

// Advance creates the target snapshot, clones the current overlay into it and
// recomputes its eligibility, in one transaction.
func (s *lifecycleService) Advance(ctx context.Context, postID string, target domain.LifecycleStage) (*domain.DomSnapshot, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown stage %d", domain.ErrInvalidInput, int(target))
	}

	release := s.posts.lock(postID)
	defer release()

	if s.lock != nil {
		name := advanceLockName(postID)
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire advance lock: %w", err)
		}
		if !acquired {
			err := domain.NewDomError("advance", domain.ErrAdvanceInProgress).Post(postID).AtStage(target)
			s.metrics.ObserveError(err)
			return nil, err
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
				s.logger.Warn("failed to release advance lock", "post_id", postID, "error", err)
			}
		}()
	}

	var next *domain.DomSnapshot
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		if err := tx.LockPost(ctx, postID); err != nil {
			return err
		}
		snaps, err := tx.ListSnapshots(ctx, postID)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if snap.Stage == target {
				return domain.NewDomError("advance", domain.ErrDuplicateStage).
					Post(postID).Snapshot(snap.ID).AtStage(target)
			}
		}
		cur := domain.LatestSnapshot(snaps)
		if cur == nil {
			return fmt.Errorf("post %s has no snapshot: %w", postID, domain.ErrNotFound)
		}
		if want, ok := cur.Stage.Next(); !ok || want != target {
			return domain.NewDomError("advance", domain.ErrOutOfOrderAdvance).
				Post(postID).Snapshot(cur.ID).AtStage(target)
		}

		next = domain.NewSnapshot(postID, target)
		if err := tx.InsertSnapshot(ctx, next); err != nil {
			return err
		}
		if err := tx.CloneOverlay(ctx, cur.ID, next.ID); err != nil {
			return err
		}
		_, err = recomputeInTx(ctx, tx, s.metrics, next.ID)
		return err
	})
	if err != nil {
		s.metrics.ObserveError(err)
		return nil, withOp("advance", err, nil, "")
	}

	s.metrics.IncAdvance(target)
	s.logger.Info("snapshot advanced",
		"post_id", postID,
		"snapshot_id", next.ID,
		"stage", target.String(),
	)
	return next, nil
}

// Current returns the post's max-stage snapshot
func (s *lifecycleService) Current(ctx context.Context, postID string) (*domain.DomSnapshot, error) {
	var cur *domain.DomSnapshot
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		var err error
		cur, err = currentSnapshot(ctx, tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// GetSnapshot returns the post's snapshot at stage
func (s *lifecycleService) GetSnapshot(ctx context.Context, postID string, stage domain.LifecycleStage) (*domain.DomSnapshot, error) {
	snaps, err := s.ListSnapshots(ctx, postID)
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		if snap.Stage == stage {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("post %s has no %s snapshot: %w", postID, stage, domain.ErrNotFound)
}

// GetSnapshotByID returns a snapshot by its id
func (s *lifecycleService) GetSnapshotByID(ctx context.Context, snapshotID string) (*domain.DomSnapshot, error) {
	var snap *domain.DomSnapshot
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		var err error
		snap, err = tx.GetSnapshot(ctx, snapshotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns the post's snapshots ordered by stage
func (s *lifecycleService) ListSnapshots(ctx context.Context, postID string) ([]*domain.DomSnapshot, error) {
	var snaps []*domain.DomSnapshot
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		if _, err := tx.GetPost(ctx, postID); err != nil {
			return err
		}
		var err error
		snaps, err = tx.ListSnapshots(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snaps, nil
}
