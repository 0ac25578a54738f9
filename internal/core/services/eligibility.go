package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

var _ driving.EligibilityService = (*eligibilityService)(nil)

type eligibilityService struct {
	store   driven.DomStore
	metrics *metrics.Metrics
	logger  *slog.Logger

	// Concurrent recomputes of one snapshot share a single pass.
	group singleflight.Group
}

// NewEligibilityService creates a new EligibilityService
func NewEligibilityService(cfg DomConfig) driving.EligibilityService {
	return &eligibilityService{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  cfg.logger(),
	}
}

// Recompute replaces the eligibility table of the snapshot's current overlay.
// Only the current snapshot is recomputed; earlier snapshots keep the table
// they had when they were current.
func (s *eligibilityService) Recompute(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error) {
	// The shared pass must not die with whichever caller started it; each
	// caller still stops waiting when its own context ends.
	fctx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(snapshotID, func() (any, error) {
		var rows []*domain.CommitEligibility
		err := s.store.Transaction(fctx, func(tx driven.DomTx) error {
			if _, err := openForWrite(fctx, tx, "recompute", snapshotID); err != nil {
				return err
			}
			var err error
			rows, err = recomputeInTx(fctx, tx, s.metrics, snapshotID)
			return err
		})
		return rows, err
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		s.metrics.ObserveError(res.Err)
		return nil, res.Err
	}
	s.logger.Debug("eligibility recomputed", "snapshot_id", snapshotID, "shared", res.Shared)
	return res.Val.([]*domain.CommitEligibility), nil
}

// GetEligibility returns the stored eligibility table of any snapshot.
func (s *eligibilityService) GetEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error) {
	var rows []*domain.CommitEligibility
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		if _, err := tx.GetSnapshot(ctx, snapshotID); err != nil {
			return err
		}
		var err error
		rows, err = tx.ListEligibility(ctx, snapshotID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
