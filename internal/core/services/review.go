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

var _ driving.ReviewService = (*reviewService)(nil)

// Overlay write kinds, used as metric labels
const (
	writeState     = "state"
	writeContext   = "context"
	writeActor     = "actor"
	writeCandidate = "candidate"
	writeDedup     = "dedup"
)

type reviewService struct {
	store   driven.DomStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(cfg DomConfig) driving.ReviewService {
	return &reviewService{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  cfg.logger(),
	}
}

// writeFunc applies one edit to the current snapshot inside a transaction.
type writeFunc func(tx driven.DomTx, v *domain.SnapshotView, o *domain.Overlay) error

// write runs fn against the current snapshot and recomputes its eligibility
// in the same transaction.
func (s *reviewService) write(ctx context.Context, op, kind, snapshotID, nodeID string, fn writeFunc) error {
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		snap, err := openForWrite(ctx, tx, op, snapshotID)
		if err != nil {
			return err
		}
		v, o, err := loadView(ctx, tx, snap.ID)
		if err != nil {
			return err
		}
		if err := fn(tx, v, o); err != nil {
			return withOp(op, err, snap, nodeID)
		}
		_, err = recomputeInTx(ctx, tx, s.metrics, snap.ID)
		return err
	})
	if err != nil {
		s.metrics.ObserveError(err)
		s.logger.Debug("overlay write rejected", "op", op, "snapshot_id", snapshotID, "node_id", nodeID, "error", err)
		return err
	}
	s.metrics.IncOverlayWrite(kind)
	return nil
}

// nodeState returns the node and its state row in v.
func nodeState(op string, v *domain.SnapshotView, nodeID string) (*domain.DomNode, *domain.NodeState, error) {
	n, err := requireNode(op, v, nodeID)
	if err != nil {
		return nil, nil, err
	}
	st, ok := v.States[nodeID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no state row for %s", domain.ErrNodeNotFound, nodeID)
	}
	return n, st, nil
}

// GetSnapshotTree returns the tree joined with any snapshot's overlay.
func (s *reviewService) GetSnapshotTree(ctx context.Context, snapshotID string) (*domain.SnapshotTree, error) {
	var out *domain.SnapshotTree
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		v, o, err := loadView(ctx, tx, snapshotID)
		if err != nil {
			return err
		}
		out = domain.BuildSnapshotTree(v.Snapshot, v.Tree, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateNodeState patches one state row. A selection change on a candidate
// node is mirrored onto its candidate row.
func (s *reviewService) UpdateNodeState(ctx context.Context, snapshotID, nodeID string, patch domain.NodeStatePatch) (*domain.NodeState, error) {
	const op = "update_node_state"
	var out *domain.NodeState
	err := s.write(ctx, op, writeState, snapshotID, nodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		n, st, err := nodeState(op, v, nodeID)
		if err != nil {
			return err
		}
		if err := st.Apply(n.Type, patch); err != nil {
			return err
		}
		if err := tx.UpdateNodeState(ctx, st); err != nil {
			return err
		}
		if n.Type == domain.NodeTypeLocationCandidate && patch.Selected != nil {
			c, ok := v.Candidates[nodeID]
			if !ok {
				return fmt.Errorf("%w: no candidate row for %s", domain.ErrNodeNotFound, nodeID)
			}
			c.Selected = *patch.Selected
			if err := tx.UpdateLocationCandidate(ctx, c); err != nil {
				return err
			}
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetContext upserts the (node, kind) context row. A row written with
// Overridden=true survives later re-derivation.
func (s *reviewService) SetContext(ctx context.Context, snapshotID, nodeID string, req driving.ContextRequest) (*domain.NodeContext, error) {
	const op = "set_context"
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out *domain.NodeContext
	err := s.write(ctx, op, writeContext, snapshotID, nodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		n, err := requireNode(op, v, nodeID)
		if err != nil {
			return err
		}
		if n.Type == domain.NodeTypeLocationCandidate {
			return fmt.Errorf("%w: candidate nodes carry no context", domain.ErrInvalidInput)
		}
		out = &domain.NodeContext{
			SnapshotID: v.Snapshot.ID,
			NodeID:     nodeID,
			Kind:       req.Kind,
			Value:      req.Value,
			Overridden: req.Overridden,
		}
		return tx.UpsertContexts(ctx, []*domain.NodeContext{out})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RederiveContext recomputes context rows from the post's hints and writes
// every derived row whose (node, kind) is not overridden.
func (s *reviewService) RederiveContext(ctx context.Context, snapshotID string) ([]*domain.NodeContext, error) {
	var out []*domain.NodeContext
	err := s.write(ctx, "rederive_context", writeContext, snapshotID, "", func(tx driven.DomTx, v *domain.SnapshotView, o *domain.Overlay) error {
		hints, err := tx.ListContextHints(ctx, v.Snapshot.PostID)
		if err != nil {
			return err
		}
		derived := domain.DeriveContexts(v.Snapshot.ID, v.Tree, hints)
		out = domain.MergeDerivedContexts(o.Contexts, derived)
		if len(out) == 0 {
			return nil
		}
		return tx.UpsertContexts(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetActor upserts an actor of an EVENT node
func (s *reviewService) SetActor(ctx context.Context, snapshotID, eventNodeID string, req driving.ActorRequest) (*domain.Actor, error) {
	const op = "set_actor"
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out *domain.Actor
	err := s.write(ctx, op, writeActor, snapshotID, eventNodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		n, err := requireNode(op, v, eventNodeID)
		if err != nil {
			return err
		}
		if n.Type != domain.NodeTypeEvent {
			return fmt.Errorf("%w: actors belong to EVENT nodes, not %s", domain.ErrInvalidInput, n.Type)
		}
		out = &domain.Actor{
			SnapshotID:  v.Snapshot.ID,
			EventNodeID: eventNodeID,
			Text:        req.Text,
			GroupID:     req.GroupID,
			Selected:    req.Selected,
		}
		return tx.UpsertActor(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetLocationCandidateSelection updates a candidate row and mirrors the
// selection onto the candidate node's state.
func (s *reviewService) SetLocationCandidateSelection(ctx context.Context, snapshotID, candidateNodeID string, req driving.CandidateSelectionRequest) (*domain.LocationCandidate, error) {
	const op = "set_location_candidate_selection"
	var out *domain.LocationCandidate
	err := s.write(ctx, op, writeCandidate, snapshotID, candidateNodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		n, st, err := nodeState(op, v, candidateNodeID)
		if err != nil {
			return err
		}
		if n.Type != domain.NodeTypeLocationCandidate {
			return fmt.Errorf("%w: %s is a %s, not a LOCATION_CANDIDATE", domain.ErrInvalidInput, candidateNodeID, n.Type)
		}
		c, ok := v.Candidates[candidateNodeID]
		if !ok {
			return fmt.Errorf("%w: no candidate row for %s", domain.ErrNodeNotFound, candidateNodeID)
		}
		c.Selected = req.Selected
		if req.Persists != nil {
			c.Persists = *req.Persists
		}
		if err := tx.UpdateLocationCandidate(ctx, c); err != nil {
			return err
		}
		st.Selected = req.Selected
		st.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateNodeState(ctx, st); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkDuplicate marks nodeID as a duplicate of targetID
func (s *reviewService) MarkDuplicate(ctx context.Context, snapshotID, nodeID, targetID string) (*domain.NodeState, error) {
	const op = "mark_duplicate"
	var out *domain.NodeState
	err := s.write(ctx, op, writeDedup, snapshotID, nodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		_, st, err := nodeState(op, v, nodeID)
		if err != nil {
			return err
		}
		if err := domain.ValidateDedup(v, nodeID, targetID); err != nil {
			return err
		}
		markDuplicate(st, targetID)
		out = st
		return tx.UpdateNodeState(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("node marked duplicate", "snapshot_id", snapshotID, "node_id", nodeID, "target_id", targetID)
	return out, nil
}

func markDuplicate(st *domain.NodeState, targetID string) {
	st.Deduped = true
	st.DedupTarget = domain.String(targetID)
	st.UpdatedAt = time.Now().UTC()
}

// ClearDuplicate removes a duplicate marking
func (s *reviewService) ClearDuplicate(ctx context.Context, snapshotID, nodeID string) (*domain.NodeState, error) {
	const op = "clear_duplicate"
	var out *domain.NodeState
	err := s.write(ctx, op, writeDedup, snapshotID, nodeID, func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		_, st, err := nodeState(op, v, nodeID)
		if err != nil {
			return err
		}
		st.Deduped = false
		st.DedupTarget = nil
		st.UpdatedAt = time.Now().UTC()
		out = st
		return tx.UpdateNodeState(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve follows nodeID's dedup chain in any snapshot.
func (s *reviewService) Resolve(ctx context.Context, snapshotID, nodeID string) (string, error) {
	const op = "resolve"
	var terminal string
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		v, _, err := loadView(ctx, tx, snapshotID)
		if err != nil {
			return err
		}
		if _, err := requireNode(op, v, nodeID); err != nil {
			return err
		}
		terminal, err = domain.ResolveDedup(v.States, nodeID)
		return withOp(op, err, v.Snapshot, nodeID)
	})
	if err != nil {
		s.metrics.ObserveError(err)
		return "", err
	}
	return terminal, nil
}

// SuggestDuplicates marks matching siblings as duplicates of the first
// sibling they match and returns the markings made.
func (s *reviewService) SuggestDuplicates(ctx context.Context, snapshotID string) ([]domain.DedupSuggestion, error) {
	var applied []domain.DedupSuggestion
	err := s.write(ctx, "suggest_duplicates", writeDedup, snapshotID, "", func(tx driven.DomTx, v *domain.SnapshotView, _ *domain.Overlay) error {
		applied = nil
		for _, sg := range domain.SuggestDuplicates(v) {
			if err := domain.ValidateDedup(v, sg.NodeID, sg.TargetID); err != nil {
				s.logger.Debug("skipping dedup suggestion", "node_id", sg.NodeID, "target_id", sg.TargetID, "error", err)
				continue
			}
			st := v.States[sg.NodeID]
			markDuplicate(st, sg.TargetID)
			if err := tx.UpdateNodeState(ctx, st); err != nil {
				return err
			}
			applied = append(applied, sg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(applied) > 0 {
		s.logger.Info("duplicates suggested", "snapshot_id", snapshotID, "count", len(applied))
	}
	return applied, nil
}
