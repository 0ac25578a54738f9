package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

var _ driving.IngestService = (*ingestService)(nil)

type ingestService struct {
	store   driven.DomStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(cfg DomConfig) driving.IngestService {
	return &ingestService{
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  cfg.logger(),
	}
}

// Ingest writes the post, its tree, provenance and hints, and the CREATED
// snapshot with its seed overlay and eligibility, all in one transaction.
func (s *ingestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	post := domain.NewDomPost(req.DocumentKey)
	plan, err := domain.BuildIngestPlan(post, &req.RecordSet)
	if err != nil {
		s.metrics.ObserveError(err)
		return nil, domain.NewDomError("ingest", err).Post(post.ID)
	}

	var snap *domain.DomSnapshot
	err = s.store.Transaction(ctx, func(tx driven.DomTx) error {
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		if err := tx.InsertTree(ctx, plan.Nodes, plan.Provenance, plan.Hints); err != nil {
			return err
		}
		snap, err = initialize(ctx, tx, s.metrics, plan)
		return err
	})
	if err != nil {
		s.metrics.ObserveError(err)
		return nil, withOp("ingest", err, nil, "")
	}

	s.metrics.IncIngest()
	s.logger.Info("post ingested",
		"post_id", post.ID,
		"document_id", post.DocumentID,
		"extraction_run_id", post.ExtractionRunID,
		"nodes", len(plan.Nodes),
	)

	return &driving.IngestResult{
		Post:     post,
		Snapshot: snap,
		Records:  plan.RecordNodes(),
	}, nil
}

// initialize materializes the CREATED snapshot of a freshly stored tree.
func initialize(ctx context.Context, tx driven.DomTx, m *metrics.Metrics, plan *domain.IngestPlan) (*domain.DomSnapshot, error) {
	snap := domain.NewSnapshot(plan.Post.ID, domain.StageCreated)
	if err := tx.InsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	if err := tx.InsertOverlay(ctx, plan.InitialOverlay(snap.ID)); err != nil {
		return nil, err
	}
	if _, err := recomputeInTx(ctx, tx, m, snap.ID); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetPost retrieves a post by ID
func (s *ingestService) GetPost(ctx context.Context, postID string) (*domain.DomPost, error) {
	var post *domain.DomPost
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		var err error
		post, err = tx.GetPost(ctx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts lists posts newest first
func (s *ingestService) ListPosts(ctx context.Context, limit, offset int) ([]*domain.DomPost, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var posts []*domain.DomPost
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		var err error
		posts, err = tx.ListPosts(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost removes a post with its tree and every snapshot.
func (s *ingestService) DeletePost(ctx context.Context, postID string) error {
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		if err := tx.LockPost(ctx, postID); err != nil {
			return err
		}
		return tx.DeletePost(ctx, postID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("post deleted", "post_id", postID)
	return nil
}

// GetTree returns the post's tree
func (s *ingestService) GetTree(ctx context.Context, postID string) (*domain.Tree, error) {
	var tree *domain.Tree
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		var err error
		tree, err = loadTree(ctx, tx, postID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// AlterNode rejects every structural write. An unknown node is reported
// as such rather than as immutable.
func (s *ingestService) AlterNode(ctx context.Context, nodeID string) error {
	err := s.store.Transaction(ctx, func(tx driven.DomTx) error {
		node, err := tx.GetNode(ctx, nodeID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewDomError("alter_node", domain.ErrNodeNotFound).Node(nodeID)
		}
		if err != nil {
			return err
		}
		return domain.NewDomError("alter_node", domain.ErrStructuralImmutability).Post(node.PostID).Node(nodeID)
	})
	s.metrics.ObserveError(err)
	return err
}
