package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep-core/internal/metrics"
)

// DomConfig holds the collaborators shared by the DOM services.
type DomConfig struct {
	Store   driven.DomStore
	Lock    driven.DistributedLock // Optional: serializes advances across instances
	Metrics *metrics.Metrics       // Optional
	Logger  *slog.Logger
	LockTTL time.Duration // TTL of the advance lock (default: 30s)
}

func (c DomConfig) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c DomConfig) lockTTL() time.Duration {
	if c.LockTTL == 0 {
		return 30 * time.Second
	}
	return c.LockTTL
}

// loadTree reads and validates the structural tree of a post.
func loadTree(ctx context.Context, tx driven.DomTx, postID string) (*domain.Tree, error) {
	post, err := tx.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	nodes, err := tx.ListNodes(ctx, postID)
	if err != nil {
		return nil, err
	}
	provenance, err := tx.ListProvenance(ctx, postID)
	if err != nil {
		return nil, err
	}
	return domain.NewTree(post, nodes, provenance)
}

// loadView reads one snapshot with its tree and overlay.
func loadView(ctx context.Context, tx driven.DomTx, snapshotID string) (*domain.SnapshotView, *domain.Overlay, error) {
	snap, err := tx.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	tree, err := loadTree(ctx, tx, snap.PostID)
	if err != nil {
		return nil, nil, err
	}
	overlay, err := tx.GetOverlay(ctx, snapshotID)
	if err != nil {
		return nil, nil, err
	}
	return domain.NewSnapshotView(snap, tree, overlay), overlay, nil
}

// currentSnapshot returns the max-stage snapshot of a post.
func currentSnapshot(ctx context.Context, tx driven.DomTx, postID string) (*domain.DomSnapshot, error) {
	snaps, err := tx.ListSnapshots(ctx, postID)
	if err != nil {
		return nil, err
	}
	cur := domain.LatestSnapshot(snaps)
	if cur == nil {
		return nil, domain.ErrNotFound
	}
	return cur, nil
}

// openForWrite locks the snapshot's post and checks that the snapshot is
// still its current one.
func openForWrite(ctx context.Context, tx driven.DomTx, op, snapshotID string) (*domain.DomSnapshot, error) {
	snap, err := tx.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if err := tx.LockPost(ctx, snap.PostID); err != nil {
		return nil, err
	}
	cur, err := currentSnapshot(ctx, tx, snap.PostID)
	if err != nil {
		return nil, err
	}
	if cur.ID != snap.ID {
		return nil, domain.NewDomError(op, domain.ErrImmutableSnapshot).
			Post(snap.PostID).Snapshot(snap.ID).AtStage(snap.Stage)
	}
	return snap, nil
}

// requireNode returns the node of the snapshot's tree or ErrNodeNotFound.
func requireNode(op string, v *domain.SnapshotView, nodeID string) (*domain.DomNode, error) {
	n, ok := v.Tree.Node(nodeID)
	if !ok {
		return nil, domain.NewDomError(op, domain.ErrNodeNotFound).
			Post(v.Snapshot.PostID).Snapshot(v.Snapshot.ID).Node(nodeID)
	}
	return n, nil
}

// recomputeInTx derives the eligibility table of a snapshot and replaces the
// stored one.
func recomputeInTx(ctx context.Context, tx driven.DomTx, m *metrics.Metrics, snapshotID string) ([]*domain.CommitEligibility, error) {
	start := time.Now()
	v, _, err := loadView(ctx, tx, snapshotID)
	if err != nil {
		return nil, err
	}
	rows, err := domain.ComputeEligibility(v)
	if err != nil {
		return nil, err
	}
	if err := tx.ReplaceEligibility(ctx, snapshotID, rows); err != nil {
		return nil, err
	}
	m.ObserveRecompute(time.Since(start))
	return rows, nil
}

// withOp attaches op, and the ids it knows, to a sentinel error that is not
// already a DomError.
func withOp(op string, err error, snapshot *domain.DomSnapshot, nodeID string) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsDomError(err); ok {
		return err
	}
	if !domain.IsDomRejection(err) {
		return err
	}
	de := domain.NewDomError(op, err)
	if snapshot != nil {
		de = de.Post(snapshot.PostID).Snapshot(snapshot.ID)
	}
	if nodeID != "" {
		de = de.Node(nodeID)
	}
	return de
}
