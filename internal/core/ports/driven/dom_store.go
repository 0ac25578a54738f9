package driven

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// DomStore persists DOM posts, their immutable trees and their snapshots
// (PostgreSQL, or in-memory for tests and single-process runs).
//
// Every read and write goes through a transaction: either all writes of fn
// land or none do. A transaction works on a single post.
type DomStore interface {
	// Transaction runs fn in a transaction. An error from fn rolls it back.
	Transaction(ctx context.Context, fn func(tx DomTx) error) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error
}

// DomTx is the set of operations available inside a DomStore transaction.
//
// There is no update or delete for nodes or provenance; the
// only deletion path is DeletePost, which cascades.
type DomTx interface {
	// CreatePost stores a post. Returns domain.ErrAlreadyIngested when the
	// post's document key is taken.
	CreatePost(ctx context.Context, post *domain.DomPost) error

	// GetPost retrieves a post by ID
	GetPost(ctx context.Context, id string) (*domain.DomPost, error)

	// GetPostByKey retrieves the post of a document key
	GetPostByKey(ctx context.Context, key domain.DocumentKey) (*domain.DomPost, error)

	// ListPosts lists posts newest first
	ListPosts(ctx context.Context, limit, offset int) ([]*domain.DomPost, error)

	// DeletePost removes a post with its tree and all snapshots
	DeletePost(ctx context.Context, id string) error

	// LockPost holds a row lock on the post until the transaction ends
	LockPost(ctx context.Context, id string) error

	// InsertTree stores nodes, their provenance and the post's context hints
	InsertTree(ctx context.Context, nodes []*domain.DomNode, provenance []*domain.NodeProvenance, hints []*domain.ContextHint) error

	// GetNode retrieves a node by ID
	GetNode(ctx context.Context, id string) (*domain.DomNode, error)

	// ListNodes returns every node of a post
	ListNodes(ctx context.Context, postID string) ([]*domain.DomNode, error)

	// ListProvenance returns every provenance record of a post
	ListProvenance(ctx context.Context, postID string) ([]*domain.NodeProvenance, error)

	// ListContextHints returns the post's context hints in insertion order
	ListContextHints(ctx context.Context, postID string) ([]*domain.ContextHint, error)

	// InsertSnapshot stores a snapshot. Returns domain.ErrDuplicateStage when
	// the post already has a snapshot at that stage.
	InsertSnapshot(ctx context.Context, snapshot *domain.DomSnapshot) error

	// GetSnapshot retrieves a snapshot by ID
	GetSnapshot(ctx context.Context, id string) (*domain.DomSnapshot, error)

	// ListSnapshots returns a post's snapshots ordered by stage
	ListSnapshots(ctx context.Context, postID string) ([]*domain.DomSnapshot, error)

	// InsertOverlay stores the state, context, actor and candidate rows of a new snapshot
	InsertOverlay(ctx context.Context, overlay *domain.Overlay) error

	// CloneOverlay copies every state, context, actor and candidate row of
	// one snapshot to another, unchanged in value
	CloneOverlay(ctx context.Context, fromSnapshotID, toSnapshotID string) error

	// GetOverlay returns every overlay row of a snapshot, eligibility included
	GetOverlay(ctx context.Context, snapshotID string) (*domain.Overlay, error)

	// GetNodeState retrieves one state row
	GetNodeState(ctx context.Context, snapshotID, nodeID string) (*domain.NodeState, error)

	// UpdateNodeState overwrites an existing state row
	UpdateNodeState(ctx context.Context, state *domain.NodeState) error

	// UpsertContexts writes context rows keyed by (snapshot, node, kind)
	UpsertContexts(ctx context.Context, contexts []*domain.NodeContext) error

	// UpsertActor writes an actor row keyed by (snapshot, event node, text)
	UpsertActor(ctx context.Context, actor *domain.Actor) error

	// GetLocationCandidate retrieves the candidate row of a candidate node
	GetLocationCandidate(ctx context.Context, snapshotID, nodeID string) (*domain.LocationCandidate, error)

	// UpdateLocationCandidate overwrites the review fields of a candidate row
	UpdateLocationCandidate(ctx context.Context, candidate *domain.LocationCandidate) error

	// ReplaceEligibility replaces a snapshot's whole eligibility table
	ReplaceEligibility(ctx context.Context, snapshotID string, rows []*domain.CommitEligibility) error

	// ListEligibility returns a snapshot's eligibility table
	ListEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error)
}
