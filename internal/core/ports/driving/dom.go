package driving

import (
	"context"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
)

// IngestRequest carries one extraction record set for a document key
type IngestRequest struct {
	domain.DocumentKey
	RecordSet domain.ExtractionRecordSet `json:"record_set"`
}

// IngestResult is returned by a successful ingest
type IngestResult struct {
	Post     *domain.DomPost     `json:"post"`
	Snapshot *domain.DomSnapshot `json:"snapshot"`
	// Records maps upstream record ids, per kind, to the nodes created for them
	Records domain.RecordNodes `json:"records"`
}

// IngestService owns the immutable structural tree of each post
type IngestService interface {
	// Ingest builds and stores the tree of a record set and materializes its
	// CREATED snapshot in one transaction
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// GetPost retrieves a post by ID
	GetPost(ctx context.Context, postID string) (*domain.DomPost, error)

	// ListPosts lists posts newest first
	ListPosts(ctx context.Context, limit, offset int) ([]*domain.DomPost, error)

	// DeletePost removes a post, its tree and all its snapshots
	DeletePost(ctx context.Context, postID string) error

	// GetTree returns the post's tree with deterministic child order
	GetTree(ctx context.Context, postID string) (*domain.Tree, error)

	// AlterNode is the structural write path. It always fails: nodes are immutable.
	AlterNode(ctx context.Context, nodeID string) error
}

// LifecycleService owns the ordered snapshots of each post
type LifecycleService interface {
	// Advance creates the snapshot for target, which must directly follow the
	// post's current stage, cloning the current overlay into it
	Advance(ctx context.Context, postID string, target domain.LifecycleStage) (*domain.DomSnapshot, error)

	// Current returns the post's max-stage snapshot
	Current(ctx context.Context, postID string) (*domain.DomSnapshot, error)

	// GetSnapshot returns the post's snapshot at stage
	GetSnapshot(ctx context.Context, postID string, stage domain.LifecycleStage) (*domain.DomSnapshot, error)

	// GetSnapshotByID returns a snapshot by its id
	GetSnapshotByID(ctx context.Context, snapshotID string) (*domain.DomSnapshot, error)

	// ListSnapshots returns the post's snapshots ordered by stage
	ListSnapshots(ctx context.Context, postID string) ([]*domain.DomSnapshot, error)
}

// ContextRequest sets one context annotation
type ContextRequest struct {
	Kind       domain.ContextKind `json:"kind" validate:"required,oneof=REGION GROUP DIRECTION"`
	Value      string             `json:"value"`
	Overridden bool               `json:"overridden"`
}

// ActorRequest upserts one actor of an event
type ActorRequest struct {
	Text     string `json:"text" validate:"required"`
	GroupID  string `json:"group_id,omitempty"`
	Selected bool   `json:"selected"`
}

// CandidateSelectionRequest sets the review flags of a location candidate
type CandidateSelectionRequest struct {
	Selected bool  `json:"selected"`
	Persists *bool `json:"persists,omitempty"`
}

// ReviewService applies analyst edits to the current snapshot of a post.
// Writes against any other snapshot fail with domain.ErrImmutableSnapshot, and
// every successful write recomputes the snapshot's eligibility.
type ReviewService interface {
	// GetSnapshotTree returns the tree joined with a snapshot's overlay
	GetSnapshotTree(ctx context.Context, snapshotID string) (*domain.SnapshotTree, error)

	// UpdateNodeState patches one node's state
	UpdateNodeState(ctx context.Context, snapshotID, nodeID string, patch domain.NodeStatePatch) (*domain.NodeState, error)

	// SetContext upserts the (node, kind) context row
	SetContext(ctx context.Context, snapshotID, nodeID string, req ContextRequest) (*domain.NodeContext, error)

	// RederiveContext rewrites every non-overridden context row from the post's hints
	RederiveContext(ctx context.Context, snapshotID string) ([]*domain.NodeContext, error)

	// SetActor upserts an actor of an EVENT node
	SetActor(ctx context.Context, snapshotID, eventNodeID string, req ActorRequest) (*domain.Actor, error)

	// SetLocationCandidateSelection updates a candidate row and mirrors the
	// selection onto the candidate node's state
	SetLocationCandidateSelection(ctx context.Context, snapshotID, candidateNodeID string, req CandidateSelectionRequest) (*domain.LocationCandidate, error)

	// MarkDuplicate marks nodeID as a duplicate of targetID
	MarkDuplicate(ctx context.Context, snapshotID, nodeID, targetID string) (*domain.NodeState, error)

	// ClearDuplicate removes a duplicate marking
	ClearDuplicate(ctx context.Context, snapshotID, nodeID string) (*domain.NodeState, error)

	// Resolve follows nodeID's dedup chain to its terminal node
	Resolve(ctx context.Context, snapshotID, nodeID string) (string, error)

	// SuggestDuplicates marks sibling nodes with matching text and context as
	// duplicates and returns the markings made
	SuggestDuplicates(ctx context.Context, snapshotID string) ([]domain.DedupSuggestion, error)
}

// EligibilityService derives commit eligibility
type EligibilityService interface {
	// Recompute replaces the snapshot's eligibility table. Idempotent.
	Recompute(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error)

	// GetEligibility returns the snapshot's eligibility table
	GetEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error)
}
