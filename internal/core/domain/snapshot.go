package domain

import "time"

// DomSnapshot is the materialization of a post at one lifecycle stage.
// Snapshots are append-only: one per (post, stage), never updated or deleted.
type DomSnapshot struct {
	ID        string         `json:"id"`
	PostID    string         `json:"post_id"`
	Stage     LifecycleStage `json:"stage" swaggertype:"string" example:"PROCESSED"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewSnapshot creates a snapshot of postID at stage
func NewSnapshot(postID string, stage LifecycleStage) *DomSnapshot {
	return &DomSnapshot{
		ID:        GenerateID(),
		PostID:    postID,
		Stage:     stage,
		CreatedAt: time.Now().UTC(),
	}
}

// LatestSnapshot returns the max-stage snapshot, or nil for an empty list.
func LatestSnapshot(snapshots []*DomSnapshot) *DomSnapshot {
	var latest *DomSnapshot
	for _, s := range snapshots {
		if latest == nil || s.Stage > latest.Stage {
			latest = s
		}
	}
	return latest
}

// Overlay is the full row set of one snapshot.
type Overlay struct {
	States      []*NodeState         `json:"states"`
	Contexts    []*NodeContext       `json:"contexts"`
	Actors      []*Actor             `json:"actors"`
	Candidates  []*LocationCandidate `json:"candidates"`
	Eligibility []*CommitEligibility `json:"eligibility,omitempty"`
}

// CloneTo copies every state, context, actor and candidate row to snapshotID.
// Eligibility is derived and is not cloned.
func (o *Overlay) CloneTo(snapshotID string) *Overlay {
	out := &Overlay{
		States:     make([]*NodeState, len(o.States)),
		Contexts:   make([]*NodeContext, len(o.Contexts)),
		Actors:     make([]*Actor, len(o.Actors)),
		Candidates: make([]*LocationCandidate, len(o.Candidates)),
	}
	for i, s := range o.States {
		out.States[i] = s.CloneTo(snapshotID)
	}
	for i, c := range o.Contexts {
		out.Contexts[i] = c.CloneTo(snapshotID)
	}
	for i, a := range o.Actors {
		out.Actors[i] = a.CloneTo(snapshotID)
	}
	for i, c := range o.Candidates {
		out.Candidates[i] = c.CloneTo(snapshotID)
	}
	return out
}

// SnapshotView is the in-memory form of one snapshot used by the pure
// derivations (dedup resolution, eligibility, context derivation).
type SnapshotView struct {
	Snapshot   *DomSnapshot
	Tree       *Tree
	States     map[string]*NodeState
	Contexts   map[string]map[ContextKind]*NodeContext
	Candidates map[string]*LocationCandidate
}

// NewSnapshotView indexes an overlay against its tree.
func NewSnapshotView(snapshot *DomSnapshot, tree *Tree, o *Overlay) *SnapshotView {
	v := &SnapshotView{
		Snapshot:   snapshot,
		Tree:       tree,
		States:     make(map[string]*NodeState, len(o.States)),
		Contexts:   make(map[string]map[ContextKind]*NodeContext),
		Candidates: make(map[string]*LocationCandidate, len(o.Candidates)),
	}
	for _, s := range o.States {
		v.States[s.NodeID] = s
	}
	for _, c := range o.Contexts {
		if v.Contexts[c.NodeID] == nil {
			v.Contexts[c.NodeID] = make(map[ContextKind]*NodeContext)
		}
		v.Contexts[c.NodeID][c.Kind] = c
	}
	for _, c := range o.Candidates {
		v.Candidates[c.NodeID] = c
	}
	return v
}

// SnapshotTree is the review read model: the tree joined with one snapshot's
// overlay and eligibility, node by node.
type SnapshotTree struct {
	Snapshot *DomSnapshot      `json:"snapshot"`
	Root     *SnapshotTreeNode `json:"root"`
}

// SnapshotTreeNode is one node of a SnapshotTree
type SnapshotTreeNode struct {
	*DomNode
	State       *NodeState          `json:"state"`
	Contexts    []*NodeContext      `json:"contexts,omitempty"`
	Actors      []*Actor            `json:"actors,omitempty"`
	Candidate   *LocationCandidate  `json:"candidate,omitempty"`
	Eligibility *CommitEligibility  `json:"eligibility,omitempty"`
	Children    []*SnapshotTreeNode `json:"children,omitempty"`
}

// BuildSnapshotTree joins tree and overlay into a SnapshotTree.
func BuildSnapshotTree(snapshot *DomSnapshot, tree *Tree, o *Overlay) *SnapshotTree {
	v := NewSnapshotView(snapshot, tree, o)
	actors := make(map[string][]*Actor)
	for _, a := range o.Actors {
		actors[a.EventNodeID] = append(actors[a.EventNodeID], a)
	}
	elig := make(map[string]*CommitEligibility, len(o.Eligibility))
	for _, e := range o.Eligibility {
		elig[e.NodeID] = e
	}

	var build func(n *DomNode) *SnapshotTreeNode
	build = func(n *DomNode) *SnapshotTreeNode {
		out := &SnapshotTreeNode{
			DomNode:     n,
			State:       v.States[n.ID],
			Actors:      actors[n.ID],
			Candidate:   v.Candidates[n.ID],
			Eligibility: elig[n.ID],
		}
		for _, k := range ContextKinds() {
			if c, ok := v.Contexts[n.ID][k]; ok {
				out.Contexts = append(out.Contexts, c)
			}
		}
		for _, c := range tree.Children(n.ID) {
			out.Children = append(out.Children, build(c))
		}
		return out
	}

	st := &SnapshotTree{Snapshot: snapshot}
	if root := tree.Root(); root != nil {
		st.Root = build(root)
	}
	return st
}
