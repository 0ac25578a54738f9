package domain

import (
	"fmt"
	"time"
)

// ResolutionSource records who last decided a location's resolution
type ResolutionSource string

const (
	ResolutionAuto   ResolutionSource = "AUTO"
	ResolutionManual ResolutionSource = "MANUAL"
)

// Valid reports whether s is a known source
func (s ResolutionSource) Valid() bool {
	return s == ResolutionAuto || s == ResolutionManual
}

// NodeState is the review state of one node within one snapshot.
type NodeState struct {
	SnapshotID string `json:"snapshot_id"`
	NodeID     string `json:"node_id"`
	Selected   bool   `json:"selected"`
	Summary    string `json:"summary"`
	// Resolved is nil for node types that have no resolution.
	Resolved         *bool            `json:"resolved,omitempty"`
	ResolutionSource ResolutionSource `json:"resolution_source"`
	Deduped          bool             `json:"deduped"`
	DedupTarget      *string          `json:"dedup_target,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// DefaultSelected is the selection a node starts with. Structural containers
// start selected so eligibility is driven by the location level, where an
// analyst has to opt in.
func DefaultSelected(t NodeType) bool {
	return !t.IsLocation()
}

// NewNodeState returns the initial state of n in a snapshot.
func NewNodeState(snapshotID string, n *DomNode, summary string) *NodeState {
	s := &NodeState{
		SnapshotID:       snapshotID,
		NodeID:           n.ID,
		Selected:         DefaultSelected(n.Type),
		Summary:          summary,
		ResolutionSource: ResolutionAuto,
		UpdatedAt:        time.Now().UTC(),
	}
	if n.Type.IsLocation() {
		s.Resolved = Bool(false)
	}
	return s
}

// IsResolved reports whether the resolution flag is set and true
func (s *NodeState) IsResolved() bool {
	return s.Resolved != nil && *s.Resolved
}

// CloneTo copies the state to another snapshot unchanged in value.
func (s *NodeState) CloneTo(snapshotID string) *NodeState {
	c := *s
	c.SnapshotID = snapshotID
	if s.Resolved != nil {
		c.Resolved = Bool(*s.Resolved)
	}
	if s.DedupTarget != nil {
		target := *s.DedupTarget
		c.DedupTarget = &target
	}
	return &c
}

// NodeStatePatch is a partial update of a NodeState. Nil fields are left alone.
type NodeStatePatch struct {
	Selected         *bool             `json:"selected,omitempty"`
	Summary          *string           `json:"summary,omitempty"`
	Resolved         *bool             `json:"resolved,omitempty"`
	ResolutionSource *ResolutionSource `json:"resolution_source,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p NodeStatePatch) IsEmpty() bool {
	return p.Selected == nil && p.Summary == nil && p.Resolved == nil && p.ResolutionSource == nil
}

// Apply validates p against the node type and applies it to s.
// Setting Resolved without a source records a MANUAL resolution.
func (s *NodeState) Apply(nodeType NodeType, p NodeStatePatch) error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}
	if (p.Resolved != nil || p.ResolutionSource != nil) && !nodeType.IsLocation() {
		return fmt.Errorf("%w: resolution does not apply to %s", ErrInvalidInput, nodeType)
	}
	if p.ResolutionSource != nil && !p.ResolutionSource.Valid() {
		return fmt.Errorf("%w: resolution source %q", ErrInvalidInput, *p.ResolutionSource)
	}

	if p.Selected != nil {
		s.Selected = *p.Selected
	}
	if p.Summary != nil {
		s.Summary = *p.Summary
	}
	if p.Resolved != nil {
		s.Resolved = Bool(*p.Resolved)
		s.ResolutionSource = ResolutionManual
	}
	if p.ResolutionSource != nil {
		s.ResolutionSource = *p.ResolutionSource
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ContextKind is the category of a contextual annotation
type ContextKind string

const (
	ContextRegion    ContextKind = "REGION"
	ContextGroup     ContextKind = "GROUP"
	ContextDirection ContextKind = "DIRECTION"
)

// ContextKinds returns every kind in a fixed order
func ContextKinds() []ContextKind {
	return []ContextKind{ContextRegion, ContextGroup, ContextDirection}
}

// Valid reports whether k is a known kind
func (k ContextKind) Valid() bool {
	return k == ContextRegion || k == ContextGroup || k == ContextDirection
}

// NodeContext is one (node, kind) annotation within a snapshot. An overridden
// row was set by an analyst and is never replaced by derivation.
type NodeContext struct {
	SnapshotID string      `json:"snapshot_id"`
	NodeID     string      `json:"node_id"`
	Kind       ContextKind `json:"kind"`
	Value      string      `json:"value"`
	Overridden bool        `json:"overridden"`
}

// CloneTo copies the context row to another snapshot
func (c *NodeContext) CloneTo(snapshotID string) *NodeContext {
	out := *c
	out.SnapshotID = snapshotID
	return &out
}

// Actor is a role candidate attached to an EVENT node within a snapshot,
// keyed by its text.
type Actor struct {
	SnapshotID  string `json:"snapshot_id"`
	EventNodeID string `json:"event_node_id"`
	Text        string `json:"text"`
	GroupID     string `json:"group_id,omitempty"`
	Selected    bool   `json:"selected"`
}

// CloneTo copies the actor row to another snapshot
func (a *Actor) CloneTo(snapshotID string) *Actor {
	out := *a
	out.SnapshotID = snapshotID
	return &out
}

// LocationCandidate is the review row of a LOCATION_CANDIDATE node. The
// gazetteer fields are frozen at ingest; the review fields change per snapshot.
type LocationCandidate struct {
	SnapshotID     string `json:"snapshot_id"`
	NodeID         string `json:"node_id"`
	LocationNodeID string `json:"location_node_id"`

	GazetteerEntityID string  `json:"gazetteer_entity_id"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Name              string  `json:"name"`
	PlaceType         string  `json:"place_type,omitempty"`
	ExternalID        string  `json:"external_id,omitempty"`

	Confidence        *float64 `json:"confidence,omitempty"`
	DistanceFromFront *float64 `json:"distance_from_front,omitempty"`
	Selected          bool     `json:"selected"`
	Persists          bool     `json:"persists"`
}

// CloneTo copies the candidate row to another snapshot
func (c *LocationCandidate) CloneTo(snapshotID string) *LocationCandidate {
	out := *c
	out.SnapshotID = snapshotID
	if c.Confidence != nil {
		out.Confidence = Float(*c.Confidence)
	}
	if c.DistanceFromFront != nil {
		out.DistanceFromFront = Float(*c.DistanceFromFront)
	}
	return &out
}

// Bool returns a pointer to b
func Bool(b bool) *bool {
	return &b
}

// Float returns a pointer to f
func Float(f float64) *float64 {
	return &f
}

// String returns a pointer to s
func String(s string) *string {
	return &s
}
