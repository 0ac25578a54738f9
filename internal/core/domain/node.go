package domain

import "time"

// NodeType identifies a level of the structural tree
type NodeType string

const (
	NodeTypePost              NodeType = "POST"
	NodeTypeSection           NodeType = "SECTION"
	NodeTypeEvent             NodeType = "EVENT"
	NodeTypeLocationSeries    NodeType = "LOCATION_SERIES"
	NodeTypeLocation          NodeType = "LOCATION"
	NodeTypeLocationCandidate NodeType = "LOCATION_CANDIDATE"
)

// childTypes is the type lattice: the only type a node's children may have.
var childTypes = map[NodeType]NodeType{
	NodeTypePost:           NodeTypeSection,
	NodeTypeSection:        NodeTypeEvent,
	NodeTypeEvent:          NodeTypeLocationSeries,
	NodeTypeLocationSeries: NodeTypeLocation,
	NodeTypeLocation:       NodeTypeLocationCandidate,
}

// Valid reports whether t is a known node type.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypePost, NodeTypeSection, NodeTypeEvent, NodeTypeLocationSeries,
		NodeTypeLocation, NodeTypeLocationCandidate:
		return true
	}
	return false
}

// ChildType returns the type children of t must have. ok is false for leaves.
func (t NodeType) ChildType() (child NodeType, ok bool) {
	child, ok = childTypes[t]
	return child, ok
}

// IsLocation reports whether resolution state applies to t.
func (t NodeType) IsLocation() bool {
	return t == NodeTypeLocation || t == NodeTypeLocationCandidate
}

// DocumentKey identifies one extraction run over one upstream document.
type DocumentKey struct {
	DocumentID      string `json:"document_id" validate:"required"`
	ExtractionRunID string `json:"extraction_run_id" validate:"required"`
}

// DomPost anchors the tree built from one DocumentKey.
type DomPost struct {
	ID              string    `json:"id"`
	DocumentID      string    `json:"document_id"`
	ExtractionRunID string    `json:"extraction_run_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewDomPost creates a post for key
func NewDomPost(key DocumentKey) *DomPost {
	return &DomPost{
		ID:              GenerateID(),
		DocumentID:      key.DocumentID,
		ExtractionRunID: key.ExtractionRunID,
		CreatedAt:       time.Now().UTC(),
	}
}

// Key returns the identity pair of the post
func (p *DomPost) Key() DocumentKey {
	return DocumentKey{DocumentID: p.DocumentID, ExtractionRunID: p.ExtractionRunID}
}

// DomNode is a structural node. Nodes are written once at ingest and never
// change afterwards.
type DomNode struct {
	ID           string   `json:"id"`
	PostID       string   `json:"post_id"`
	Type         NodeType `json:"type"`
	ParentID     string   `json:"parent_id,omitempty"`
	SiblingOrder int      `json:"sibling_order"`
}

// IsRoot reports whether the node has no parent
func (n *DomNode) IsRoot() bool {
	return n.ParentID == ""
}

// NodeProvenance links a node to the upstream extraction records that produced it.
type NodeProvenance struct {
	NodeID            string   `json:"node_id"`
	RecordID          string   `json:"record_id,omitempty"`
	EventID           string   `json:"event_id,omitempty"`
	SectionIDs        []string `json:"section_ids,omitempty"`
	GazetteerEntityID string   `json:"gazetteer_entity_id,omitempty"`
	// SpatialClaim is set on EVENT nodes whose record carried a non-empty location series.
	SpatialClaim bool `json:"spatial_claim"`
}

// ContextHint is an upstream contextual annotation scoped to a node. Hints are
// stored with the tree and feed context derivation for every snapshot.
type ContextHint struct {
	PostID string      `json:"post_id"`
	NodeID string      `json:"node_id"`
	Kind   ContextKind `json:"kind"`
	Value  string      `json:"value"`
}
