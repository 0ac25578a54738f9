package domain

import "fmt"

// EligibilityReason explains why a node is not eligible for commit
type EligibilityReason string

const (
	ReasonDeselected          EligibilityReason = "DESELECTED"
	ReasonNotPersisted        EligibilityReason = "NOT_PERSISTED"
	ReasonUnresolved          EligibilityReason = "UNRESOLVED"
	ReasonDeduped             EligibilityReason = "DEDUPED"
	ReasonNoEligibleCandidate EligibilityReason = "NO_ELIGIBLE_CANDIDATE"
	ReasonNoEligibleLocation  EligibilityReason = "NO_ELIGIBLE_LOCATION"
	ReasonNoEligibleSeries    EligibilityReason = "NO_ELIGIBLE_SERIES"
	ReasonNoEligibleEvent     EligibilityReason = "NO_ELIGIBLE_EVENT"
	ReasonNoEligibleChild     EligibilityReason = "NO_ELIGIBLE_CHILD"
)

// CommitEligibility is the derived verdict for one node in one snapshot.
// Reason is empty when Eligible is true.
type CommitEligibility struct {
	SnapshotID string            `json:"snapshot_id"`
	NodeID     string            `json:"node_id"`
	Eligible   bool              `json:"eligible"`
	Reason     EligibilityReason `json:"reason,omitempty"`
}

// ComputeEligibility derives the verdict of every node of v bottom-up.
// The result is ordered by tree preorder, so equal inputs give equal outputs.
func ComputeEligibility(v *SnapshotView) ([]*CommitEligibility, error) {
	verdicts := make(map[string]*CommitEligibility, v.Tree.Len())

	for _, n := range v.Tree.PostOrder() {
		state, ok := v.States[n.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no state for node %s", ErrNodeNotFound, n.ID)
		}
		reason, err := nodeReason(v, n, state, verdicts)
		if err != nil {
			return nil, err
		}
		verdicts[n.ID] = &CommitEligibility{
			SnapshotID: v.Snapshot.ID,
			NodeID:     n.ID,
			Eligible:   reason == "",
			Reason:     reason,
		}
	}

	out := make([]*CommitEligibility, 0, len(verdicts))
	for _, n := range v.Tree.Nodes() {
		out = append(out, verdicts[n.ID])
	}
	return out, nil
}

func nodeReason(v *SnapshotView, n *DomNode, s *NodeState, verdicts map[string]*CommitEligibility) (EligibilityReason, error) {
	children := v.Tree.Children(n.ID)
	anyEligible := func() bool {
		for _, c := range children {
			if verdicts[c.ID].Eligible {
				return true
			}
		}
		return false
	}

	switch n.Type {
	case NodeTypeLocationCandidate:
		c, ok := v.Candidates[n.ID]
		if !ok {
			return "", fmt.Errorf("%w: no candidate row for node %s", ErrNodeNotFound, n.ID)
		}
		if !c.Selected {
			return ReasonDeselected, nil
		}
		if !c.Persists {
			return ReasonNotPersisted, nil
		}
		return "", nil

	case NodeTypeLocation:
		// DEDUPED outranks the location's own flags: a duplicate is never
		// committed, whatever its resolution or selection.
		if s.Deduped {
			return ReasonDeduped, nil
		}
		if !s.IsResolved() {
			return ReasonUnresolved, nil
		}
		if !s.Selected {
			return ReasonDeselected, nil
		}
		if len(children) > 0 && !anyEligible() {
			return ReasonNoEligibleCandidate, nil
		}
		return "", nil

	case NodeTypeLocationSeries, NodeTypeSection:
		if s.Deduped {
			return ReasonDeduped, nil
		}
		if !s.Selected {
			return ReasonDeselected, nil
		}
		if !anyEligible() {
			if n.Type == NodeTypeSection {
				return ReasonNoEligibleEvent, nil
			}
			return ReasonNoEligibleLocation, nil
		}
		return "", nil

	case NodeTypeEvent:
		if s.Deduped {
			return ReasonDeduped, nil
		}
		if !s.Selected {
			return ReasonDeselected, nil
		}
		if p, ok := v.Tree.Provenance(n.ID); ok && p.SpatialClaim && !anyEligible() {
			return ReasonNoEligibleSeries, nil
		}
		return "", nil

	case NodeTypePost:
		if !anyEligible() {
			return ReasonNoEligibleChild, nil
		}
		return "", nil
	}
	return "", fmt.Errorf("%w: unknown node type %s", ErrInvalidTreeShape, n.Type)
}

// EligibilityEqual reports whether two eligibility tables carry the same
// (node, eligible, reason) triples.
func EligibilityEqual(a, b []*CommitEligibility) bool {
	if len(a) != len(b) {
		return false
	}
	idx := make(map[string]*CommitEligibility, len(a))
	for _, e := range a {
		idx[e.NodeID] = e
	}
	for _, e := range b {
		o, ok := idx[e.NodeID]
		if !ok || o.Eligible != e.Eligible || o.Reason != e.Reason {
			return false
		}
	}
	return true
}
