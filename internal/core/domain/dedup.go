package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidateDedup checks that nodeID may be marked a duplicate of targetID in v:
// both nodes belong to the snapshot's tree, share a type, differ, and the
// target's dedup chain does not lead back to nodeID.
func ValidateDedup(v *SnapshotView, nodeID, targetID string) error {
	if nodeID == targetID {
		return fmt.Errorf("%w: node cannot duplicate itself", ErrInvalidDedup)
	}
	node, ok := v.Tree.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	target, ok := v.Tree.Node(targetID)
	if !ok {
		return fmt.Errorf("%w: target %s is not part of post %s", ErrInvalidDedup, targetID, node.PostID)
	}
	if node.Type != target.Type {
		return fmt.Errorf("%w: %s cannot duplicate %s", ErrInvalidDedup, node.Type, target.Type)
	}

	visited := map[string]bool{}
	for cur := targetID; ; {
		if cur == nodeID {
			return fmt.Errorf("%w: %s is already deduplicated into %s", ErrInvalidDedup, targetID, nodeID)
		}
		if visited[cur] {
			return fmt.Errorf("%w: at %s", ErrDedupCycle, cur)
		}
		visited[cur] = true
		s, ok := v.States[cur]
		if !ok || !s.Deduped || s.DedupTarget == nil {
			return nil
		}
		cur = *s.DedupTarget
	}
}

// ResolveDedup follows dedup targets from nodeID to the first node that is
// not deduplicated. A chain that revisits a node fails with ErrDedupCycle.
func ResolveDedup(states map[string]*NodeState, nodeID string) (string, error) {
	visited := map[string]bool{}
	cur := nodeID
	for {
		if visited[cur] {
			return "", fmt.Errorf("%w: chain from %s revisits %s", ErrDedupCycle, nodeID, cur)
		}
		visited[cur] = true
		s, ok := states[cur]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNodeNotFound, cur)
		}
		if !s.Deduped || s.DedupTarget == nil {
			return cur, nil
		}
		cur = *s.DedupTarget
	}
}

// DedupSuggestion proposes marking NodeID as a duplicate of TargetID
type DedupSuggestion struct {
	NodeID   string `json:"node_id"`
	TargetID string `json:"target_id"`
}

// SuggestDuplicates finds siblings of the same type whose normalized summary
// and context signature match. Each match is suggested as a duplicate of the
// first such sibling in sibling order. Already deduplicated nodes, candidates
// and nodes with an empty summary are skipped.
func SuggestDuplicates(v *SnapshotView) []DedupSuggestion {
	var out []DedupSuggestion
	for _, parent := range v.Tree.Nodes() {
		first := map[string]string{}
		for _, c := range v.Tree.Children(parent.ID) {
			if c.Type == NodeTypeLocationCandidate {
				continue
			}
			s, ok := v.States[c.ID]
			if !ok || s.Deduped {
				continue
			}
			text := NormalizeText(s.Summary)
			if text == "" {
				continue
			}
			key := string(c.Type) + "\x00" + text + "\x00" + contextSignature(v, c.ID)
			if target, seen := first[key]; seen {
				out = append(out, DedupSuggestion{NodeID: c.ID, TargetID: target})
				continue
			}
			first[key] = c.ID
		}
	}
	return out
}

func contextSignature(v *SnapshotView, nodeID string) string {
	rows := v.Contexts[nodeID]
	parts := make([]string, 0, len(rows))
	for kind, c := range rows {
		parts = append(parts, string(kind)+"="+NormalizeText(c.Value))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}
