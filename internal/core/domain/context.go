package domain

// DeriveContexts computes the automatic context rows of a snapshot from the
// post's hints. For each node and kind the hint scoped to the nearest node on
// the path from the node up to the root wins (the node itself first).
// Candidate nodes carry no context. The result is in tree preorder and
// ContextKinds order; every row has Overridden=false.
func DeriveContexts(snapshotID string, tree *Tree, hints []*ContextHint) []*NodeContext {
	byNode := make(map[string]map[ContextKind]string)
	for _, h := range hints {
		if _, ok := tree.Node(h.NodeID); !ok || !h.Kind.Valid() {
			continue
		}
		if byNode[h.NodeID] == nil {
			byNode[h.NodeID] = make(map[ContextKind]string)
		}
		// Later hints for the same scope and kind replace earlier ones.
		byNode[h.NodeID][h.Kind] = h.Value
	}

	var out []*NodeContext
	for _, n := range tree.Nodes() {
		if n.Type == NodeTypeLocationCandidate {
			continue
		}
		chain := append([]*DomNode{n}, tree.Ancestors(n.ID)...)
		for _, kind := range ContextKinds() {
			for _, scope := range chain {
				if v, ok := byNode[scope.ID][kind]; ok {
					out = append(out, &NodeContext{
						SnapshotID: snapshotID,
						NodeID:     n.ID,
						Kind:       kind,
						Value:      v,
					})
					break
				}
			}
		}
	}
	return out
}

// MergeDerivedContexts returns the rows of derived that may be written over
// existing: a derived row never replaces an overridden row.
func MergeDerivedContexts(existing []*NodeContext, derived []*NodeContext) []*NodeContext {
	sticky := make(map[string]bool)
	for _, c := range existing {
		if c.Overridden {
			sticky[c.NodeID+"\x00"+string(c.Kind)] = true
		}
	}
	out := make([]*NodeContext, 0, len(derived))
	for _, d := range derived {
		if sticky[d.NodeID+"\x00"+string(d.Kind)] {
			continue
		}
		out = append(out, d)
	}
	return out
}
