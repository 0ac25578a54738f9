package domain

import (
	"fmt"
	"sort"
)

// Tree is the arena form of a post's structure: nodes addressed by id plus an
// index of ordered children per node. Children never reference their parent
// object, only its id.
type Tree struct {
	Post       *DomPost
	root       string
	nodes      map[string]*DomNode
	children   map[string][]string
	provenance map[string]*NodeProvenance
	order      []string
}

// NewTree indexes nodes and checks them against the type lattice. It returns
// ErrInvalidTreeShape when the nodes do not form a single well-typed tree
// rooted at a POST node belonging to post.
func NewTree(post *DomPost, nodes []*DomNode, provenance []*NodeProvenance) (*Tree, error) {
	t := &Tree{
		Post:       post,
		nodes:      make(map[string]*DomNode, len(nodes)),
		children:   make(map[string][]string, len(nodes)),
		provenance: make(map[string]*NodeProvenance, len(provenance)),
	}

	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrInvalidTreeShape)
		}
		if _, dup := t.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %s", ErrInvalidTreeShape, n.ID)
		}
		if post != nil && n.PostID != post.ID {
			return nil, fmt.Errorf("%w: node %s belongs to post %s", ErrInvalidTreeShape, n.ID, n.PostID)
		}
		if !n.Type.Valid() {
			return nil, fmt.Errorf("%w: node %s has unknown type %q", ErrInvalidTreeShape, n.ID, n.Type)
		}
		t.nodes[n.ID] = n
	}

	for _, n := range nodes {
		if n.IsRoot() {
			if n.Type != NodeTypePost {
				return nil, fmt.Errorf("%w: root node %s is %s", ErrInvalidTreeShape, n.ID, n.Type)
			}
			if t.root != "" {
				return nil, fmt.Errorf("%w: multiple roots", ErrInvalidTreeShape)
			}
			t.root = n.ID
			continue
		}
		parent, ok := t.nodes[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: node %s has unknown parent %s", ErrInvalidTreeShape, n.ID, n.ParentID)
		}
		want, ok := parent.Type.ChildType()
		if !ok || want != n.Type {
			return nil, fmt.Errorf("%w: %s cannot be a child of %s", ErrInvalidTreeShape, n.Type, parent.Type)
		}
		t.children[parent.ID] = append(t.children[parent.ID], n.ID)
	}
	if t.root == "" && len(nodes) > 0 {
		return nil, fmt.Errorf("%w: no POST root", ErrInvalidTreeShape)
	}

	for id, kids := range t.children {
		sort.Slice(kids, func(i, j int) bool {
			a, b := t.nodes[kids[i]], t.nodes[kids[j]]
			if a.SiblingOrder != b.SiblingOrder {
				return a.SiblingOrder < b.SiblingOrder
			}
			return a.ID < b.ID
		})
		t.children[id] = kids
	}

	// Parent links are validated above, so a node missing from the preorder
	// walk sits on a parent cycle.
	if t.root != "" {
		t.order = make([]string, 0, len(nodes))
		t.walk(t.root, func(n *DomNode) { t.order = append(t.order, n.ID) })
	}
	if len(t.order) != len(nodes) {
		return nil, fmt.Errorf("%w: %d nodes unreachable from root", ErrInvalidTreeShape, len(nodes)-len(t.order))
	}

	for _, p := range provenance {
		if _, ok := t.nodes[p.NodeID]; !ok {
			return nil, fmt.Errorf("%w: provenance for unknown node %s", ErrInvalidTreeShape, p.NodeID)
		}
		t.provenance[p.NodeID] = p
	}
	return t, nil
}

func (t *Tree) walk(id string, fn func(*DomNode)) {
	fn(t.nodes[id])
	for _, c := range t.children[id] {
		t.walk(c, fn)
	}
}

// Root returns the POST node
func (t *Tree) Root() *DomNode {
	return t.nodes[t.root]
}

// Len returns the number of nodes
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with id
func (t *Tree) Node(id string) (*DomNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Provenance returns the provenance record for a node
func (t *Tree) Provenance(id string) (*NodeProvenance, bool) {
	p, ok := t.provenance[id]
	return p, ok
}

// Children returns the children of id ordered by sibling order, then id.
func (t *Tree) Children(id string) []*DomNode {
	kids := t.children[id]
	out := make([]*DomNode, len(kids))
	for i, k := range kids {
		out[i] = t.nodes[k]
	}
	return out
}

// Parent returns the parent of id
func (t *Tree) Parent(id string) (*DomNode, bool) {
	n, ok := t.nodes[id]
	if !ok || n.IsRoot() {
		return nil, false
	}
	return t.Node(n.ParentID)
}

// Ancestors returns the ancestors of id nearest first, excluding id itself.
func (t *Tree) Ancestors(id string) []*DomNode {
	var out []*DomNode
	for p, ok := t.Parent(id); ok; p, ok = t.Parent(p.ID) {
		out = append(out, p)
	}
	return out
}

// Nodes returns every node in deterministic preorder.
func (t *Tree) Nodes() []*DomNode {
	out := make([]*DomNode, len(t.order))
	for i, id := range t.order {
		out[i] = t.nodes[id]
	}
	return out
}

// PostOrder returns every node with children before their parent.
func (t *Tree) PostOrder() []*DomNode {
	out := make([]*DomNode, 0, len(t.order))
	var visit func(id string)
	visit = func(id string) {
		for _, c := range t.children[id] {
			visit(c)
		}
		out = append(out, t.nodes[id])
	}
	if t.root != "" {
		visit(t.root)
	}
	return out
}

// AllProvenance returns provenance records in node preorder.
func (t *Tree) AllProvenance() []*NodeProvenance {
	out := make([]*NodeProvenance, 0, len(t.provenance))
	for _, id := range t.order {
		if p, ok := t.provenance[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// TreeNode is the nested rendering of a Tree used by read APIs.
type TreeNode struct {
	*DomNode
	Provenance *NodeProvenance `json:"provenance,omitempty"`
	Children   []*TreeNode     `json:"children,omitempty"`
}

// Nested renders the tree as nested TreeNodes starting at the root.
func (t *Tree) Nested() *TreeNode {
	if t.root == "" {
		return nil
	}
	var build func(id string) *TreeNode
	build = func(id string) *TreeNode {
		tn := &TreeNode{DomNode: t.nodes[id], Provenance: t.provenance[id]}
		for _, c := range t.children[id] {
			tn.Children = append(tn.Children, build(c))
		}
		return tn
	}
	return build(t.root)
}
