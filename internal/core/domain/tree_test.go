package domain

import (
	"errors"
	"testing"
)

func node(id, parent string, typ NodeType, order int) *DomNode {
	return &DomNode{ID: id, PostID: "p", Type: typ, ParentID: parent, SiblingOrder: order}
}

func TestNewTree_OrdersChildren(t *testing.T) {
	post := &DomPost{ID: "p"}
	nodes := []*DomNode{
		node("root", "", NodeTypePost, 0),
		node("s-b", "root", NodeTypeSection, 1),
		node("s-a", "root", NodeTypeSection, 1),
		node("s-0", "root", NodeTypeSection, 0),
	}

	tree, err := NewTree(post, nodes, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	kids := tree.Children("root")
	got := []string{kids[0].ID, kids[1].ID, kids[2].ID}
	want := []string{"s-0", "s-a", "s-b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	if tree.Root().ID != "root" {
		t.Errorf("expected root, got %s", tree.Root().ID)
	}
	if p, ok := tree.Parent("s-a"); !ok || p.ID != "root" {
		t.Errorf("expected parent root, got %v", p)
	}
	if _, ok := tree.Parent("root"); ok {
		t.Error("root should have no parent")
	}
}

func TestNewTree_ShapeViolations(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*DomNode
	}{
		{"root is not a post", []*DomNode{node("a", "", NodeTypeSection, 0)}},
		{"two roots", []*DomNode{node("a", "", NodeTypePost, 0), node("b", "", NodeTypePost, 0)}},
		{"skipped level", []*DomNode{node("a", "", NodeTypePost, 0), node("b", "a", NodeTypeEvent, 0)}},
		{"child of candidate", []*DomNode{
			node("a", "", NodeTypePost, 0),
			node("b", "a", NodeTypeSection, 0),
			node("c", "b", NodeTypeEvent, 0),
			node("d", "c", NodeTypeLocationSeries, 0),
			node("e", "d", NodeTypeLocation, 0),
			node("f", "e", NodeTypeLocationCandidate, 0),
			node("g", "f", NodeTypeLocationCandidate, 0),
		}},
		{"unknown parent", []*DomNode{node("a", "", NodeTypePost, 0), node("b", "zz", NodeTypeSection, 0)}},
		{"duplicate id", []*DomNode{node("a", "", NodeTypePost, 0), node("a", "a", NodeTypeSection, 0)}},
		{"unknown type", []*DomNode{node("a", "", NodeTypePost, 0), node("b", "a", "CHAPTER", 0)}},
		{"no root", []*DomNode{node("a", "b", NodeTypeSection, 0), node("b", "a", NodeTypeSection, 0)}},
		{"cycle beside root", []*DomNode{
			node("r", "", NodeTypePost, 0),
			node("a", "b", NodeTypeSection, 0),
			node("b", "a", NodeTypeSection, 0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTree(&DomPost{ID: "p"}, tt.nodes, nil)
			if !errors.Is(err, ErrInvalidTreeShape) {
				t.Errorf("expected ErrInvalidTreeShape, got %v", err)
			}
		})
	}
}

func TestNewTree_ForeignPost(t *testing.T) {
	n := node("a", "", NodeTypePost, 0)
	n.PostID = "other"
	if _, err := NewTree(&DomPost{ID: "p"}, []*DomNode{n}, nil); !errors.Is(err, ErrInvalidTreeShape) {
		t.Errorf("expected ErrInvalidTreeShape, got %v", err)
	}
}

func TestTree_Traversals(t *testing.T) {
	nodes := []*DomNode{
		node("p", "", NodeTypePost, 0),
		node("s", "p", NodeTypeSection, 0),
		node("e1", "s", NodeTypeEvent, 0),
		node("e2", "s", NodeTypeEvent, 1),
		node("ls", "e1", NodeTypeLocationSeries, 0),
	}
	tree, err := NewTree(&DomPost{ID: "p"}, nodes, []*NodeProvenance{{NodeID: "e1", EventID: "ev"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := func(ns []*DomNode) []string {
		out := make([]string, len(ns))
		for i, n := range ns {
			out[i] = n.ID
		}
		return out
	}

	pre := ids(tree.Nodes())
	if want := []string{"p", "s", "e1", "ls", "e2"}; !equalStrings(pre, want) {
		t.Errorf("preorder: expected %v, got %v", want, pre)
	}
	post := ids(tree.PostOrder())
	if want := []string{"ls", "e1", "e2", "s", "p"}; !equalStrings(post, want) {
		t.Errorf("postorder: expected %v, got %v", want, post)
	}
	anc := ids(tree.Ancestors("ls"))
	if want := []string{"e1", "s", "p"}; !equalStrings(anc, want) {
		t.Errorf("ancestors: expected %v, got %v", want, anc)
	}

	nested := tree.Nested()
	if nested.ID != "p" || len(nested.Children) != 1 || len(nested.Children[0].Children) != 2 {
		t.Errorf("unexpected nested tree %+v", nested)
	}
	if nested.Children[0].Children[0].Provenance == nil {
		t.Error("expected provenance on e1")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
