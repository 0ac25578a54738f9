package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

func seedPost(t *testing.T, s *DomStore, doc string) (*domain.DomPost, *domain.DomSnapshot, *domain.IngestPlan) {
	t.Helper()
	ctx := context.Background()
	post := domain.NewDomPost(domain.DocumentKey{DocumentID: doc, ExtractionRunID: "run"})
	plan, err := domain.BuildIngestPlan(post, &domain.ExtractionRecordSet{
		Sections: []domain.SectionRecord{{ID: "s1"}},
		Events: []domain.EventRecord{{ID: "e1", SectionID: "s1", LocationSeries: []domain.LocationSeriesRecord{{
			Items: []domain.LocationRecord{{ID: "A", Text: "Alpha", Candidates: []domain.CandidateRecord{{GazetteerEntityID: "g", Name: "Alpha"}}}},
		}}}},
	})
	require.NoError(t, err)
	snap := domain.NewSnapshot(post.ID, domain.StageCreated)

	err = s.Transaction(ctx, func(tx driven.DomTx) error {
		if err := tx.CreatePost(ctx, post); err != nil {
			return err
		}
		if err := tx.InsertTree(ctx, plan.Nodes, plan.Provenance, plan.Hints); err != nil {
			return err
		}
		if err := tx.InsertSnapshot(ctx, snap); err != nil {
			return err
		}
		return tx.InsertOverlay(ctx, plan.InitialOverlay(snap.ID))
	})
	require.NoError(t, err)
	return post, snap, plan
}

func TestDomStore_CreateAndRead(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, snap, plan := seedPost(t, s, "doc-1")

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		got, err := tx.GetPostByKey(ctx, post.Key())
		require.NoError(t, err)
		assert.Equal(t, post.ID, got.ID)

		nodes, err := tx.ListNodes(ctx, post.ID)
		require.NoError(t, err)
		assert.Len(t, nodes, len(plan.Nodes))

		gotSnap, err := tx.GetSnapshot(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StageCreated, gotSnap.Stage)

		o, err := tx.GetOverlay(ctx, snap.ID)
		require.NoError(t, err)
		assert.Len(t, o.States, len(plan.Nodes))
		assert.Len(t, o.Candidates, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestDomStore_DuplicateKey(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, _, _ := seedPost(t, s, "doc-1")

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		return tx.CreatePost(ctx, domain.NewDomPost(post.Key()))
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyIngested)
}

func TestDomStore_RollbackLeavesNothing(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	boom := errors.New("boom")
	post := domain.NewDomPost(domain.DocumentKey{DocumentID: "d", ExtractionRunID: "r"})

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		require.NoError(t, tx.CreatePost(ctx, post))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Transaction(ctx, func(tx driven.DomTx) error {
		_, err := tx.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		// The key reservation is released too.
		return tx.CreatePost(ctx, domain.NewDomPost(post.Key()))
	})
	assert.NoError(t, err)
}

func TestDomStore_RollbackRestoresRows(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	_, snap, plan := seedPost(t, s, "doc-1")
	nodeID := plan.Tree.Root().ID

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		st, err := tx.GetNodeState(ctx, snap.ID, nodeID)
		require.NoError(t, err)
		st.Summary = "changed"
		require.NoError(t, tx.UpdateNodeState(ctx, st))
		return errors.New("abort")
	})

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		st, err := tx.GetNodeState(ctx, snap.ID, nodeID)
		require.NoError(t, err)
		assert.Equal(t, "", st.Summary)
		return nil
	})
}

func TestDomStore_DuplicateStage(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, _, _ := seedPost(t, s, "doc-1")

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		return tx.InsertSnapshot(ctx, domain.NewSnapshot(post.ID, domain.StageCreated))
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateStage)
}

func TestDomStore_TreeIsWriteOnce(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, _, plan := seedPost(t, s, "doc-1")

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		extra := &domain.DomNode{ID: "x", PostID: post.ID, Type: domain.NodeTypeSection, ParentID: plan.Tree.Root().ID}
		return tx.InsertTree(ctx, []*domain.DomNode{extra}, nil, nil)
	})
	assert.ErrorIs(t, err, domain.ErrStructuralImmutability)
}

func TestDomStore_CloneOverlay(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, snap, _ := seedPost(t, s, "doc-1")
	next := domain.NewSnapshot(post.ID, domain.StageInitialReview)

	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		if err := tx.InsertSnapshot(ctx, next); err != nil {
			return err
		}
		return tx.CloneOverlay(ctx, snap.ID, next.ID)
	})
	require.NoError(t, err)

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		a, err := tx.GetOverlay(ctx, snap.ID)
		require.NoError(t, err)
		b, err := tx.GetOverlay(ctx, next.ID)
		require.NoError(t, err)
		assert.Equal(t, a.CloneTo(next.ID), b.CloneTo(next.ID))

		snaps, err := tx.ListSnapshots(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, snaps, 2)
		assert.Equal(t, domain.StageInitialReview, snaps[1].Stage)
		return nil
	})
}

func TestDomStore_DeletePost(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, snap, _ := seedPost(t, s, "doc-1")

	require.NoError(t, s.Transaction(ctx, func(tx driven.DomTx) error {
		return tx.DeletePost(ctx, post.ID)
	}))

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		_, err := tx.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.GetSnapshot(ctx, snap.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		posts, err := tx.ListPosts(ctx, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, posts)
		return nil
	})
}

func TestDomStore_GetNode(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	post, _, plan := seedPost(t, s, "doc-1")
	leaf := plan.Nodes[len(plan.Nodes)-1]

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		got, err := tx.GetNode(ctx, leaf.ID)
		require.NoError(t, err)
		assert.Equal(t, post.ID, got.PostID)
		assert.Equal(t, leaf.Type, got.Type)

		_, err = tx.GetNode(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})

	// A tree inserted earlier in the same transaction resolves; once rolled
	// back it does not.
	other := domain.NewDomPost(domain.DocumentKey{DocumentID: "doc-2", ExtractionRunID: "run"})
	root := &domain.DomNode{ID: domain.GenerateID(), PostID: other.ID, Type: domain.NodeTypePost}
	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx driven.DomTx) error {
		require.NoError(t, tx.CreatePost(ctx, other))
		require.NoError(t, tx.InsertTree(ctx, []*domain.DomNode{root}, nil, nil))
		_, err := tx.GetNode(ctx, root.ID)
		assert.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.Transaction(ctx, func(tx driven.DomTx) error {
		return tx.DeletePost(ctx, post.ID)
	}))
	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		_, err := tx.GetNode(ctx, root.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tx.GetNode(ctx, leaf.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	})
}

func TestDomStore_DistinctPostsDoNotBlock(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	p1, _, _ := seedPost(t, s, "doc-1")
	p2, _, _ := seedPost(t, s, "doc-2")

	holding := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Transaction(ctx, func(tx driven.DomTx) error {
			if err := tx.LockPost(ctx, p1.ID); err != nil {
				t.Error(err)
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	done := make(chan error, 1)
	go func() {
		done <- s.Transaction(ctx, func(tx driven.DomTx) error {
			return tx.LockPost(ctx, p2.ID)
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("transaction on another post blocked")
	}
	close(release)
	wg.Wait()
}

func TestDomStore_ListPostsPaging(t *testing.T) {
	s := NewDomStore()
	ctx := context.Background()
	seedPost(t, s, "doc-1")
	seedPost(t, s, "doc-2")
	seedPost(t, s, "doc-3")

	_ = s.Transaction(ctx, func(tx driven.DomTx) error {
		page, err := tx.ListPosts(ctx, 2, 0)
		require.NoError(t, err)
		assert.Len(t, page, 2)
		rest, err := tx.ListPosts(ctx, 2, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
		empty, err := tx.ListPosts(ctx, 2, 5)
		require.NoError(t, err)
		assert.Empty(t, empty)
		return nil
	})
}
