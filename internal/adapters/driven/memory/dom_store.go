// Package memory provides an in-process DomStore. Each post is a shard; a
// transaction locks the shards it touches, works on a private copy and swaps
// the copies in on commit, so operations on distinct posts never wait on
// each other and a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.DomStore = (*DomStore)(nil)

// DomStore implements driven.DomStore in memory
type DomStore struct {
	mu        sync.Mutex
	shards    map[string]*shard
	keys      map[domain.DocumentKey]string
	snapshots map[string]string // snapshot id -> post id
	nodes     map[string]string // node id -> post id
}

type shard struct {
	lock sync.Mutex
	data *postData
}

type ctxKey struct {
	node string
	kind domain.ContextKind
}

type actorKey struct {
	event string
	text  string
}

type postData struct {
	post       *domain.DomPost
	nodes      []*domain.DomNode
	provenance []*domain.NodeProvenance
	hints      []*domain.ContextHint
	snapshots  []*domain.DomSnapshot

	states      map[string]map[string]*domain.NodeState
	contexts    map[string]map[ctxKey]*domain.NodeContext
	actors      map[string]map[actorKey]*domain.Actor
	candidates  map[string]map[string]*domain.LocationCandidate
	eligibility map[string][]*domain.CommitEligibility
}

func newPostData(post *domain.DomPost) *postData {
	return &postData{
		post:        post,
		states:      make(map[string]map[string]*domain.NodeState),
		contexts:    make(map[string]map[ctxKey]*domain.NodeContext),
		actors:      make(map[string]map[actorKey]*domain.Actor),
		candidates:  make(map[string]map[string]*domain.LocationCandidate),
		eligibility: make(map[string][]*domain.CommitEligibility),
	}
}

// clone copies the mutable row maps. Structure, provenance, hints and
// snapshots are append-only, so their elements are shared.
func (d *postData) clone() *postData {
	c := newPostData(d.post)
	c.nodes = append([]*domain.DomNode(nil), d.nodes...)
	c.provenance = append([]*domain.NodeProvenance(nil), d.provenance...)
	c.hints = append([]*domain.ContextHint(nil), d.hints...)
	c.snapshots = append([]*domain.DomSnapshot(nil), d.snapshots...)
	for snap, rows := range d.states {
		m := make(map[string]*domain.NodeState, len(rows))
		for k, v := range rows {
			m[k] = v.CloneTo(v.SnapshotID)
		}
		c.states[snap] = m
	}
	for snap, rows := range d.contexts {
		m := make(map[ctxKey]*domain.NodeContext, len(rows))
		for k, v := range rows {
			m[k] = v.CloneTo(v.SnapshotID)
		}
		c.contexts[snap] = m
	}
	for snap, rows := range d.actors {
		m := make(map[actorKey]*domain.Actor, len(rows))
		for k, v := range rows {
			m[k] = v.CloneTo(v.SnapshotID)
		}
		c.actors[snap] = m
	}
	for snap, rows := range d.candidates {
		m := make(map[string]*domain.LocationCandidate, len(rows))
		for k, v := range rows {
			m[k] = v.CloneTo(v.SnapshotID)
		}
		c.candidates[snap] = m
	}
	for snap, rows := range d.eligibility {
		c.eligibility[snap] = copyEligibility(rows)
	}
	return c
}

func copyEligibility(rows []*domain.CommitEligibility) []*domain.CommitEligibility {
	out := make([]*domain.CommitEligibility, len(rows))
	for i, r := range rows {
		e := *r
		out[i] = &e
	}
	return out
}

// NewDomStore creates an empty store
func NewDomStore() *DomStore {
	return &DomStore{
		shards:    make(map[string]*shard),
		keys:      make(map[domain.DocumentKey]string),
		snapshots: make(map[string]string),
		nodes:     make(map[string]string),
	}
}

// Ping always succeeds
func (s *DomStore) Ping(ctx context.Context) error {
	return nil
}

// Transaction runs fn against private copies of the shards it touches.
func (s *DomStore) Transaction(ctx context.Context, fn func(tx driven.DomTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &domTx{
		store:     s,
		held:      make(map[string]*heldShard),
		created:   make(map[string]bool),
		deleted:   make(map[string]bool),
		snapshots: make(map[string]string),
	}
	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

type heldShard struct {
	shard *shard
	work  *postData
}

type domTx struct {
	store     *DomStore
	held      map[string]*heldShard
	created   map[string]bool
	deleted   map[string]bool
	snapshots map[string]string
}

// acquire locks the shard of postID for the rest of the transaction.
func (tx *domTx) acquire(postID string) (*postData, error) {
	if h, ok := tx.held[postID]; ok {
		if tx.deleted[postID] {
			return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
		}
		return h.work, nil
	}
	tx.store.mu.Lock()
	sh, ok := tx.store.shards[postID]
	tx.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	sh.lock.Lock()
	if sh.data == nil {
		// Deleted by a transaction that committed while we waited.
		sh.lock.Unlock()
		return nil, fmt.Errorf("post %s: %w", postID, domain.ErrNotFound)
	}
	h := &heldShard{shard: sh, work: sh.data.clone()}
	tx.held[postID] = h
	return h.work, nil
}

func (tx *domTx) postOfSnapshot(snapshotID string) (string, error) {
	if postID, ok := tx.snapshots[snapshotID]; ok {
		return postID, nil
	}
	tx.store.mu.Lock()
	postID, ok := tx.store.snapshots[snapshotID]
	tx.store.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
	}
	return postID, nil
}

func (tx *domTx) snapshotData(snapshotID string) (*postData, error) {
	postID, err := tx.postOfSnapshot(snapshotID)
	if err != nil {
		return nil, err
	}
	return tx.acquire(postID)
}

func (tx *domTx) commit() {
	s := tx.store
	s.mu.Lock()
	for postID, h := range tx.held {
		if tx.deleted[postID] {
			delete(s.shards, postID)
			delete(s.keys, h.work.post.Key())
			for _, snap := range h.work.snapshots {
				delete(s.snapshots, snap.ID)
			}
			for _, n := range h.work.nodes {
				delete(s.nodes, n.ID)
			}
			h.shard.data = nil
			continue
		}
		h.shard.data = h.work
		for _, snap := range h.work.snapshots {
			s.snapshots[snap.ID] = postID
		}
		for _, n := range h.work.nodes {
			s.nodes[n.ID] = postID
		}
		if tx.created[postID] {
			s.shards[postID] = h.shard
		}
	}
	s.mu.Unlock()
	tx.release()
}

func (tx *domTx) rollback() {
	s := tx.store
	s.mu.Lock()
	for postID := range tx.created {
		delete(s.keys, tx.held[postID].work.post.Key())
	}
	s.mu.Unlock()
	tx.release()
}

func (tx *domTx) release() {
	for _, h := range tx.held {
		h.shard.lock.Unlock()
	}
	tx.held = nil
}

func (tx *domTx) CreatePost(ctx context.Context, post *domain.DomPost) error {
	s := tx.store
	s.mu.Lock()
	if _, taken := s.keys[post.Key()]; taken {
		s.mu.Unlock()
		return domain.ErrAlreadyIngested
	}
	// Reserving the key here makes a concurrent ingest of the same key fail
	// even before this transaction commits.
	s.keys[post.Key()] = post.ID
	s.mu.Unlock()

	sh := &shard{}
	sh.lock.Lock()
	tx.held[post.ID] = &heldShard{shard: sh, work: newPostData(post)}
	tx.created[post.ID] = true
	return nil
}

func (tx *domTx) GetPost(ctx context.Context, id string) (*domain.DomPost, error) {
	d, err := tx.acquire(id)
	if err != nil {
		return nil, err
	}
	return d.post, nil
}

func (tx *domTx) GetPostByKey(ctx context.Context, key domain.DocumentKey) (*domain.DomPost, error) {
	tx.store.mu.Lock()
	postID, ok := tx.store.keys[key]
	tx.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tx.GetPost(ctx, postID)
}

func (tx *domTx) ListPosts(ctx context.Context, limit, offset int) ([]*domain.DomPost, error) {
	s := tx.store
	s.mu.Lock()
	ids := make([]string, 0, len(s.shards))
	for id := range s.shards {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	posts := make([]*domain.DomPost, 0, len(ids))
	for _, id := range ids {
		if h, ok := tx.held[id]; ok {
			if !tx.deleted[id] {
				posts = append(posts, h.work.post)
			}
			continue
		}
		// Posts are immutable once created, so reading one without the
		// shard lock is safe.
		s.mu.Lock()
		sh := s.shards[id]
		s.mu.Unlock()
		if sh == nil {
			continue
		}
		sh.lock.Lock()
		if sh.data != nil {
			posts = append(posts, sh.data.post)
		}
		sh.lock.Unlock()
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	if offset >= len(posts) {
		return []*domain.DomPost{}, nil
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (tx *domTx) DeletePost(ctx context.Context, id string) error {
	if _, err := tx.acquire(id); err != nil {
		return err
	}
	tx.deleted[id] = true
	return nil
}

func (tx *domTx) LockPost(ctx context.Context, id string) error {
	_, err := tx.acquire(id)
	return err
}

func (tx *domTx) InsertTree(ctx context.Context, nodes []*domain.DomNode, provenance []*domain.NodeProvenance, hints []*domain.ContextHint) error {
	if len(nodes) == 0 {
		return nil
	}
	d, err := tx.acquire(nodes[0].PostID)
	if err != nil {
		return err
	}
	if len(d.nodes) > 0 {
		return domain.ErrStructuralImmutability
	}
	for _, n := range nodes {
		if n.PostID != d.post.ID {
			return fmt.Errorf("%w: node %s spans posts", domain.ErrInvalidTreeShape, n.ID)
		}
	}
	d.nodes = append(d.nodes, nodes...)
	d.provenance = append(d.provenance, provenance...)
	d.hints = append(d.hints, hints...)
	return nil
}

func (tx *domTx) GetNode(ctx context.Context, id string) (*domain.DomNode, error) {
	postID, ok := tx.postOfNode(id)
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	d, err := tx.acquire(postID)
	if err != nil {
		return nil, err
	}
	for _, n := range d.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
}

// postOfNode looks in the posts this transaction holds before the
// committed index, so trees inserted earlier in the transaction resolve.
func (tx *domTx) postOfNode(id string) (string, bool) {
	for postID, h := range tx.held {
		if tx.deleted[postID] {
			continue
		}
		for _, n := range h.work.nodes {
			if n.ID == id {
				return postID, true
			}
		}
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	postID, ok := tx.store.nodes[id]
	return postID, ok
}

func (tx *domTx) ListNodes(ctx context.Context, postID string) ([]*domain.DomNode, error) {
	d, err := tx.acquire(postID)
	if err != nil {
		return nil, err
	}
	return append([]*domain.DomNode(nil), d.nodes...), nil
}

func (tx *domTx) ListProvenance(ctx context.Context, postID string) ([]*domain.NodeProvenance, error) {
	d, err := tx.acquire(postID)
	if err != nil {
		return nil, err
	}
	return append([]*domain.NodeProvenance(nil), d.provenance...), nil
}

func (tx *domTx) ListContextHints(ctx context.Context, postID string) ([]*domain.ContextHint, error) {
	d, err := tx.acquire(postID)
	if err != nil {
		return nil, err
	}
	return append([]*domain.ContextHint(nil), d.hints...), nil
}

func (tx *domTx) InsertSnapshot(ctx context.Context, snapshot *domain.DomSnapshot) error {
	d, err := tx.acquire(snapshot.PostID)
	if err != nil {
		return err
	}
	for _, existing := range d.snapshots {
		if existing.Stage == snapshot.Stage {
			return domain.ErrDuplicateStage
		}
	}
	d.snapshots = append(d.snapshots, snapshot)
	sort.Slice(d.snapshots, func(i, j int) bool { return d.snapshots[i].Stage < d.snapshots[j].Stage })
	d.states[snapshot.ID] = make(map[string]*domain.NodeState)
	d.contexts[snapshot.ID] = make(map[ctxKey]*domain.NodeContext)
	d.actors[snapshot.ID] = make(map[actorKey]*domain.Actor)
	d.candidates[snapshot.ID] = make(map[string]*domain.LocationCandidate)
	tx.snapshots[snapshot.ID] = snapshot.PostID
	return nil
}

func (tx *domTx) GetSnapshot(ctx context.Context, id string) (*domain.DomSnapshot, error) {
	d, err := tx.snapshotData(id)
	if err != nil {
		return nil, err
	}
	for _, s := range d.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("snapshot %s: %w", id, domain.ErrNotFound)
}

func (tx *domTx) ListSnapshots(ctx context.Context, postID string) ([]*domain.DomSnapshot, error) {
	d, err := tx.acquire(postID)
	if err != nil {
		return nil, err
	}
	return append([]*domain.DomSnapshot(nil), d.snapshots...), nil
}

func (tx *domTx) InsertOverlay(ctx context.Context, o *domain.Overlay) error {
	for _, s := range o.States {
		d, err := tx.snapshotData(s.SnapshotID)
		if err != nil {
			return err
		}
		if _, dup := d.states[s.SnapshotID][s.NodeID]; dup {
			return fmt.Errorf("state %s/%s: %w", s.SnapshotID, s.NodeID, domain.ErrAlreadyExists)
		}
		d.states[s.SnapshotID][s.NodeID] = s.CloneTo(s.SnapshotID)
	}
	if err := tx.UpsertContexts(ctx, o.Contexts); err != nil {
		return err
	}
	for _, a := range o.Actors {
		if err := tx.UpsertActor(ctx, a); err != nil {
			return err
		}
	}
	for _, c := range o.Candidates {
		d, err := tx.snapshotData(c.SnapshotID)
		if err != nil {
			return err
		}
		d.candidates[c.SnapshotID][c.NodeID] = c.CloneTo(c.SnapshotID)
	}
	return nil
}

func (tx *domTx) CloneOverlay(ctx context.Context, fromSnapshotID, toSnapshotID string) error {
	from, err := tx.GetOverlay(ctx, fromSnapshotID)
	if err != nil {
		return err
	}
	return tx.InsertOverlay(ctx, from.CloneTo(toSnapshotID))
}

func (tx *domTx) GetOverlay(ctx context.Context, snapshotID string) (*domain.Overlay, error) {
	d, err := tx.snapshotData(snapshotID)
	if err != nil {
		return nil, err
	}
	o := &domain.Overlay{}
	for _, s := range d.states[snapshotID] {
		o.States = append(o.States, s.CloneTo(snapshotID))
	}
	sort.Slice(o.States, func(i, j int) bool { return o.States[i].NodeID < o.States[j].NodeID })
	for _, c := range d.contexts[snapshotID] {
		o.Contexts = append(o.Contexts, c.CloneTo(snapshotID))
	}
	sort.Slice(o.Contexts, func(i, j int) bool {
		if o.Contexts[i].NodeID != o.Contexts[j].NodeID {
			return o.Contexts[i].NodeID < o.Contexts[j].NodeID
		}
		return o.Contexts[i].Kind < o.Contexts[j].Kind
	})
	for _, a := range d.actors[snapshotID] {
		o.Actors = append(o.Actors, a.CloneTo(snapshotID))
	}
	sort.Slice(o.Actors, func(i, j int) bool {
		if o.Actors[i].EventNodeID != o.Actors[j].EventNodeID {
			return o.Actors[i].EventNodeID < o.Actors[j].EventNodeID
		}
		return o.Actors[i].Text < o.Actors[j].Text
	})
	for _, c := range d.candidates[snapshotID] {
		o.Candidates = append(o.Candidates, c.CloneTo(snapshotID))
	}
	sort.Slice(o.Candidates, func(i, j int) bool { return o.Candidates[i].NodeID < o.Candidates[j].NodeID })
	o.Eligibility = copyEligibility(d.eligibility[snapshotID])
	return o, nil
}

func (tx *domTx) GetNodeState(ctx context.Context, snapshotID, nodeID string) (*domain.NodeState, error) {
	d, err := tx.snapshotData(snapshotID)
	if err != nil {
		return nil, err
	}
	s, ok := d.states[snapshotID][nodeID]
	if !ok {
		return nil, fmt.Errorf("state %s/%s: %w", snapshotID, nodeID, domain.ErrNotFound)
	}
	return s.CloneTo(snapshotID), nil
}

func (tx *domTx) UpdateNodeState(ctx context.Context, state *domain.NodeState) error {
	d, err := tx.snapshotData(state.SnapshotID)
	if err != nil {
		return err
	}
	if _, ok := d.states[state.SnapshotID][state.NodeID]; !ok {
		return fmt.Errorf("state %s/%s: %w", state.SnapshotID, state.NodeID, domain.ErrNotFound)
	}
	d.states[state.SnapshotID][state.NodeID] = state.CloneTo(state.SnapshotID)
	return nil
}

func (tx *domTx) UpsertContexts(ctx context.Context, contexts []*domain.NodeContext) error {
	for _, c := range contexts {
		d, err := tx.snapshotData(c.SnapshotID)
		if err != nil {
			return err
		}
		d.contexts[c.SnapshotID][ctxKey{c.NodeID, c.Kind}] = c.CloneTo(c.SnapshotID)
	}
	return nil
}

func (tx *domTx) UpsertActor(ctx context.Context, a *domain.Actor) error {
	d, err := tx.snapshotData(a.SnapshotID)
	if err != nil {
		return err
	}
	d.actors[a.SnapshotID][actorKey{a.EventNodeID, a.Text}] = a.CloneTo(a.SnapshotID)
	return nil
}

func (tx *domTx) GetLocationCandidate(ctx context.Context, snapshotID, nodeID string) (*domain.LocationCandidate, error) {
	d, err := tx.snapshotData(snapshotID)
	if err != nil {
		return nil, err
	}
	c, ok := d.candidates[snapshotID][nodeID]
	if !ok {
		return nil, fmt.Errorf("candidate %s/%s: %w", snapshotID, nodeID, domain.ErrNotFound)
	}
	return c.CloneTo(snapshotID), nil
}

func (tx *domTx) UpdateLocationCandidate(ctx context.Context, c *domain.LocationCandidate) error {
	d, err := tx.snapshotData(c.SnapshotID)
	if err != nil {
		return err
	}
	existing, ok := d.candidates[c.SnapshotID][c.NodeID]
	if !ok {
		return fmt.Errorf("candidate %s/%s: %w", c.SnapshotID, c.NodeID, domain.ErrNotFound)
	}
	updated := existing.CloneTo(c.SnapshotID)
	updated.Confidence = c.Confidence
	updated.DistanceFromFront = c.DistanceFromFront
	updated.Selected = c.Selected
	updated.Persists = c.Persists
	d.candidates[c.SnapshotID][c.NodeID] = updated.CloneTo(c.SnapshotID)
	return nil
}

func (tx *domTx) ReplaceEligibility(ctx context.Context, snapshotID string, rows []*domain.CommitEligibility) error {
	d, err := tx.snapshotData(snapshotID)
	if err != nil {
		return err
	}
	d.eligibility[snapshotID] = copyEligibility(rows)
	return nil
}

func (tx *domTx) ListEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error) {
	d, err := tx.snapshotData(snapshotID)
	if err != nil {
		return nil, err
	}
	return copyEligibility(d.eligibility[snapshotID]), nil
}
