package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driven"
)

var _ driven.DomStore = (*DomStore)(nil)

// insertChunk bounds the rows of one multi-row INSERT
const insertChunk = 500

// DomStore implements driven.DomStore using PostgreSQL. Structural and
// snapshot immutability are also enforced by triggers in schema.sql.
type DomStore struct {
	db *DB
}

// NewDomStore creates a new PostgreSQL-backed DomStore
func NewDomStore(db *DB) *DomStore {
	return &DomStore{db: db}
}

// Transaction runs fn inside one database transaction
func (s *DomStore) Transaction(ctx context.Context, fn func(tx driven.DomTx) error) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&domTx{tx: tx})
	})
}

// Ping checks if the database is reachable
func (s *DomStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type domTx struct {
	tx *sql.Tx
}

func (t *domTx) exec(ctx context.Context, b sq.Sqlizer, what string) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", what, err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, what)
	}
	return res, nil
}

func (t *domTx) query(ctx context.Context, b sq.Sqlizer, what string) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", what, err)
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, what)
	}
	return rows, nil
}

func (t *domTx) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return t.tx.QueryRowContext(ctx, query, args...), nil
}

// insertRows runs ins once per chunk of n rows, with add appending row i.
func (t *domTx) insertRows(ctx context.Context, n int, what string, ins func() sq.InsertBuilder, add func(b sq.InsertBuilder, i int) sq.InsertBuilder) error {
	for start := 0; start < n; start += insertChunk {
		end := min(start+insertChunk, n)
		b := ins()
		for i := start; i < end; i++ {
			b = add(b, i)
		}
		if _, err := t.exec(ctx, b, what); err != nil {
			return err
		}
	}
	return nil
}

// ===== Posts =====

var postColumns = []string{"id", "document_id", "extraction_run_id", "created_at"}

func scanPost(row interface{ Scan(...any) error }) (*domain.DomPost, error) {
	var p domain.DomPost
	if err := row.Scan(&p.ID, &p.DocumentID, &p.ExtractionRunID, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *domTx) CreatePost(ctx context.Context, post *domain.DomPost) error {
	_, err := t.exec(ctx, psql.Insert("dom_posts").
		Columns(postColumns...).
		Values(post.ID, post.DocumentID, post.ExtractionRunID, post.CreatedAt),
		"create post "+post.ID)
	return err
}

func (t *domTx) getPost(ctx context.Context, where sq.Eq, what string) (*domain.DomPost, error) {
	row, err := t.queryRow(ctx, psql.Select(postColumns...).From("dom_posts").Where(where))
	if err != nil {
		return nil, err
	}
	post, err := scanPost(row)
	if err != nil {
		return nil, mapErr(err, what)
	}
	return post, nil
}

func (t *domTx) GetPost(ctx context.Context, id string) (*domain.DomPost, error) {
	return t.getPost(ctx, sq.Eq{"id": id}, "post "+id)
}

func (t *domTx) GetPostByKey(ctx context.Context, key domain.DocumentKey) (*domain.DomPost, error) {
	return t.getPost(ctx, sq.Eq{
		"document_id":       key.DocumentID,
		"extraction_run_id": key.ExtractionRunID,
	}, "post "+key.DocumentID+"/"+key.ExtractionRunID)
}

func (t *domTx) ListPosts(ctx context.Context, limit, offset int) ([]*domain.DomPost, error) {
	b := psql.Select(postColumns...).From("dom_posts").
		OrderBy("created_at DESC", "id").
		Offset(uint64(max(offset, 0)))
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	rows, err := t.query(ctx, b, "list posts")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*domain.DomPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (t *domTx) DeletePost(ctx context.Context, id string) error {
	res, err := t.exec(ctx, psql.Delete("dom_posts").Where(sq.Eq{"id": id}), "delete post "+id)
	if err != nil {
		return err
	}
	return requireRow(res, "post "+id)
}

func (t *domTx) LockPost(ctx context.Context, id string) error {
	row, err := t.queryRow(ctx, psql.Select("id").From("dom_posts").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
	if err != nil {
		return err
	}
	var locked string
	return mapErr(row.Scan(&locked), "post "+id)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

// ===== Tree =====

func (t *domTx) InsertTree(ctx context.Context, nodes []*domain.DomNode, provenance []*domain.NodeProvenance, hints []*domain.ContextHint) error {
	if len(nodes) == 0 {
		return nil
	}
	postID := nodes[0].PostID

	row, err := t.queryRow(ctx, psql.Select("COUNT(*)").From("dom_nodes").Where(sq.Eq{"post_id": postID}))
	if err != nil {
		return err
	}
	var existing int
	if err := row.Scan(&existing); err != nil {
		return mapErr(err, "count nodes")
	}
	if existing > 0 {
		return domain.ErrStructuralImmutability
	}
	for _, n := range nodes {
		if n.PostID != postID {
			return fmt.Errorf("%w: node %s spans posts", domain.ErrInvalidTreeShape, n.ID)
		}
	}

	err = t.insertRows(ctx, len(nodes), "insert nodes",
		func() sq.InsertBuilder {
			return psql.Insert("dom_nodes").Columns("id", "post_id", "type", "parent_id", "sibling_order")
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder {
			n := nodes[i]
			var parent sql.NullString
			if !n.IsRoot() {
				parent = sql.NullString{String: n.ParentID, Valid: true}
			}
			return b.Values(n.ID, n.PostID, string(n.Type), parent, n.SiblingOrder)
		})
	if err != nil {
		return err
	}

	err = t.insertRows(ctx, len(provenance), "insert provenance",
		func() sq.InsertBuilder {
			return psql.Insert("dom_node_provenance").Columns("node_id", "post_id", "record_id",
				"event_id", "section_ids", "gazetteer_entity_id", "spatial_claim")
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder {
			p := provenance[i]
			return b.Values(p.NodeID, postID, p.RecordID, p.EventID, pq.Array(p.SectionIDs),
				p.GazetteerEntityID, p.SpatialClaim)
		})
	if err != nil {
		return err
	}

	return t.insertRows(ctx, len(hints), "insert context hints",
		func() sq.InsertBuilder {
			return psql.Insert("dom_context_hints").Columns("post_id", "node_id", "kind", "value")
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder {
			h := hints[i]
			return b.Values(h.PostID, h.NodeID, string(h.Kind), h.Value)
		})
}

func (t *domTx) GetNode(ctx context.Context, id string) (*domain.DomNode, error) {
	row, err := t.queryRow(ctx, psql.Select("id", "post_id", "type", "parent_id", "sibling_order").
		From("dom_nodes").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	var n domain.DomNode
	var parent sql.NullString
	if err := row.Scan(&n.ID, &n.PostID, &n.Type, &parent, &n.SiblingOrder); err != nil {
		return nil, mapErr(err, "node "+id)
	}
	n.ParentID = parent.String
	return &n, nil
}

func (t *domTx) ListNodes(ctx context.Context, postID string) ([]*domain.DomNode, error) {
	rows, err := t.query(ctx, psql.Select("id", "post_id", "type", "parent_id", "sibling_order").
		From("dom_nodes").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("parent_id NULLS FIRST", "sibling_order", "id"),
		"list nodes")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*domain.DomNode
	for rows.Next() {
		var n domain.DomNode
		var parent sql.NullString
		if err := rows.Scan(&n.ID, &n.PostID, &n.Type, &parent, &n.SiblingOrder); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ParentID = parent.String
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}

func (t *domTx) ListProvenance(ctx context.Context, postID string) ([]*domain.NodeProvenance, error) {
	rows, err := t.query(ctx, psql.Select("node_id", "record_id", "event_id", "section_ids",
		"gazetteer_entity_id", "spatial_claim").
		From("dom_node_provenance").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("node_id"),
		"list provenance")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.NodeProvenance
	for rows.Next() {
		var p domain.NodeProvenance
		if err := rows.Scan(&p.NodeID, &p.RecordID, &p.EventID, pq.Array(&p.SectionIDs),
			&p.GazetteerEntityID, &p.SpatialClaim); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (t *domTx) ListContextHints(ctx context.Context, postID string) ([]*domain.ContextHint, error) {
	rows, err := t.query(ctx, psql.Select("post_id", "node_id", "kind", "value").
		From("dom_context_hints").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("id"),
		"list context hints")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ContextHint
	for rows.Next() {
		var h domain.ContextHint
		if err := rows.Scan(&h.PostID, &h.NodeID, &h.Kind, &h.Value); err != nil {
			return nil, fmt.Errorf("scan context hint: %w", err)
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// ===== Snapshots =====

var snapshotColumns = []string{"id", "post_id", "stage", "created_at"}

func scanSnapshot(row interface{ Scan(...any) error }) (*domain.DomSnapshot, error) {
	var s domain.DomSnapshot
	if err := row.Scan(&s.ID, &s.PostID, &s.Stage, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (t *domTx) InsertSnapshot(ctx context.Context, snapshot *domain.DomSnapshot) error {
	_, err := t.exec(ctx, psql.Insert("dom_snapshots").
		Columns(snapshotColumns...).
		Values(snapshot.ID, snapshot.PostID, int(snapshot.Stage), snapshot.CreatedAt),
		"insert snapshot "+snapshot.ID)
	return err
}

func (t *domTx) GetSnapshot(ctx context.Context, id string) (*domain.DomSnapshot, error) {
	row, err := t.queryRow(ctx, psql.Select(snapshotColumns...).From("dom_snapshots").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	s, err := scanSnapshot(row)
	if err != nil {
		return nil, mapErr(err, "snapshot "+id)
	}
	return s, nil
}

func (t *domTx) ListSnapshots(ctx context.Context, postID string) ([]*domain.DomSnapshot, error) {
	if _, err := t.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	rows, err := t.query(ctx, psql.Select(snapshotColumns...).
		From("dom_snapshots").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("stage"),
		"list snapshots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.DomSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ===== Overlay =====

var (
	stateColumns = []string{"snapshot_id", "node_id", "selected", "summary", "resolved",
		"resolution_source", "deduped", "dedup_target", "updated_at"}
	contextColumns   = []string{"snapshot_id", "node_id", "kind", "value", "overridden"}
	actorColumns     = []string{"snapshot_id", "event_node_id", "text", "group_id", "selected"}
	candidateColumns = []string{"snapshot_id", "node_id", "location_node_id", "gazetteer_entity_id",
		"lat", "lon", "name", "place_type", "external_id", "confidence", "distance_from_front",
		"selected", "persists"}
)

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stateValues(s *domain.NodeState) []any {
	return []any{s.SnapshotID, s.NodeID, s.Selected, s.Summary, nullBool(s.Resolved),
		string(s.ResolutionSource), s.Deduped, NullString(s.DedupTarget), s.UpdatedAt}
}

func candidateValues(c *domain.LocationCandidate) []any {
	return []any{c.SnapshotID, c.NodeID, c.LocationNodeID, c.GazetteerEntityID,
		c.Lat, c.Lon, c.Name, c.PlaceType, c.ExternalID, nullFloat(c.Confidence),
		nullFloat(c.DistanceFromFront), c.Selected, c.Persists}
}

func scanState(row interface{ Scan(...any) error }) (*domain.NodeState, error) {
	var s domain.NodeState
	var resolved sql.NullBool
	var target sql.NullString
	if err := row.Scan(&s.SnapshotID, &s.NodeID, &s.Selected, &s.Summary, &resolved,
		&s.ResolutionSource, &s.Deduped, &target, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if resolved.Valid {
		s.Resolved = domain.Bool(resolved.Bool)
	}
	s.DedupTarget = StringPtr(target)
	return &s, nil
}

func scanCandidate(row interface{ Scan(...any) error }) (*domain.LocationCandidate, error) {
	var c domain.LocationCandidate
	var confidence, distance sql.NullFloat64
	if err := row.Scan(&c.SnapshotID, &c.NodeID, &c.LocationNodeID, &c.GazetteerEntityID,
		&c.Lat, &c.Lon, &c.Name, &c.PlaceType, &c.ExternalID, &confidence, &distance,
		&c.Selected, &c.Persists); err != nil {
		return nil, err
	}
	if confidence.Valid {
		c.Confidence = domain.Float(confidence.Float64)
	}
	if distance.Valid {
		c.DistanceFromFront = domain.Float(distance.Float64)
	}
	return &c, nil
}

func (t *domTx) InsertOverlay(ctx context.Context, o *domain.Overlay) error {
	err := t.insertRows(ctx, len(o.States), "insert node states",
		func() sq.InsertBuilder { return psql.Insert("dom_node_states").Columns(stateColumns...) },
		func(b sq.InsertBuilder, i int) sq.InsertBuilder { return b.Values(stateValues(o.States[i])...) })
	if err != nil {
		return err
	}
	if err := t.UpsertContexts(ctx, o.Contexts); err != nil {
		return err
	}
	for _, a := range o.Actors {
		if err := t.UpsertActor(ctx, a); err != nil {
			return err
		}
	}
	candidates := lastByKey(o.Candidates, func(c *domain.LocationCandidate) string {
		return c.SnapshotID + "\x00" + c.NodeID
	})
	return t.insertRows(ctx, len(candidates), "insert location candidates",
		func() sq.InsertBuilder {
			return psql.Insert("dom_location_candidates").Columns(candidateColumns...).
				Suffix(`ON CONFLICT (snapshot_id, node_id) DO UPDATE SET
					confidence = EXCLUDED.confidence,
					distance_from_front = EXCLUDED.distance_from_front,
					selected = EXCLUDED.selected,
					persists = EXCLUDED.persists`)
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder { return b.Values(candidateValues(candidates[i])...) })
}

// CloneOverlay copies rows server side with INSERT ... SELECT.
func (t *domTx) CloneOverlay(ctx context.Context, fromSnapshotID, toSnapshotID string) error {
	if _, err := t.GetSnapshot(ctx, fromSnapshotID); err != nil {
		return err
	}
	tables := []struct {
		name    string
		columns []string
	}{
		{"dom_node_states", stateColumns},
		{"dom_node_contexts", contextColumns},
		{"dom_actors", actorColumns},
		{"dom_location_candidates", candidateColumns},
	}
	for _, tbl := range tables {
		sel := sq.Select().Column(sq.Expr("CAST(? AS VARCHAR)", toSnapshotID)).
			Columns(tbl.columns[1:]...).
			From(tbl.name).
			Where(sq.Eq{"snapshot_id": fromSnapshotID})
		ins := psql.Insert(tbl.name).Columns(tbl.columns...).Select(sel)
		if _, err := t.exec(ctx, ins, "clone "+tbl.name); err != nil {
			return err
		}
	}
	return nil
}

func (t *domTx) GetOverlay(ctx context.Context, snapshotID string) (*domain.Overlay, error) {
	if _, err := t.GetSnapshot(ctx, snapshotID); err != nil {
		return nil, err
	}
	o := &domain.Overlay{}
	bySnapshot := sq.Eq{"snapshot_id": snapshotID}

	rows, err := t.query(ctx, psql.Select(stateColumns...).From("dom_node_states").
		Where(bySnapshot).OrderBy("node_id"), "list node states")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node state: %w", err)
		}
		o.States = append(o.States, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = t.query(ctx, psql.Select(contextColumns...).From("dom_node_contexts").
		Where(bySnapshot).OrderBy("node_id", "kind"), "list node contexts")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c domain.NodeContext
		if err := rows.Scan(&c.SnapshotID, &c.NodeID, &c.Kind, &c.Value, &c.Overridden); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan node context: %w", err)
		}
		o.Contexts = append(o.Contexts, &c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = t.query(ctx, psql.Select(actorColumns...).From("dom_actors").
		Where(bySnapshot).OrderBy("event_node_id", "text"), "list actors")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.SnapshotID, &a.EventNodeID, &a.Text, &a.GroupID, &a.Selected); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		o.Actors = append(o.Actors, &a)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = t.query(ctx, psql.Select(candidateColumns...).From("dom_location_candidates").
		Where(bySnapshot).OrderBy("node_id"), "list location candidates")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan location candidate: %w", err)
		}
		o.Candidates = append(o.Candidates, c)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	o.Eligibility, err = t.listEligibility(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

func (t *domTx) GetNodeState(ctx context.Context, snapshotID, nodeID string) (*domain.NodeState, error) {
	row, err := t.queryRow(ctx, psql.Select(stateColumns...).From("dom_node_states").
		Where(sq.Eq{"snapshot_id": snapshotID, "node_id": nodeID}))
	if err != nil {
		return nil, err
	}
	s, err := scanState(row)
	if err != nil {
		return nil, mapErr(err, "state "+snapshotID+"/"+nodeID)
	}
	return s, nil
}

func (t *domTx) UpdateNodeState(ctx context.Context, state *domain.NodeState) error {
	what := "state " + state.SnapshotID + "/" + state.NodeID
	res, err := t.exec(ctx, psql.Update("dom_node_states").
		Set("selected", state.Selected).
		Set("summary", state.Summary).
		Set("resolved", nullBool(state.Resolved)).
		Set("resolution_source", string(state.ResolutionSource)).
		Set("deduped", state.Deduped).
		Set("dedup_target", NullString(state.DedupTarget)).
		Set("updated_at", state.UpdatedAt).
		Where(sq.Eq{"snapshot_id": state.SnapshotID, "node_id": state.NodeID}),
		what)
	if err != nil {
		return err
	}
	return requireRow(res, what)
}

// lastByKey drops all but the last row per key. One INSERT ... ON CONFLICT
// statement may not touch the same row twice.
func lastByKey[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := key(r)
		if i, ok := seen[k]; ok {
			out[i] = r
			continue
		}
		seen[k] = len(out)
		out = append(out, r)
	}
	return out
}

func (t *domTx) UpsertContexts(ctx context.Context, contexts []*domain.NodeContext) error {
	rows := lastByKey(contexts, func(c *domain.NodeContext) string {
		return c.SnapshotID + "\x00" + c.NodeID + "\x00" + string(c.Kind)
	})
	return t.insertRows(ctx, len(rows), "upsert node contexts",
		func() sq.InsertBuilder {
			return psql.Insert("dom_node_contexts").Columns(contextColumns...).
				Suffix("ON CONFLICT (snapshot_id, node_id, kind) DO UPDATE SET value = EXCLUDED.value, overridden = EXCLUDED.overridden")
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder {
			c := rows[i]
			return b.Values(c.SnapshotID, c.NodeID, string(c.Kind), c.Value, c.Overridden)
		})
}

func (t *domTx) UpsertActor(ctx context.Context, a *domain.Actor) error {
	_, err := t.exec(ctx, psql.Insert("dom_actors").Columns(actorColumns...).
		Values(a.SnapshotID, a.EventNodeID, a.Text, a.GroupID, a.Selected).
		Suffix("ON CONFLICT (snapshot_id, event_node_id, text) DO UPDATE SET group_id = EXCLUDED.group_id, selected = EXCLUDED.selected"),
		"upsert actor "+a.SnapshotID+"/"+a.EventNodeID)
	return err
}

func (t *domTx) GetLocationCandidate(ctx context.Context, snapshotID, nodeID string) (*domain.LocationCandidate, error) {
	row, err := t.queryRow(ctx, psql.Select(candidateColumns...).From("dom_location_candidates").
		Where(sq.Eq{"snapshot_id": snapshotID, "node_id": nodeID}))
	if err != nil {
		return nil, err
	}
	c, err := scanCandidate(row)
	if err != nil {
		return nil, mapErr(err, "candidate "+snapshotID+"/"+nodeID)
	}
	return c, nil
}

// UpdateLocationCandidate writes only the review fields; the gazetteer
// fields stay as ingested.
func (t *domTx) UpdateLocationCandidate(ctx context.Context, c *domain.LocationCandidate) error {
	what := "candidate " + c.SnapshotID + "/" + c.NodeID
	res, err := t.exec(ctx, psql.Update("dom_location_candidates").
		Set("confidence", nullFloat(c.Confidence)).
		Set("distance_from_front", nullFloat(c.DistanceFromFront)).
		Set("selected", c.Selected).
		Set("persists", c.Persists).
		Where(sq.Eq{"snapshot_id": c.SnapshotID, "node_id": c.NodeID}),
		what)
	if err != nil {
		return err
	}
	return requireRow(res, what)
}

// ===== Eligibility =====

func (t *domTx) ReplaceEligibility(ctx context.Context, snapshotID string, rows []*domain.CommitEligibility) error {
	if _, err := t.GetSnapshot(ctx, snapshotID); err != nil {
		return err
	}
	if _, err := t.exec(ctx, psql.Delete("dom_commit_eligibility").Where(sq.Eq{"snapshot_id": snapshotID}),
		"clear eligibility"); err != nil {
		return err
	}
	return t.insertRows(ctx, len(rows), "insert eligibility",
		func() sq.InsertBuilder {
			return psql.Insert("dom_commit_eligibility").
				Columns("snapshot_id", "node_id", "ordinal", "eligible", "reason")
		},
		func(b sq.InsertBuilder, i int) sq.InsertBuilder {
			e := rows[i]
			return b.Values(snapshotID, e.NodeID, i, e.Eligible, string(e.Reason))
		})
}

func (t *domTx) ListEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error) {
	if _, err := t.GetSnapshot(ctx, snapshotID); err != nil {
		return nil, err
	}
	return t.listEligibility(ctx, snapshotID)
}

func (t *domTx) listEligibility(ctx context.Context, snapshotID string) ([]*domain.CommitEligibility, error) {
	rows, err := t.query(ctx, psql.Select("snapshot_id", "node_id", "eligible", "reason").
		From("dom_commit_eligibility").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		OrderBy("ordinal"),
		"list eligibility")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.CommitEligibility{}
	for rows.Next() {
		var e domain.CommitEligibility
		if err := rows.Scan(&e.SnapshotID, &e.NodeID, &e.Eligible, &e.Reason); err != nil {
			return nil, fmt.Errorf("scan eligibility: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
