package domain

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// ExtractionRecordSet is the per-document output of the extraction and
// gazetteer resolution stages. It is validated upstream; ingest only checks
// the references between records.
type ExtractionRecordSet struct {
	Sections []SectionRecord     `json:"sections" validate:"dive"`
	Events   []EventRecord       `json:"events" validate:"dive"`
	Contexts []ContextHintRecord `json:"contexts" validate:"dive"`
}

// SectionRecord is a section of the document
type SectionRecord struct {
	ID    string `json:"id" validate:"required"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// EventRecord is a detected event. Events without a section are grouped under
// an implicit section.
type EventRecord struct {
	ID             string                 `json:"id" validate:"required"`
	SectionID      string                 `json:"section_id,omitempty"`
	Label          string                 `json:"label"`
	Text           string                 `json:"text"`
	Order          int                    `json:"order"`
	Actors         []ActorRecord          `json:"actors,omitempty" validate:"dive"`
	LocationSeries []LocationSeriesRecord `json:"location_series,omitempty" validate:"dive"`
}

// ActorRecord is a role candidate of an event
type ActorRecord struct {
	Text     string `json:"text" validate:"required"`
	GroupID  string `json:"group_id,omitempty"`
	Selected *bool  `json:"selected,omitempty"`
}

// LocationSeriesRecord is an ordered list of location items of an event
type LocationSeriesRecord struct {
	ID    string           `json:"id,omitempty"`
	Items []LocationRecord `json:"items" validate:"dive"`
}

// LocationRecord is one location item with its gazetteer candidates
type LocationRecord struct {
	ID                string            `json:"id,omitempty"`
	Text              string            `json:"text" validate:"required"`
	Resolved          bool              `json:"resolved"`
	GazetteerEntityID string            `json:"gazetteer_entity_id,omitempty"`
	Candidates        []CandidateRecord `json:"candidates,omitempty" validate:"dive"`
}

// CandidateRecord is a gazetteer entity proposed for a location item
type CandidateRecord struct {
	GazetteerEntityID string   `json:"gazetteer_entity_id" validate:"required"`
	Lat               float64  `json:"lat" validate:"min=-90,max=90"`
	Lon               float64  `json:"lon" validate:"min=-180,max=180"`
	Name              string   `json:"name" validate:"required"`
	PlaceType         string   `json:"place_type,omitempty"`
	ExternalID        string   `json:"external_id,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	DistanceFromFront *float64 `json:"distance_from_front,omitempty" validate:"omitempty,min=0"`
	Selected          bool     `json:"selected"`
	Persists          *bool    `json:"persists,omitempty"`
}

// ScopeLevel is the record kind a context hint is attached to.
type ScopeLevel string

const (
	ScopePost     ScopeLevel = "POST"
	ScopeSection  ScopeLevel = "SECTION"
	ScopeEvent    ScopeLevel = "EVENT"
	ScopeSeries   ScopeLevel = "SERIES"
	ScopeLocation ScopeLevel = "LOCATION"
)

// RecordScope addresses one record of the set. Record ids are only unique
// within their level; ID is ignored at ScopePost.
type RecordScope struct {
	Level ScopeLevel `json:"level" validate:"required,oneof=POST SECTION EVENT SERIES LOCATION"`
	ID    string     `json:"id,omitempty" validate:"required_unless=Level POST"`
}

// PostScope targets the post itself.
var PostScope = RecordScope{Level: ScopePost}

// ScopeOf returns the scope of record id at level.
func ScopeOf(level ScopeLevel, id string) RecordScope {
	return RecordScope{Level: level, ID: id}
}

func (s RecordScope) String() string {
	if s.Level == ScopePost {
		return string(ScopePost)
	}
	return string(s.Level) + ":" + s.ID
}

// ContextHintRecord is a contextual hint scoped to the post or to one
// section, event, series or location item.
type ContextHintRecord struct {
	Kind  ContextKind `json:"kind" validate:"required,oneof=REGION GROUP DIRECTION"`
	Value string      `json:"value" validate:"required"`
	Scope RecordScope `json:"scope"`
}

// RecordNodes maps upstream record ids to the nodes created for them, one
// map per record kind.
type RecordNodes struct {
	Post      string            `json:"post"`
	Sections  map[string]string `json:"sections"`
	Events    map[string]string `json:"events"`
	Series    map[string]string `json:"series"`
	Locations map[string]string `json:"locations"`
}

func newRecordNodes() RecordNodes {
	return RecordNodes{
		Sections:  make(map[string]string),
		Events:    make(map[string]string),
		Series:    make(map[string]string),
		Locations: make(map[string]string),
	}
}

func (r *RecordNodes) level(l ScopeLevel) map[string]string {
	switch l {
	case ScopeSection:
		return r.Sections
	case ScopeEvent:
		return r.Events
	case ScopeSeries:
		return r.Series
	case ScopeLocation:
		return r.Locations
	}
	return nil
}

// Node returns the node created for the record at scope.
func (r *RecordNodes) Node(scope RecordScope) (string, bool) {
	if scope.Level == ScopePost {
		return r.Post, r.Post != ""
	}
	id, ok := r.level(scope.Level)[scope.ID]
	return id, ok
}

func (r *RecordNodes) clone() RecordNodes {
	out := RecordNodes{Post: r.Post}
	out.Sections = maps.Clone(r.Sections)
	out.Events = maps.Clone(r.Events)
	out.Series = maps.Clone(r.Series)
	out.Locations = maps.Clone(r.Locations)
	return out
}

// IngestPlan is everything ingest writes for one post: the immutable tree
// with provenance and hints, plus the seed rows of the CREATED snapshot.
type IngestPlan struct {
	Post       *DomPost
	Nodes      []*DomNode
	Provenance []*NodeProvenance
	Hints      []*ContextHint
	Tree       *Tree

	records    RecordNodes
	summaries  map[string]string
	resolved   map[string]bool
	actors     map[string][]ActorRecord
	candidates map[string]*LocationCandidate
}

type planBuilder struct {
	plan  *IngestPlan
	order map[string]int
}

func (b *planBuilder) add(typ NodeType, parentID, summary string, prov *NodeProvenance) *DomNode {
	n := &DomNode{
		ID:           GenerateID(),
		PostID:       b.plan.Post.ID,
		Type:         typ,
		ParentID:     parentID,
		SiblingOrder: b.order[parentID],
	}
	b.order[parentID]++
	b.plan.Nodes = append(b.plan.Nodes, n)
	prov.NodeID = n.ID
	b.plan.Provenance = append(b.plan.Provenance, prov)
	b.plan.summaries[n.ID] = summary
	return n
}

// bind records the node of a section, event, series or location record.
// Ids repeat freely across levels but not within one.
func (b *planBuilder) bind(level ScopeLevel, recordID, nodeID string) error {
	if recordID == "" {
		return nil
	}
	ids := b.plan.records.level(level)
	if _, dup := ids[recordID]; dup {
		return fmt.Errorf("%w: duplicate %s record id %q", ErrInvalidTreeShape, strings.ToLower(string(level)), recordID)
	}
	ids[recordID] = nodeID
	return nil
}

// BuildIngestPlan lays out the tree of rs under post. Sections and events are
// ordered by their Order field, then by input position.
func BuildIngestPlan(post *DomPost, rs *ExtractionRecordSet) (*IngestPlan, error) {
	b := &planBuilder{
		plan: &IngestPlan{
			Post:       post,
			records:    newRecordNodes(),
			summaries:  make(map[string]string),
			resolved:   make(map[string]bool),
			actors:     make(map[string][]ActorRecord),
			candidates: make(map[string]*LocationCandidate),
		},
		order: make(map[string]int),
	}

	root := b.add(NodeTypePost, "", "", &NodeProvenance{RecordID: post.DocumentID})
	b.plan.records.Post = root.ID

	sections := append([]SectionRecord(nil), rs.Sections...)
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	events := append([]EventRecord(nil), rs.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Order < events[j].Order })

	grouped := make(map[string][]EventRecord)
	var orphans []EventRecord
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		known[s.ID] = true
	}
	for _, e := range events {
		if e.SectionID == "" {
			orphans = append(orphans, e)
			continue
		}
		if !known[e.SectionID] {
			return nil, fmt.Errorf("%w: event %q references unknown section %q", ErrInvalidTreeShape, e.ID, e.SectionID)
		}
		grouped[e.SectionID] = append(grouped[e.SectionID], e)
	}

	for _, s := range sections {
		sn := b.add(NodeTypeSection, root.ID, s.Text, &NodeProvenance{RecordID: s.ID, SectionIDs: []string{s.ID}})
		if err := b.bind(ScopeSection, s.ID, sn.ID); err != nil {
			return nil, err
		}
		for _, e := range grouped[s.ID] {
			if err := b.addEvent(sn.ID, e); err != nil {
				return nil, err
			}
		}
	}
	if len(orphans) > 0 {
		implicit := b.add(NodeTypeSection, root.ID, "", &NodeProvenance{})
		for _, e := range orphans {
			if err := b.addEvent(implicit.ID, e); err != nil {
				return nil, err
			}
		}
	}

	for _, h := range rs.Contexts {
		nodeID, ok := b.plan.records.Node(h.Scope)
		if !ok {
			return nil, fmt.Errorf("%w: context hint scoped to unknown record %s", ErrInvalidInput, h.Scope)
		}
		if !h.Kind.Valid() {
			return nil, fmt.Errorf("%w: context kind %q", ErrInvalidInput, h.Kind)
		}
		b.plan.Hints = append(b.plan.Hints, &ContextHint{PostID: post.ID, NodeID: nodeID, Kind: h.Kind, Value: h.Value})
	}

	tree, err := NewTree(post, b.plan.Nodes, b.plan.Provenance)
	if err != nil {
		return nil, err
	}
	b.plan.Tree = tree
	return b.plan, nil
}

func (b *planBuilder) addEvent(sectionID string, e EventRecord) error {
	var sectionIDs []string
	if e.SectionID != "" {
		sectionIDs = []string{e.SectionID}
	}
	spatial := false
	for _, ls := range e.LocationSeries {
		if len(ls.Items) > 0 {
			spatial = true
		}
	}
	summary := e.Text
	if summary == "" {
		summary = e.Label
	}

	ev := b.add(NodeTypeEvent, sectionID, summary, &NodeProvenance{
		RecordID:     e.ID,
		EventID:      e.ID,
		SectionIDs:   sectionIDs,
		SpatialClaim: spatial,
	})
	if err := b.bind(ScopeEvent, e.ID, ev.ID); err != nil {
		return err
	}
	b.plan.actors[ev.ID] = e.Actors

	for _, ls := range e.LocationSeries {
		texts := make([]string, len(ls.Items))
		for i, item := range ls.Items {
			texts[i] = item.Text
		}
		series := b.add(NodeTypeLocationSeries, ev.ID, strings.Join(texts, ", "), &NodeProvenance{
			RecordID: ls.ID,
			EventID:  e.ID,
		})
		if err := b.bind(ScopeSeries, ls.ID, series.ID); err != nil {
			return err
		}

		for _, item := range ls.Items {
			loc := b.add(NodeTypeLocation, series.ID, item.Text, &NodeProvenance{
				RecordID:          item.ID,
				EventID:           e.ID,
				GazetteerEntityID: item.GazetteerEntityID,
			})
			if err := b.bind(ScopeLocation, item.ID, loc.ID); err != nil {
				return err
			}
			b.plan.resolved[loc.ID] = item.Resolved

			for _, c := range item.Candidates {
				cn := b.add(NodeTypeLocationCandidate, loc.ID, c.Name, &NodeProvenance{
					EventID:           e.ID,
					GazetteerEntityID: c.GazetteerEntityID,
				})
				persists := true
				if c.Persists != nil {
					persists = *c.Persists
				}
				b.plan.candidates[cn.ID] = &LocationCandidate{
					NodeID:            cn.ID,
					LocationNodeID:    loc.ID,
					GazetteerEntityID: c.GazetteerEntityID,
					Lat:               c.Lat,
					Lon:               c.Lon,
					Name:              c.Name,
					PlaceType:         c.PlaceType,
					ExternalID:        c.ExternalID,
					Confidence:        c.Confidence,
					DistanceFromFront: c.DistanceFromFront,
					Selected:          c.Selected,
					Persists:          persists,
				}
			}
		}
	}
	return nil
}

// NodeForRecord returns the node created for the record at scope.
func (p *IngestPlan) NodeForRecord(scope RecordScope) (string, bool) {
	return p.records.Node(scope)
}

// RecordNodes returns a copy of the record to node mapping.
func (p *IngestPlan) RecordNodes() RecordNodes {
	return p.records.clone()
}

// InitialOverlay returns the seed rows of the post's first snapshot.
func (p *IngestPlan) InitialOverlay(snapshotID string) *Overlay {
	o := &Overlay{}
	for _, n := range p.Tree.Nodes() {
		s := NewNodeState(snapshotID, n, p.summaries[n.ID])
		switch n.Type {
		case NodeTypeLocation:
			s.Resolved = Bool(p.resolved[n.ID])
		case NodeTypeLocationCandidate:
			c := p.candidates[n.ID].CloneTo(snapshotID)
			s.Selected = c.Selected
			o.Candidates = append(o.Candidates, c)
		case NodeTypeEvent:
			seen := make(map[string]bool)
			for _, a := range p.actors[n.ID] {
				if seen[a.Text] {
					continue
				}
				seen[a.Text] = true
				selected := true
				if a.Selected != nil {
					selected = *a.Selected
				}
				o.Actors = append(o.Actors, &Actor{
					SnapshotID:  snapshotID,
					EventNodeID: n.ID,
					Text:        a.Text,
					GroupID:     a.GroupID,
					Selected:    selected,
				})
			}
		}
		o.States = append(o.States, s)
	}
	o.Contexts = DeriveContexts(snapshotID, p.Tree, p.Hints)
	return o
}
