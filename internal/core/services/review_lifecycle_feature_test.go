package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
)

var featureErrors = map[string]error{
	"immutable snapshot":   domain.ErrImmutableSnapshot,
	"out of order advance": domain.ErrOutOfOrderAdvance,
	"duplicate stage":      domain.ErrDuplicateStage,
	"invalid dedup":        domain.ErrInvalidDedup,
	"dedup cycle":          domain.ErrDedupCycle,
}

// reviewFeature holds the state of one scenario.
type reviewFeature struct {
	f       *domFixture
	result  *driving.IngestResult
	lastErr error
}

// node looks record up on every level; "post" names the root.
func (s *reviewFeature) node(record string) (string, error) {
	records := s.result.Records
	if record == "post" {
		return records.Post, nil
	}
	for _, level := range []domain.ScopeLevel{domain.ScopeLocation, domain.ScopeSeries, domain.ScopeEvent, domain.ScopeSection} {
		if id, ok := records.Node(domain.ScopeOf(level, record)); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("no node for record %q", record)
}

func (s *reviewFeature) current(ctx context.Context) (string, error) {
	snap, err := s.f.lifecycle.Current(ctx, s.result.Post.ID)
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}

func (s *reviewFeature) aPostWithTwoLocations(ctx context.Context, a, b string) error {
	req := scenarioRequest("doc-feature")
	items := req.RecordSet.Events[0].LocationSeries[0].Items
	items[0].ID, items[1].ID = a, b
	res, err := s.f.ingest.Ingest(ctx, req)
	if err != nil {
		return err
	}
	s.result = res
	return nil
}

func (s *reviewFeature) patchCurrent(ctx context.Context, record string, patch domain.NodeStatePatch) error {
	nodeID, err := s.node(record)
	if err != nil {
		return err
	}
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	_, err = s.f.review.UpdateNodeState(ctx, snap, nodeID, patch)
	return err
}

func (s *reviewFeature) resolvedAndSelected(ctx context.Context, record string) error {
	return s.patchCurrent(ctx, record, domain.NodeStatePatch{Resolved: domain.Bool(true), Selected: domain.Bool(true)})
}

func (s *reviewFeature) deselected(ctx context.Context, record string) error {
	return s.patchCurrent(ctx, record, domain.NodeStatePatch{Selected: domain.Bool(false)})
}

func (s *reviewFeature) selectedInStage(ctx context.Context, record, stageName string) error {
	stage, err := domain.ParseLifecycleStage(stageName)
	if err != nil {
		return err
	}
	snap, err := s.f.lifecycle.GetSnapshot(ctx, s.result.Post.ID, stage)
	if err != nil {
		return err
	}
	nodeID, err := s.node(record)
	if err != nil {
		return err
	}
	_, s.lastErr = s.f.review.UpdateNodeState(ctx, snap.ID, nodeID, domain.NodeStatePatch{Selected: domain.Bool(true)})
	return nil
}

func (s *reviewFeature) advancesTo(ctx context.Context, stageName string) error {
	stage, err := domain.ParseLifecycleStage(stageName)
	if err != nil {
		return err
	}
	_, s.lastErr = s.f.lifecycle.Advance(ctx, s.result.Post.ID, stage)
	return nil
}

func (s *reviewFeature) markedDuplicate(ctx context.Context, record, target string) error {
	nodeID, err := s.node(record)
	if err != nil {
		return err
	}
	targetID, err := s.node(target)
	if err != nil {
		return err
	}
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	_, s.lastErr = s.f.review.MarkDuplicate(ctx, snap, nodeID, targetID)
	return nil
}

func (s *reviewFeature) writeFails(_ context.Context, name string) error {
	want, ok := featureErrors[name]
	if !ok {
		return fmt.Errorf("unknown error %q", name)
	}
	if !errors.Is(s.lastErr, want) {
		return fmt.Errorf("expected %v, got %v", want, s.lastErr)
	}
	return nil
}

func (s *reviewFeature) verdict(ctx context.Context, record string) (*domain.CommitEligibility, error) {
	nodeID, err := s.node(record)
	if err != nil {
		return nil, err
	}
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.f.eligibility.GetEligibility(ctx, snap)
	if err != nil {
		return nil, err
	}
	row, ok := eligibilityByNode(rows)[nodeID]
	if !ok {
		return nil, fmt.Errorf("no eligibility row for %q", record)
	}
	return row, nil
}

func (s *reviewFeature) allEligible(ctx context.Context, records string) error {
	for _, record := range strings.Split(records, ",") {
		record = strings.TrimSpace(record)
		row, err := s.verdict(ctx, record)
		if err != nil {
			return err
		}
		if !row.Eligible {
			return fmt.Errorf("%q is ineligible: %s", record, row.Reason)
		}
	}
	return nil
}

func (s *reviewFeature) ineligibleWith(ctx context.Context, record, reason string) error {
	row, err := s.verdict(ctx, record)
	if err != nil {
		return err
	}
	if row.Eligible || string(row.Reason) != reason {
		return fmt.Errorf("%q: eligible=%t reason=%q, want reason %q", record, row.Eligible, row.Reason, reason)
	}
	return nil
}

func (s *reviewFeature) resolvesTo(ctx context.Context, record, terminal string) error {
	nodeID, err := s.node(record)
	if err != nil {
		return err
	}
	want, err := s.node(terminal)
	if err != nil {
		return err
	}
	snap, err := s.current(ctx)
	if err != nil {
		return err
	}
	got, err := s.f.review.Resolve(ctx, snap, nodeID)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%q resolves to %s, want %s", record, got, want)
	}
	return nil
}

func initializeReviewScenario(ctx *godog.ScenarioContext) {
	s := &reviewFeature{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*s = reviewFeature{f: newDomFixture()}
		return ctx, nil
	})

	ctx.Step(`^a post with one event whose location series holds "([^"]*)" and "([^"]*)"$`, s.aPostWithTwoLocations)
	ctx.Step(`^"([^"]*)" is resolved and selected$`, s.resolvedAndSelected)
	ctx.Step(`^"([^"]*)" is deselected$`, s.deselected)
	ctx.Step(`^"([^"]*)" is selected in the "([^"]*)" snapshot$`, s.selectedInStage)
	ctx.Step(`^the post advances to "([^"]*)"$`, s.advancesTo)
	ctx.Step(`^"([^"]*)" is marked as a duplicate of "([^"]*)"$`, s.markedDuplicate)
	ctx.Step(`^the write fails with "([^"]*)"$`, s.writeFails)
	ctx.Step(`^"([^"]*)" is eligible$`, s.allEligible)
	ctx.Step(`^"([^"]*)" are eligible$`, s.allEligible)
	ctx.Step(`^"([^"]*)" is ineligible with reason "([^"]*)"$`, s.ineligibleWith)
	ctx.Step(`^"([^"]*)" resolves to "([^"]*)"$`, s.resolvesTo)
}

func TestReviewLifecycleFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "review-lifecycle",
		ScenarioInitializer: initializeReviewScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("review lifecycle features failed")
	}
}
