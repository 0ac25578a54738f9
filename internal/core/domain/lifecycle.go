package domain

import (
	"fmt"
	"strings"
)

// LifecycleStage is a step of the analyst review lifecycle. Stages are
// totally ordered and a post only ever moves forward one step at a time.
type LifecycleStage int

const (
	StageCreated LifecycleStage = iota + 1
	StageInitialReview
	StageProcessed
	StageFinalReview
	StageAudit
)

var stageNames = map[LifecycleStage]string{
	StageCreated:       "CREATED",
	StageInitialReview: "INITIAL_REVIEW",
	StageProcessed:     "PROCESSED",
	StageFinalReview:   "FINAL_REVIEW",
	StageAudit:         "AUDIT",
}

// AllStages returns every stage in lifecycle order.
func AllStages() []LifecycleStage {
	return []LifecycleStage{StageCreated, StageInitialReview, StageProcessed, StageFinalReview, StageAudit}
}

// Valid reports whether s is a known stage.
func (s LifecycleStage) Valid() bool {
	return s >= StageCreated && s <= StageAudit
}

func (s LifecycleStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STAGE(%d)", int(s))
}

// Next returns the stage directly after s. ok is false for AUDIT.
func (s LifecycleStage) Next() (next LifecycleStage, ok bool) {
	if !s.Valid() || s == StageAudit {
		return 0, false
	}
	return s + 1, true
}

// IsTerminal reports whether no stage follows s.
func (s LifecycleStage) IsTerminal() bool {
	return s == StageAudit
}

// ParseLifecycleStage accepts the stage name (case-insensitive) or its ordinal.
func ParseLifecycleStage(v string) (LifecycleStage, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for s, name := range stageNames {
		if name == v {
			return s, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil && LifecycleStage(n).Valid() && fmt.Sprint(n) == v {
		return LifecycleStage(n), nil
	}
	return 0, fmt.Errorf("%w: unknown lifecycle stage %q", ErrInvalidInput, v)
}

func (s LifecycleStage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: lifecycle stage %d", ErrInvalidInput, int(s))
	}
	return []byte(s.String()), nil
}

func (s *LifecycleStage) UnmarshalText(text []byte) error {
	parsed, err := ParseLifecycleStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
