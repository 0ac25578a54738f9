package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLifecycleStageOrder(t *testing.T) {
	stages := AllStages()
	for i := 1; i < len(stages); i++ {
		if stages[i-1] >= stages[i] {
			t.Errorf("expected %s < %s", stages[i-1], stages[i])
		}
		next, ok := stages[i-1].Next()
		if !ok || next != stages[i] {
			t.Errorf("expected %s.Next() = %s, got %s (ok=%v)", stages[i-1], stages[i], next, ok)
		}
	}

	if _, ok := StageAudit.Next(); ok {
		t.Error("AUDIT should have no next stage")
	}
	if !StageAudit.IsTerminal() {
		t.Error("AUDIT should be terminal")
	}
	if StageFinalReview.IsTerminal() {
		t.Error("FINAL_REVIEW should not be terminal")
	}
}

func TestParseLifecycleStage(t *testing.T) {
	tests := []struct {
		in      string
		want    LifecycleStage
		wantErr bool
	}{
		{"CREATED", StageCreated, false},
		{"initial_review", StageInitialReview, false},
		{" PROCESSED ", StageProcessed, false},
		{"4", StageFinalReview, false},
		{"5", StageAudit, false},
		{"6", 0, true},
		{"0", 0, true},
		{"3x", 0, true},
		{"DONE", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLifecycleStage(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLifecycleStageJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Stage LifecycleStage `json:"stage"`
	}{StageFinalReview})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"stage":"FINAL_REVIEW"}` {
		t.Errorf("unexpected json %s", data)
	}

	var out struct {
		Stage LifecycleStage `json:"stage"`
	}
	if err := json.Unmarshal([]byte(`{"stage":"audit"}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Stage != StageAudit {
		t.Errorf("expected AUDIT, got %s", out.Stage)
	}
}
