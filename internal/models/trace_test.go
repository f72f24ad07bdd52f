package models

import (
	"testing"
)

func TestPipelineTraceBeginEnd(t *testing.T) {
	trace := NewPipelineTrace("req_test")

	idx := trace.Begin(StageRetrieve)
	trace.End(idx, OutcomeSuccess, "3 passages")

	if len(trace.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(trace.Entries))
	}
	entry := trace.Entries[0]
	if entry.Stage != StageRetrieve || entry.Outcome != OutcomeSuccess {
		t.Errorf("entry = %+v", entry)
	}
	if entry.StartedAt.IsZero() || entry.EndedAt.IsZero() {
		t.Error("entry timestamps not set")
	}
	if entry.EndedAt.Before(entry.StartedAt) {
		t.Error("EndedAt before StartedAt")
	}
}

func TestPipelineTraceFind(t *testing.T) {
	trace := NewPipelineTrace("req_test")
	idx := trace.Begin(StageEmergencyCheck)
	trace.End(idx, OutcomeSuccess, "")

	if trace.Find(StageEmergencyCheck) == nil {
		t.Error("executed stage not found")
	}
	if trace.Find(StageWebSearch) != nil {
		t.Error("skipped stage must be absent")
	}
}

func TestPipelineTraceEndOutOfRange(t *testing.T) {
	trace := NewPipelineTrace("req_test")
	trace.End(5, OutcomeSuccess, "")
	trace.End(-1, OutcomeSuccess, "")

	if len(trace.Entries) != 0 {
		t.Errorf("out-of-range End mutated the trace: %+v", trace.Entries)
	}
}

func TestStageDurations(t *testing.T) {
	trace := NewPipelineTrace("req_test")
	for _, stage := range []Stage{StageEmergencyCheck, StageRetrieve, StageEvaluate} {
		idx := trace.Begin(stage)
		trace.End(idx, OutcomeSuccess, "")
	}

	durations := trace.StageDurations()
	if len(durations) != 3 {
		t.Fatalf("durations = %d entries, want 3", len(durations))
	}
	for stage, d := range durations {
		if d < 0 {
			t.Errorf("stage %s has negative duration", stage)
		}
	}
}

func TestSortPassagesByScoreStable(t *testing.T) {
	passages := []Passage{
		{ID: "a", Score: 0.5},
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.5},
		{ID: "d", Score: 0.7},
	}

	SortPassagesByScore(passages)

	wantOrder := []string{"b", "d", "a", "c"}
	for i, want := range wantOrder {
		if passages[i].ID != want {
			t.Fatalf("order = %v, want %v", ids(passages), wantOrder)
		}
	}
}

func ids(passages []Passage) []string {
	out := make([]string, 0, len(passages))
	for _, p := range passages {
		out = append(out, p.ID)
	}
	return out
}

func TestEmergencySignalValidate(t *testing.T) {
	valid := EmergencySignal{Triggered: true, Categories: []EmergencyCategory{CategoryCardiac}}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid signal rejected: %v", err)
	}

	invalid := EmergencySignal{Triggered: true}
	if err := invalid.Validate(); err == nil {
		t.Error("triggered signal without categories must be invalid")
	}

	untriggered := EmergencySignal{}
	if err := untriggered.Validate(); err != nil {
		t.Errorf("untriggered empty signal rejected: %v", err)
	}
}
