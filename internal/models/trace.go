package models

import "time"

// Stage identifies a pipeline stage in the decision trace
type Stage string

const (
	StageEmergencyCheck  Stage = "emergency_check"
	StageRetrieve        Stage = "retrieve"
	StageEvaluate        Stage = "evaluate"
	StageWebSearch       Stage = "web_search"
	StageMedicationCheck Stage = "medication_check"
	StageSynthesize      Stage = "synthesize"
)

// StageOutcome records how an executed stage ended
type StageOutcome string

const (
	// OutcomeSuccess means the stage completed and its result was used
	OutcomeSuccess StageOutcome = "success"

	// OutcomeFailed means the stage errored; fatal or non-fatal depends on the stage
	OutcomeFailed StageOutcome = "failed"

	// OutcomeDegraded means a fail-safe default was substituted for the stage result
	OutcomeDegraded StageOutcome = "degraded"

	// OutcomeCancelled means the stage was abandoned and its result discarded
	OutcomeCancelled StageOutcome = "cancelled"
)

// StageEntry is one entry in the pipeline trace. StartedAt is recorded on
// stage entry and EndedAt with the outcome on stage exit.
type StageEntry struct {
	Stage     Stage        `json:"stage"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Outcome   StageOutcome `json:"outcome"`
	Detail    string       `json:"detail,omitempty"`
}

// Duration returns the elapsed time of the stage
func (e StageEntry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// PipelineTrace is the append-only ordered log of executed stages for one
// request. It is the authoritative record for audit and for tests: exactly one
// entry per stage actually executed; skipped stages are absent.
type PipelineTrace struct {
	RequestID string       `json:"request_id"`
	Entries   []StageEntry `json:"entries"`
}

// NewPipelineTrace creates an empty trace for the given request
func NewPipelineTrace(requestID string) *PipelineTrace {
	return &PipelineTrace{RequestID: requestID}
}

// Begin appends an entry for a stage that is starting and returns its index.
// The entry is completed later via End.
func (t *PipelineTrace) Begin(stage Stage) int {
	t.Entries = append(t.Entries, StageEntry{
		Stage:     stage,
		StartedAt: time.Now(),
	})
	return len(t.Entries) - 1
}

// End completes a previously begun entry with its outcome
func (t *PipelineTrace) End(index int, outcome StageOutcome, detail string) {
	if index < 0 || index >= len(t.Entries) {
		return
	}
	t.Entries[index].EndedAt = time.Now()
	t.Entries[index].Outcome = outcome
	t.Entries[index].Detail = detail
}

// Find returns the first entry for the given stage, or nil if the stage
// never executed.
func (t *PipelineTrace) Find(stage Stage) *StageEntry {
	for i := range t.Entries {
		if t.Entries[i].Stage == stage {
			return &t.Entries[i]
		}
	}
	return nil
}

// StageDurations returns the elapsed time per executed stage, keyed by stage
// name. Used by the audit recorder; carries no question or answer text.
func (t *PipelineTrace) StageDurations() map[Stage]time.Duration {
	durations := make(map[Stage]time.Duration, len(t.Entries))
	for _, e := range t.Entries {
		durations[e.Stage] = e.Duration()
	}
	return durations
}
