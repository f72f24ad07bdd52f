package interfaces

import (
	"context"
	"time"

	"github.com/PREDICTif/medview/internal/models"
)

// AuditEvent is the de-identified record of one pipeline run.
//
// It deliberately carries no question or answer text: only the hashed patient
// identifier, category flags, the relevance score, and stage durations cross
// this boundary.
type AuditEvent struct {
	RequestID               string
	PatientHash             string // sha256 of the caller-supplied patient identifier
	EmergencyDetected       bool
	WebSearchUsed           bool
	MedicationWarningsCount int
	RelevanceScore          float64
	RelevanceDegraded       bool
	StageDurations          map[models.Stage]time.Duration
	OccurredAt              time.Time
}

// AuditRecorder consumes the pipeline's decision trace. The default
// implementation persists events locally; alternate implementations may ship
// them to an external sink.
type AuditRecorder interface {
	// Record stores one audit event. Failures are logged by implementations
	// and never fail the originating request.
	Record(ctx context.Context, event AuditEvent) error
}
