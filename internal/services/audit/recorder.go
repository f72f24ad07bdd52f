// Package audit persists de-identified records of pipeline runs.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/storage/badger"
)

// Record is the stored form of one audit event. It carries no question or
// answer text.
type Record struct {
	ID                      string `badgerhold:"key"`
	RequestID               string
	PatientHash             string
	EmergencyDetected       bool
	WebSearchUsed           bool
	MedicationWarningsCount int
	RelevanceScore          float64
	RelevanceDegraded       bool
	StageDurations          map[models.Stage]time.Duration
	OccurredAt              time.Time `badgerholdIndex:"OccurredAt"`
}

// Recorder implements AuditRecorder over the embedded Badger store, with a
// cron job that prunes records past the retention window.
type Recorder struct {
	db            *badger.BadgerDB
	retentionDays int
	cron          *cron.Cron
	logger        arbor.ILogger
}

// NewRecorder creates an audit recorder. Call StartPruning to activate the
// scheduled retention pruning and Stop on shutdown.
func NewRecorder(db *badger.BadgerDB, retentionDays int, logger arbor.ILogger) *Recorder {
	return &Recorder{
		db:            db,
		retentionDays: retentionDays,
		cron:          cron.New(),
		logger:        logger,
	}
}

// HashPatientID derives the stored patient hash from a caller-supplied
// identifier. Only this hash ever reaches the store.
func HashPatientID(patientID string) string {
	if patientID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(patientID))
	return hex.EncodeToString(sum[:])
}

// Record stores one audit event
func (r *Recorder) Record(ctx context.Context, event interfaces.AuditEvent) error {
	record := Record{
		ID:                      common.NewAuditRecordID(),
		RequestID:               event.RequestID,
		PatientHash:             event.PatientHash,
		EmergencyDetected:       event.EmergencyDetected,
		WebSearchUsed:           event.WebSearchUsed,
		MedicationWarningsCount: event.MedicationWarningsCount,
		RelevanceScore:          event.RelevanceScore,
		RelevanceDegraded:       event.RelevanceDegraded,
		StageDurations:          event.StageDurations,
		OccurredAt:              event.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}

	if err := r.db.Store().Insert(record.ID, &record); err != nil {
		r.logger.Warn().
			Err(err).
			Str("request_id", event.RequestID).
			Msg("Failed to store audit record")
		return fmt.Errorf("failed to store audit record: %w", err)
	}

	return nil
}

// Recent returns the most recent audit records, newest first
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	query := badgerhold.Where("ID").Ne("").SortBy("OccurredAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := r.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}

// Count returns the total number of stored audit records
func (r *Recorder) Count(ctx context.Context) (int, error) {
	count, err := r.db.Store().Count(&Record{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return int(count), nil
}

// Prune deletes records older than the retention window and returns the
// number removed.
func (r *Recorder) Prune(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -r.retentionDays)

	before, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}

	if err := r.db.Store().DeleteMatching(&Record{}, badgerhold.Where("OccurredAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}

	after, err := r.Count(ctx)
	if err != nil {
		return 0, err
	}

	removed := before - after
	if removed > 0 {
		r.logger.Info().
			Int("removed", removed).
			Str("cutoff", cutoff.Format(time.RFC3339)).
			Msg("Pruned expired audit records")
	}
	return removed, nil
}

// StartPruning registers the retention prune on the given cron schedule and
// starts the scheduler.
func (r *Recorder) StartPruning(schedule string) error {
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	_, err := r.cron.AddFunc(schedule, func() {
		if _, err := r.Prune(context.Background()); err != nil {
			r.logger.Warn().Err(err).Msg("Scheduled audit prune failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit pruning: %w", err)
	}

	r.cron.Start()
	r.logger.Info().
		Str("schedule", schedule).
		Int("retention_days", r.retentionDays).
		Msg("Audit retention pruning scheduled")

	return nil
}

// Stop halts the pruning scheduler
func (r *Recorder) Stop() {
	r.cron.Stop()
}

// NopRecorder discards audit events. Used when auditing is disabled.
type NopRecorder struct{}

// Record discards the event
func (NopRecorder) Record(ctx context.Context, event interfaces.AuditEvent) error {
	return nil
}
