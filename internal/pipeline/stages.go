package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/services/audit"
)

type retrievalResult struct {
	passages []models.Passage
	err      error
}

// runGateAndRetrieve executes the emergency check and knowledge retrieval
// concurrently. The gate is pure and fast; retrieval is the slow network
// call, so it is launched first and cancelled if the gate trips. A tripped
// gate always discards the retrieval result, even when retrieval already
// completed.
func (c *Controller) runGateAndRetrieve(ctx context.Context, question string, trace *models.PipelineTrace) (models.EmergencySignal, []models.Passage, error) {
	gateIdx := trace.Begin(models.StageEmergencyCheck)
	retrieveIdx := trace.Begin(models.StageRetrieve)

	retrieveCtx, cancelRetrieve := context.WithCancel(ctx)
	defer cancelRetrieve()

	resultCh := make(chan retrievalResult, 1)
	go func() {
		passages, err := c.retriever.Retrieve(retrieveCtx, question)
		resultCh <- retrievalResult{passages: passages, err: err}
	}()

	signal := c.gate.Scan(question)
	gateDetail := "no emergency indicators"
	if signal.Triggered {
		gateDetail = fmt.Sprintf("%d categories matched", len(signal.Categories))
	}
	trace.End(gateIdx, models.OutcomeSuccess, gateDetail)

	if signal.Triggered {
		cancelRetrieve()
		<-resultCh
		trace.End(retrieveIdx, models.OutcomeCancelled, "discarded after emergency gate tripped")
		return signal, nil, nil
	}

	res := <-resultCh
	if res.err != nil {
		trace.End(retrieveIdx, models.OutcomeFailed, res.err.Error())
		c.logger.Error().
			Err(res.err).
			Str("request_id", trace.RequestID).
			Msg("Knowledge retrieval failed")
		return signal, nil, res.err
	}

	trace.End(retrieveIdx, models.OutcomeSuccess, fmt.Sprintf("%d passages", len(res.passages)))
	return signal, res.passages, nil
}

// runWebSearch executes the corrective fallback search. Provider failures
// degrade to an empty result with a non-fatal failed trace entry; the
// pipeline continues with whatever evidence it already has.
func (c *Controller) runWebSearch(ctx context.Context, question string, trace *models.PipelineTrace) []models.Passage {
	searchIdx := trace.Begin(models.StageWebSearch)

	webPassages, err := c.searcher.Search(ctx, question)
	if err != nil {
		trace.End(searchIdx, models.OutcomeFailed, err.Error())
		c.logger.Warn().
			Err(err).
			Str("request_id", trace.RequestID).
			Msg("Web search failed, continuing without web evidence")
		return nil
	}

	trace.End(searchIdx, models.OutcomeSuccess, fmt.Sprintf("%d results", len(webPassages)))
	return webPassages
}

// recordAudit stores the de-identified record of this run. Audit failures
// never fail the originating request.
func (c *Controller) recordAudit(ctx context.Context, req Request, result *Result) {
	if c.recorder == nil {
		return
	}

	event := interfaces.AuditEvent{
		RequestID:               result.RequestID,
		PatientHash:             audit.HashPatientID(req.PatientID),
		EmergencyDetected:       result.Answer.Emergency,
		WebSearchUsed:           result.Answer.UsedWebSearch,
		MedicationWarningsCount: len(result.Warnings),
		RelevanceScore:          result.Verdict.Score,
		RelevanceDegraded:       result.Verdict.Degraded,
		StageDurations:          result.Trace.StageDurations(),
		OccurredAt:              time.Now().UTC(),
	}

	if err := c.recorder.Record(ctx, event); err != nil {
		c.logger.Warn().
			Err(err).
			Str("request_id", result.RequestID).
			Msg("Failed to record audit event")
	}
}
