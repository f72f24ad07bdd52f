// Package pipeline orchestrates the corrective retrieval flow: emergency
// gate, knowledge retrieval, relevance evaluation, conditional web search,
// medication screening, and cited answer synthesis.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/services/emergency"
	"github.com/PREDICTif/medview/internal/services/medication"
	"github.com/PREDICTif/medview/internal/services/relevance"
	"github.com/PREDICTif/medview/internal/services/synthesis"
)

// RetrievalFailureMessage is the fixed user-facing response when the
// knowledge store is unreachable. The wording never varies with the
// underlying failure.
const RetrievalFailureMessage = "I'm unable to retrieve information right now. Please consult your doctor, pharmacist, or diabetes educator for guidance."

// Request is one patient question submitted to the pipeline.
type Request struct {
	RequestID   string
	PatientID   string
	Question    string
	Medications []string
}

// Result is the full outcome of one pipeline run: the answer plus the
// intermediate signals and the decision trace.
type Result struct {
	RequestID string
	Answer    models.Answer
	Verdict   models.RelevanceVerdict
	Warnings  []models.MedicationWarning
	Emergency models.EmergencySignal
	Trace     *models.PipelineTrace
}

// Controller runs the pipeline stages in their fixed order. The emergency
// gate and knowledge retrieval run concurrently; every other stage is strictly
// sequenced. There are no controller-level retries.
type Controller struct {
	gate        *emergency.Gate
	retriever   interfaces.KnowledgeRetriever
	evaluator   *relevance.Evaluator
	searcher    interfaces.WebSearcher
	checker     *medication.Checker
	synthesizer *synthesis.Synthesizer
	recorder    interfaces.AuditRecorder
	logger      arbor.ILogger
}

// NewController wires the pipeline stages together. The recorder may be nil
// when auditing is disabled.
func NewController(
	gate *emergency.Gate,
	retriever interfaces.KnowledgeRetriever,
	evaluator *relevance.Evaluator,
	searcher interfaces.WebSearcher,
	checker *medication.Checker,
	synthesizer *synthesis.Synthesizer,
	recorder interfaces.AuditRecorder,
	logger arbor.ILogger,
) *Controller {
	return &Controller{
		gate:        gate,
		retriever:   retriever,
		evaluator:   evaluator,
		searcher:    searcher,
		checker:     checker,
		synthesizer: synthesizer,
		recorder:    recorder,
		logger:      logger,
	}
}

// Ask runs one question through the pipeline.
//
// An empty question is rejected before any stage executes. A tripped
// emergency gate terminates the run with the advisory answer: the concurrent
// retrieval is cancelled and its result discarded, and no evaluation, search,
// medication check, or synthesis occurs. A retrieval failure aborts the run
// with the fixed retrieval-failure response and a non-nil error; every other
// adapter failure is absorbed by its owning stage.
func (c *Controller) Ask(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is empty", models.ErrMalformedInput)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = common.NewRequestID()
	}
	trace := models.NewPipelineTrace(requestID)

	c.logger.Info().
		Str("request_id", requestID).
		Int("medications", len(req.Medications)).
		Msg("Pipeline run started")

	signal, passages, retrieveErr := c.runGateAndRetrieve(ctx, req.Question, trace)

	if signal.Triggered {
		result := &Result{
			RequestID: requestID,
			Answer: models.Answer{
				Text:      signal.Advisory,
				Emergency: true,
			},
			Emergency: signal,
			Trace:     trace,
		}
		c.logger.Warn().
			Str("request_id", requestID).
			Int("categories", len(signal.Categories)).
			Msg("Emergency gate tripped, returning advisory")
		c.recordAudit(ctx, req, result)
		return result, nil
	}

	if retrieveErr != nil {
		result := &Result{
			RequestID: requestID,
			Answer:    models.Answer{Text: RetrievalFailureMessage},
			Trace:     trace,
		}
		c.recordAudit(ctx, req, result)
		return result, fmt.Errorf("knowledge retrieval failed: %w", retrieveErr)
	}

	evalIdx := trace.Begin(models.StageEvaluate)
	verdict := c.evaluator.Evaluate(ctx, req.Question, passages)
	evalOutcome := models.OutcomeSuccess
	if verdict.Degraded {
		evalOutcome = models.OutcomeDegraded
	}
	trace.End(evalIdx, evalOutcome, fmt.Sprintf("score=%.2f decision=%s", verdict.Score, verdict.Decision))

	evidence := passages
	usedWebSearch := false
	if verdict.Decision == models.DecisionNotRelevant {
		webPassages := c.runWebSearch(ctx, req.Question, trace)
		if len(webPassages) > 0 {
			evidence = append(evidence, webPassages...)
			usedWebSearch = true
		}
	}

	var warnings []models.MedicationWarning
	if len(req.Medications) > 0 {
		medIdx := trace.Begin(models.StageMedicationCheck)
		warnings = c.checker.Check(req.Medications, req.Question)
		trace.End(medIdx, models.OutcomeSuccess, fmt.Sprintf("%d warnings", len(warnings)))
	}

	synthIdx := trace.Begin(models.StageSynthesize)
	answer := c.synthesizer.Synthesize(ctx, synthesis.Input{
		Question:      req.Question,
		Passages:      evidence,
		Warnings:      warnings,
		UsedWebSearch: usedWebSearch,
	})
	trace.End(synthIdx, models.OutcomeSuccess, fmt.Sprintf("%d citations", len(answer.Citations)))

	result := &Result{
		RequestID: requestID,
		Answer:    answer,
		Verdict:   verdict,
		Warnings:  warnings,
		Trace:     trace,
	}

	c.logger.Info().
		Str("request_id", requestID).
		Float64("relevance_score", verdict.Score).
		Bool("web_search", usedWebSearch).
		Int("warnings", len(warnings)).
		Msg("Pipeline run complete")

	c.recordAudit(ctx, req, result)
	return result, nil
}
