package relevance

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
)

// FailSafeScore is the pinned score substituted when the scorer errors.
// It is intentionally decoupled from the configured threshold: threshold
// tuning must never move the fail-safe value.
const FailSafeScore = 0.5

// Evaluator judges whether retrieved passages adequately support answering a
// question. Scoring is delegated to a model-based judge behind the
// RelevanceScorer port; the evaluator owns binarization and the fail-safe
// policy.
type Evaluator struct {
	scorer    interfaces.RelevanceScorer
	threshold float64
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewEvaluator creates a relevance evaluator with the given binarization
// threshold. The threshold applies strictly: a score exactly equal to it is
// classified not relevant.
func NewEvaluator(scorer interfaces.RelevanceScorer, threshold float64, timeout time.Duration, logger arbor.ILogger) *Evaluator {
	return &Evaluator{
		scorer:    scorer,
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
	}
}

// Evaluate scores the passage set against the question and binarizes the
// result.
//
// An empty passage list short-circuits to a genuine, non-degraded
// NotRelevant: no knowledge was found, which is exactly the signal that
// should trigger the corrective fallback. Every scorer failure (transport
// error, timeout, malformed output) is absorbed into the fail-safe default
// {score=0.5, relevant, degraded=true} and never propagated. Suppressing
// the fallback on evaluator malfunction avoids under-triggering search in
// ambiguous conditions; Degraded keeps the substitution visible to audit.
func (e *Evaluator) Evaluate(ctx context.Context, question string, passages []models.Passage) models.RelevanceVerdict {
	if len(passages) == 0 {
		return models.RelevanceVerdict{
			Score:    0,
			Decision: models.DecisionNotRelevant,
			Degraded: false,
		}
	}

	if question == "" {
		e.logger.Warn().Msg("Relevance evaluation received empty question, applying fail-safe default")
		return e.failSafe()
	}

	scoreCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	score, err := e.scorer.Score(scoreCtx, question, models.PassageTexts(passages))
	if err != nil {
		e.logger.Warn().
			Err(err).
			Int("passages", len(passages)).
			Msg("Relevance scoring failed, applying fail-safe default")
		return e.failSafe()
	}
	if score < 0 || score > 1 {
		e.logger.Warn().
			Float64("score", score).
			Msg("Relevance score out of range, applying fail-safe default")
		return e.failSafe()
	}

	decision := models.DecisionNotRelevant
	if score > e.threshold {
		decision = models.DecisionRelevant
	}

	e.logger.Debug().
		Float64("score", score).
		Float64("threshold", e.threshold).
		Str("decision", string(decision)).
		Msg("Relevance evaluation complete")

	return models.RelevanceVerdict{
		Score:    score,
		Decision: decision,
	}
}

// failSafe returns the pinned degraded verdict
func (e *Evaluator) failSafe() models.RelevanceVerdict {
	return models.RelevanceVerdict{
		Score:    FailSafeScore,
		Decision: models.DecisionRelevant,
		Degraded: true,
	}
}
