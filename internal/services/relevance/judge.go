package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/interfaces"
)

// judgeSystemPrompt instructs the model to act as a per-context usefulness
// judge. The verdicts feed a context-precision aggregate, not free-form
// reasoning, so the output format is pinned to a bare JSON array.
const judgeSystemPrompt = `You are a strict relevance judge for a medical question answering system.
Given a patient question and a numbered list of context passages, decide for each passage whether it is useful for answering the question.
Respond with ONLY a JSON array of 1s and 0s, one per passage in order. 1 means useful, 0 means not useful.
Example: [1, 0, 1]
Do not include any other text.`

// LLMJudge scores question/context relevance using a language model. It
// implements the RelevanceScorer port: a per-context verdict list from the
// model is aggregated into a rank-weighted precision score in [0,1].
type LLMJudge struct {
	llmService interfaces.LLMService
	logger     arbor.ILogger
}

// NewLLMJudge creates a model-based relevance scorer.
func NewLLMJudge(llmService interfaces.LLMService, logger arbor.ILogger) *LLMJudge {
	return &LLMJudge{
		llmService: llmService,
		logger:     logger,
	}
}

// Score asks the model for a usefulness verdict on each context and
// aggregates the verdicts into mean precision at the positive ranks. Earlier
// useful contexts weigh more than later ones, matching how the synthesizer
// consumes passages in rank order.
//
// Any model failure or malformed verdict list returns an error; the caller
// owns the fail-safe substitution.
func (j *LLMJudge) Score(ctx context.Context, question string, contexts []string) (float64, error) {
	if question == "" {
		return 0, fmt.Errorf("question cannot be empty for relevance scoring")
	}
	if len(contexts) == 0 {
		return 0, fmt.Errorf("contexts cannot be empty for relevance scoring")
	}

	var prompt strings.Builder
	prompt.WriteString("Question: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\nContext passages:\n")
	for i, c := range contexts {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, c)
	}

	response, err := j.llmService.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: prompt.String()},
	})
	if err != nil {
		return 0, fmt.Errorf("relevance judge call failed: %w", err)
	}

	verdicts, err := parseVerdicts(response, len(contexts))
	if err != nil {
		return 0, fmt.Errorf("relevance judge returned malformed verdicts: %w", err)
	}

	score := precisionScore(verdicts)

	j.logger.Debug().
		Int("contexts", len(contexts)).
		Float64("score", score).
		Msg("Relevance judge verdict aggregated")

	return score, nil
}

// parseVerdicts extracts the JSON verdict array from the model response.
// Models occasionally wrap the array in prose or a code fence, so parsing
// locates the outermost bracket pair rather than trusting the whole body.
func parseVerdicts(response string, want int) ([]int, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var verdicts []int
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdicts); err != nil {
		return nil, fmt.Errorf("invalid verdict array: %w", err)
	}

	if len(verdicts) != want {
		return nil, fmt.Errorf("expected %d verdicts, got %d", want, len(verdicts))
	}
	for i, v := range verdicts {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("verdict %d out of range: %d", i+1, v)
		}
	}

	return verdicts, nil
}

// precisionScore computes mean precision at the positive ranks:
// sum over k of (precision@k * verdict_k) divided by the positive count.
// All-negative verdicts score 0.
func precisionScore(verdicts []int) float64 {
	positives := 0
	sum := 0.0
	for k, v := range verdicts {
		if v == 1 {
			positives++
			sum += float64(positives) / float64(k+1)
		}
	}
	if positives == 0 {
		return 0
	}
	return sum / float64(positives)
}
