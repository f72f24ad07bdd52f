package interfaces

import "context"

// RelevanceScorer is the port to the reference-free context-precision judge.
// Implementations delegate scoring to a model-based capability; the evaluator
// wraps this port with binarization and the fail-safe policy.
type RelevanceScorer interface {
	// Score measures how well the contexts support answering the question,
	// returning a value in [0,1]. Requires a non-empty question and at least
	// one context; callers enforce the empty-context short-circuit.
	Score(ctx context.Context, question string, contexts []string) (float64, error)
}
