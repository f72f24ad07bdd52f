package models

// RelevanceDecision is the binarized outcome of a relevance evaluation
type RelevanceDecision string

const (
	DecisionRelevant    RelevanceDecision = "relevant"
	DecisionNotRelevant RelevanceDecision = "not_relevant"
)

// RelevanceVerdict is the result of judging whether a passage set adequately
// supports answering a question.
//
// Degraded=true marks a fail-safe default substituted after an evaluator
// error. It is not a computed verdict and must stay distinguishable from one
// for audit purposes.
type RelevanceVerdict struct {
	Score    float64           `json:"score"` // [0,1]
	Decision RelevanceDecision `json:"decision"`
	Degraded bool              `json:"degraded"`
}
