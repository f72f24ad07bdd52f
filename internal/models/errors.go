package models

import "errors"

// Error taxonomy for the corrective retrieval pipeline.
//
// MalformedInput and ConfigurationError are fatal to a request and are
// rejected before the state machine starts. Adapter failures are handled
// per stage: retriever failures propagate, evaluator failures are absorbed
// by the fail-safe default, and search failures degrade to an empty result.
var (
	// ErrAdapterUnavailable marks a transport failure talking to the
	// retriever, search provider, or relevance scorer.
	ErrAdapterUnavailable = errors.New("adapter unavailable")

	// ErrAdapterTimeout marks an adapter call that exceeded its deadline.
	// Treated identically to ErrAdapterUnavailable by every failure policy.
	ErrAdapterTimeout = errors.New("adapter timeout")

	// ErrMalformedInput marks an empty or otherwise unusable question.
	ErrMalformedInput = errors.New("malformed input")

	// ErrConfiguration marks a missing threshold or table at startup.
	ErrConfiguration = errors.New("configuration error")
)

// IsAdapterFailure reports whether err is a transport failure or timeout
// from an external adapter.
func IsAdapterFailure(err error) bool {
	return errors.Is(err, ErrAdapterUnavailable) || errors.Is(err, ErrAdapterTimeout)
}
