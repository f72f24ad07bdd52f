package interfaces

import (
	"context"

	"github.com/PREDICTif/medview/internal/models"
)

// KnowledgeRetriever is the port to the external vector-indexed knowledge
// store. Implementations delegate to a retrieval service; this interface only
// fixes the contract the pipeline depends on.
type KnowledgeRetriever interface {
	// Retrieve fetches candidate passages for the question.
	//
	// The question must be passed verbatim: query rewriting degrades
	// retrieval fidelity against the store's own query optimization.
	// Returned passages carry OriginKnowledgeBase and are ordered by
	// descending score with stable ties. An empty list is a valid,
	// non-error outcome meaning no sufficiently scored matches exist.
	//
	// Transport failures return ErrAdapterUnavailable or ErrAdapterTimeout
	// (wrapped); they are never silently converted into an empty list,
	// because a false "no knowledge" signal changes downstream branching.
	Retrieve(ctx context.Context, question string) ([]models.Passage, error)
}
