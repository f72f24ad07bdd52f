package interfaces

import (
	"context"

	"github.com/PREDICTif/medview/internal/models"
)

// WebSearcher is the port to the external web search provider used as the
// corrective fallback when knowledge-base passages are judged inadequate.
type WebSearcher interface {
	// Search fetches web passages for the question. Returned passages carry
	// OriginWeb. Provider failures return an error; the caller degrades to
	// an empty result set and records a non-fatal stage failure rather than
	// aborting the pipeline.
	Search(ctx context.Context, question string) ([]models.Passage, error)
}
