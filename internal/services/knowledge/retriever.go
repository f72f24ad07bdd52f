// Package knowledge provides the HTTP adapter to the external vector-indexed
// diabetes knowledge store.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout for retrieval calls.
	DefaultTimeout = 10 * time.Second

	// DefaultMinScore is the retrieval-side score floor sent to the store.
	DefaultMinScore = 0.2
)

// Retriever is an HTTP client for the knowledge retrieval service.
// It forwards the patient's question verbatim; the store applies its own
// query optimization and the min-score floor.
type Retriever struct {
	endpoint   string
	minScore   float64
	httpClient *http.Client
	logger     arbor.ILogger
}

// RetrieverOption configures the Retriever.
type RetrieverOption func(*Retriever)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) RetrieverOption {
	return func(r *Retriever) {
		r.httpClient = httpClient
	}
}

// WithMinScore sets the retrieval score floor.
func WithMinScore(minScore float64) RetrieverOption {
	return func(r *Retriever) {
		r.minScore = minScore
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) RetrieverOption {
	return func(r *Retriever) {
		r.httpClient.Timeout = timeout
	}
}

// NewRetriever creates a knowledge store client for the given endpoint.
func NewRetriever(endpoint string, logger arbor.ILogger, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		endpoint: endpoint,
		minScore: DefaultMinScore,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// retrieveRequest is the wire request to the knowledge store.
type retrieveRequest struct {
	Question string  `json:"question"`
	MinScore float64 `json:"min_score"`
}

// retrieveResponse is the wire response from the knowledge store.
type retrieveResponse struct {
	Passages []struct {
		ID     string  `json:"id"`
		Text   string  `json:"text"`
		Score  float64 `json:"score"`
		Source string  `json:"source"`
	} `json:"passages"`
}

// Retrieve fetches candidate passages for the question, ordered by descending
// score. An empty result is a valid outcome meaning nothing scored above the
// floor; transport failures surface as ErrAdapterUnavailable or
// ErrAdapterTimeout so callers can distinguish "no knowledge" from "store
// unreachable".
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]models.Passage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", models.ErrMalformedInput)
	}

	body, err := json.Marshal(retrieveRequest{
		Question: question,
		MinScore: r.minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode retrieval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, r.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", r.endpoint).
			Msg("Knowledge store returned non-OK status")
		return nil, fmt.Errorf("%w: knowledge store returned status %d", models.ErrAdapterUnavailable, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read retrieval response: %v", models.ErrAdapterUnavailable, err)
	}

	var parsed retrieveResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed retrieval response: %v", models.ErrAdapterUnavailable, err)
	}

	passages := make([]models.Passage, 0, len(parsed.Passages))
	for _, p := range parsed.Passages {
		passages = append(passages, models.Passage{
			ID:        p.ID,
			Text:      p.Text,
			Score:     p.Score,
			Origin:    models.OriginKnowledgeBase,
			SourceRef: p.Source,
		})
	}
	models.SortPassagesByScore(passages)

	r.logger.Debug().
		Int("passages", len(passages)).
		Dur("duration", time.Since(startTime)).
		Msg("Knowledge retrieval complete")

	return passages, nil
}

// classifyTransportError maps transport failures onto the adapter error
// taxonomy. Timeouts and unreachable hosts are distinct signals for audit.
func (r *Retriever) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: knowledge store request timed out: %v", models.ErrAdapterTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: knowledge store request timed out: %v", models.ErrAdapterTimeout, err)
	}
	return fmt.Errorf("%w: knowledge store request failed: %v", models.ErrAdapterUnavailable, err)
}
