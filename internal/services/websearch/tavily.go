// Package websearch provides the Tavily client used as the corrective
// fallback when knowledge-base passages are judged inadequate.
package websearch

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
	"golang.org/x/time/rate"

	"github.com/PREDICTif/medview/internal/models"
)

const (
	// DefaultEndpoint is the Tavily search API endpoint.
	DefaultEndpoint = "https://api.tavily.com/search"

	// DefaultTimeout is the default HTTP timeout for search calls.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults caps how many results are requested per search.
	DefaultMaxResults = 3
)

// medicalDomains restricts search to reputable medical sources.
var medicalDomains = []string{
	"diabetes.org",
	"mayoclinic.org",
	"medlineplus.gov",
	"niddk.nih.gov",
	"cdc.gov",
}

// TavilyClient is a Tavily search API client. A rate limiter throttles
// provider calls so fallback bursts cannot exhaust the API quota.
type TavilyClient struct {
	endpoint   string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// TavilyOption configures the TavilyClient.
type TavilyOption func(*TavilyClient)

// WithEndpoint sets a custom search endpoint.
func WithEndpoint(endpoint string) TavilyOption {
	return func(c *TavilyClient) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) TavilyOption {
	return func(c *TavilyClient) {
		c.httpClient = httpClient
	}
}

// WithMaxResults sets the per-search result cap.
func WithMaxResults(maxResults int) TavilyOption {
	return func(c *TavilyClient) {
		c.maxResults = maxResults
	}
}

// WithMinInterval sets the minimum interval between provider calls.
func WithMinInterval(interval time.Duration) TavilyOption {
	return func(c *TavilyClient) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// NewTavilyClient creates a Tavily search client.
func NewTavilyClient(apiKey string, logger arbor.ILogger, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		maxResults: DefaultMaxResults,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// searchRequest is the Tavily wire request.
type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// searchResponse is the Tavily wire response.
type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search fetches web passages for the question. Returned passages carry
// OriginWeb and each records its source URL for citation. Provider failures
// surface as errors; the pipeline degrades them to an empty result set.
func (c *TavilyClient) Search(ctx context.Context, question string) ([]models.Passage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", models.ErrMalformedInput)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: web search API key is not configured", models.ErrConfiguration)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait cancelled: %v", models.ErrAdapterTimeout, err)
	}

	body, err := json.Marshal(searchRequest{
		APIKey:         c.apiKey,
		Query:          question,
		SearchDepth:    "basic",
		MaxResults:     c.maxResults,
		IncludeDomains: medicalDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: web search timed out: %v", models.ErrAdapterTimeout, err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("%w: web search timed out: %v", models.ErrAdapterTimeout, err)
		}
		return nil, fmt.Errorf("%w: web search request failed: %v", models.ErrAdapterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Msg("Web search provider returned non-OK status")
		return nil, fmt.Errorf("%w: web search provider returned status %d", models.ErrAdapterUnavailable, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read search response: %v", models.ErrAdapterUnavailable, err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed search response: %v", models.ErrAdapterUnavailable, err)
	}

	fetchedAt := time.Now().UTC()
	passages := make([]models.Passage, 0, len(parsed.Results))
	for i, result := range parsed.Results {
		passages = append(passages, models.Passage{
			ID:        fmt.Sprintf("web_%d", i+1),
			Text:      result.Content,
			Score:     result.Score,
			Origin:    models.OriginWeb,
			SourceRef: result.URL,
			Title:     result.Title,
			FetchedAt: fetchedAt,
		})
	}
	models.SortPassagesByScore(passages)

	c.logger.Debug().
		Int("results", len(passages)).
		Dur("duration", time.Since(startTime)).
		Msg("Web search complete")

	return passages, nil
}
