// Package app wires the application components together.
package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/handlers"
	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/pipeline"
	"github.com/PREDICTif/medview/internal/services/audit"
	"github.com/PREDICTif/medview/internal/services/emergency"
	"github.com/PREDICTif/medview/internal/services/knowledge"
	"github.com/PREDICTif/medview/internal/services/llm"
	"github.com/PREDICTif/medview/internal/services/medication"
	"github.com/PREDICTif/medview/internal/services/relevance"
	"github.com/PREDICTif/medview/internal/services/synthesis"
	"github.com/PREDICTif/medview/internal/services/websearch"
	"github.com/PREDICTif/medview/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	BadgerDB *badger.BadgerDB

	// Pipeline components
	LLMService    interfaces.LLMService
	AuditRecorder interfaces.AuditRecorder
	Controller    *pipeline.Controller

	// HTTP handlers
	AskHandler *handlers.AskHandler

	auditRecorder *audit.Recorder
}

// New creates the application with all components wired. Configuration is
// validated first: an invalid configuration is fatal, never degraded around.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}

	a := &App{
		Config: config,
		Logger: logger,
	}

	llmService, err := llm.NewLLMService(&config.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	a.LLMService = llmService

	knowledgeTimeout, err := parseTimeout(config.Knowledge.Timeout, knowledge.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid knowledge.timeout: %v", models.ErrConfiguration, err)
	}
	retriever := knowledge.NewRetriever(config.Knowledge.Endpoint, logger,
		knowledge.WithMinScore(config.Knowledge.MinScore),
		knowledge.WithTimeout(knowledgeTimeout),
	)

	relevanceTimeout, err := parseTimeout(config.Relevance.Timeout, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid relevance.timeout: %v", models.ErrConfiguration, err)
	}
	judge := relevance.NewLLMJudge(llmService, logger)
	evaluator := relevance.NewEvaluator(judge, config.Relevance.Threshold, relevanceTimeout, logger)

	searchTimeout, err := parseTimeout(config.WebSearch.Timeout, websearch.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid web_search.timeout: %v", models.ErrConfiguration, err)
	}
	searchInterval, err := parseTimeout(config.WebSearch.RateLimit, time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid web_search.rate_limit: %v", models.ErrConfiguration, err)
	}
	searcher := websearch.NewTavilyClient(config.WebSearch.APIKey, logger,
		websearch.WithEndpoint(config.WebSearch.Endpoint),
		websearch.WithMaxResults(config.WebSearch.MaxResults),
		websearch.WithMinInterval(searchInterval),
		websearch.WithHTTPClient(&http.Client{Timeout: searchTimeout}),
	)

	table, err := medication.LoadTable(config.Medication.TablePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load medication table: %w", err)
	}
	checker := medication.NewChecker(table, logger)

	synthesizer := synthesis.NewSynthesizer(llmService, logger)

	var recorder interfaces.AuditRecorder = audit.NopRecorder{}
	if config.Audit.Enabled {
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		a.BadgerDB = db

		a.auditRecorder = audit.NewRecorder(db, config.Audit.RetentionDays, logger)
		if err := a.auditRecorder.StartPruning(config.Audit.PruneSchedule); err != nil {
			return nil, fmt.Errorf("failed to start audit pruning: %w", err)
		}
		recorder = a.auditRecorder
	}
	a.AuditRecorder = recorder

	a.Controller = pipeline.NewController(
		emergency.NewGate(),
		retriever,
		evaluator,
		searcher,
		checker,
		synthesizer,
		recorder,
		logger,
	)

	a.AskHandler = handlers.NewAskHandler(a.Controller, logger)

	logger.Info().
		Str("llm_provider", string(config.LLM.Provider)).
		Bool("audit_enabled", config.Audit.Enabled).
		Float64("relevance_threshold", config.Relevance.Threshold).
		Msg("Application initialized")

	return a, nil
}

// Close releases application resources in reverse initialization order
func (a *App) Close() {
	if a.auditRecorder != nil {
		a.auditRecorder.Stop()
	}
	if a.BadgerDB != nil {
		if err := a.BadgerDB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit storage")
		}
	}
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}
}

// parseTimeout parses a duration string, falling back to the default when
// the value is empty.
func parseTimeout(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
