// Package llm provides language model services behind the LLMService
// interface, with Anthropic Claude and Google Gemini implementations.
package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/interfaces"
	"github.com/PREDICTif/medview/internal/models"
)

// NewLLMService creates the appropriate LLM service implementation based on
// the configured provider.
func NewLLMService(cfg *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", string(cfg.Provider)).Msg("Initializing LLM service")

	switch cfg.Provider {
	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, logger)

	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider '%s': must be 'claude' or 'gemini'", models.ErrConfiguration, cfg.Provider)
	}
}
