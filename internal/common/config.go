package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Knowledge   KnowledgeConfig  `toml:"knowledge"`
	Relevance   RelevanceConfig  `toml:"relevance"`
	WebSearch   WebSearchConfig  `toml:"web_search"`
	Medication  MedicationConfig `toml:"medication"`
	LLM         LLMConfig        `toml:"llm"`
	Storage     StorageConfig    `toml:"storage"`
	Audit       AuditConfig      `toml:"audit"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// KnowledgeConfig configures the external vector-indexed knowledge store.
// MinScore is the retrieval-side score floor applied by the store itself.
// It is independent of the relevance evaluator's binarization threshold.
type KnowledgeConfig struct {
	Endpoint string  `toml:"endpoint" validate:"required,url"`
	MinScore float64 `toml:"min_score" validate:"gte=0,lte=1"`
	Timeout  string  `toml:"timeout"`
}

// RelevanceConfig configures the reference-free relevance evaluator.
type RelevanceConfig struct {
	Threshold float64 `toml:"threshold" validate:"gte=0,lte=1"`
	Timeout   string  `toml:"timeout"`
}

// WebSearchConfig configures the Tavily fallback search provider.
type WebSearchConfig struct {
	Endpoint   string `toml:"endpoint" validate:"required,url"`
	APIKey     string `toml:"api_key"`
	MaxResults int    `toml:"max_results" validate:"gt=0,lte=20"`
	Timeout    string `toml:"timeout"`
	RateLimit  string `toml:"rate_limit"` // minimum interval between provider calls, e.g. "1s"
}

// MedicationConfig configures the static medication interaction table.
// When TablePath is empty the embedded default table is used.
type MedicationConfig struct {
	TablePath string `toml:"table_path"`
}

type LLMProvider string

const (
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

type LLMConfig struct {
	Provider LLMProvider  `toml:"provider" validate:"oneof=claude gemini"`
	Claude   ClaudeConfig `toml:"claude"`
	Gemini   GeminiConfig `toml:"gemini"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// AuditConfig configures the de-identified audit record store.
type AuditConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days" validate:"gte=1"`
	PruneSchedule string `toml:"prune_schedule"` // cron expression
}

// NewDefaultConfig returns a configuration populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Knowledge: KnowledgeConfig{
			Endpoint: "http://localhost:9200/retrieve",
			MinScore: 0.2,
			Timeout:  "10s",
		},
		Relevance: RelevanceConfig{
			Threshold: 0.5,
			Timeout:   "30s",
		},
		WebSearch: WebSearchConfig{
			Endpoint:   "https://api.tavily.com/search",
			MaxResults: 3,
			Timeout:    "15s",
			RateLimit:  "1s",
		},
		LLM: LLMConfig{
			Provider: LLMProviderClaude,
			Claude: ClaudeConfig{
				Model:       "claude-sonnet-4-20250514",
				MaxTokens:   2048,
				Timeout:     "60s",
				Temperature: 0.2,
			},
			Gemini: GeminiConfig{
				Model:       "gemini-2.5-flash",
				Timeout:     "60s",
				Temperature: 0.2,
			},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/medview",
			},
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
			PruneSchedule: "0 3 * * *",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MEDVIEW_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("MEDVIEW_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MEDVIEW_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("MEDVIEW_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("MEDVIEW_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if endpoint := os.Getenv("MEDVIEW_KNOWLEDGE_ENDPOINT"); endpoint != "" {
		config.Knowledge.Endpoint = endpoint
	}
	if minScore := os.Getenv("MEDVIEW_KNOWLEDGE_MIN_SCORE"); minScore != "" {
		if s, err := strconv.ParseFloat(minScore, 64); err == nil {
			config.Knowledge.MinScore = s
		}
	}

	if threshold := os.Getenv("MEDVIEW_RELEVANCE_THRESHOLD"); threshold != "" {
		if t, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Relevance.Threshold = t
		}
	}

	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		config.WebSearch.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.Gemini.APIKey = key
	}

	if tablePath := os.Getenv("MEDVIEW_MEDICATION_TABLE"); tablePath != "" {
		config.Medication.TablePath = tablePath
	}
	if badgerPath := os.Getenv("MEDVIEW_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration using go-playground/validator tags.
// A failure here is fatal at startup: the pipeline refuses to run with a
// missing or out-of-range threshold or endpoint.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
