package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, 0.2, config.Knowledge.MinScore)
	assert.Equal(t, 0.5, config.Relevance.Threshold)
	assert.Equal(t, 3, config.WebSearch.MaxResults)
	assert.Equal(t, LLMProviderClaude, config.LLM.Provider)
	assert.Equal(t, 90, config.Audit.RetentionDays)

	require.NoError(t, config.Validate())
}

func TestLoadFromFilesOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medview.toml")
	content := `
environment = "production"

[server]
port = 9090

[relevance]
threshold = 0.6

[knowledge]
endpoint = "http://knowledge.internal:9200/retrieve"
min_score = 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 0.6, config.Relevance.Threshold)
	assert.Equal(t, "http://knowledge.internal:9200/retrieve", config.Knowledge.Endpoint)
	assert.Equal(t, 0.3, config.Knowledge.MinScore)

	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 3, config.WebSearch.MaxResults)
}

func TestLoadFromFilesLaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.toml")
	require.NoError(t, os.WriteFile(first, []byte("[server]\nport = 7000\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[server]\nport = 7001\n"), 0644))

	config, err := LoadFromFiles(first, second)
	require.NoError(t, err)
	assert.Equal(t, 7001, config.Server.Port)
}

func TestLoadFromFilesMissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/medview.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDVIEW_SERVER_PORT", "9999")
	t.Setenv("MEDVIEW_RELEVANCE_THRESHOLD", "0.7")
	t.Setenv("TAVILY_API_KEY", "tvly-test")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, 0.7, config.Relevance.Threshold)
	assert.Equal(t, "tvly-test", config.WebSearch.APIKey)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()

	ApplyFlagOverrides(config, 8200, "0.0.0.0")
	assert.Equal(t, 8200, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	// Zero values leave the config untouched
	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 8200, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Relevance.Threshold = 1.5 }},
		{"negative min score", func(c *Config) { c.Knowledge.MinScore = -0.1 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"bad knowledge endpoint", func(c *Config) { c.Knowledge.Endpoint = "not a url" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "gpt" }},
		{"zero retention", func(c *Config) { c.Audit.RetentionDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
