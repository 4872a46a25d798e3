package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaultsValidate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "openai", cfg.LLM.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestPipelineDefaults(t *testing.T) {
	cfg := NewPipelineConfig()

	assert.Equal(t, 0.3, cfg.CrisisConfidencePerKeyword)
	assert.Equal(t, 3, cfg.CrisisCriticalMatchCount)
	assert.Equal(t, 3, cfg.EmotionMinMessageChars)
	assert.Equal(t, 10, cfg.MemoryExtractionInterval)
	assert.Equal(t, 0.7, cfg.MemoryReadMinConfidence)
	assert.Equal(t, 20, cfg.SummaryBlockSize)
	assert.Equal(t, 4000, cfg.TokenBudget)
	assert.Equal(t, 3, cfg.CrossSummaryCount)
	assert.Equal(t, 20, cfg.RecentHistoryLimit)
	assert.Equal(t, 0.7, cfg.ValidationPassScore)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"bad llm backend", func(c *Config) { c.LLM.Backend = "bard" }},
		{"missing sqlite path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFileLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counselgo.yaml")
	yaml := `
log_level: warn
llm:
  backend: ollama
  model: llama3
  base_url: http://localhost:11434
store:
  sqlite_path: /tmp/counsel_test.db
pipeline:
  token_budget: 2000
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.Pipeline.TokenBudget)

	// Untouched sections keep their defaults
	assert.Equal(t, 20, cfg.Pipeline.SummaryBlockSize)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "counselgo.yaml")
	cfg := NewConfig()
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.ToYAMLFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.LogLevel)
}
