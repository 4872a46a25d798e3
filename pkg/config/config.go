// Package config provides configuration management for counselgo
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LLMConfig represents the generation backend configuration
type LLMConfig struct {
	Backend     string        `yaml:"backend" json:"backend" mapstructure:"backend" validate:"required,oneof=openai ollama"`
	Model       string        `yaml:"model" json:"model" mapstructure:"model" validate:"required"`
	APIKey      string        `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"`
	MaxTokens   int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP        float64       `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty" mapstructure:"max_retries"`
}

// NewLLMConfig creates an LLM configuration with defaults
func NewLLMConfig() *LLMConfig {
	return &LLMConfig{
		Backend:     "openai",
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.7,
		TopP:        0.9,
		Timeout:     60 * time.Second,
		MaxRetries:  3,
	}
}

// StoreConfig represents persistence configuration
type StoreConfig struct {
	// SQLitePath is the database file; ":memory:" for ephemeral use
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path" mapstructure:"sqlite_path" validate:"required"`

	// RedisAddr enables the preference profile cache when non-empty
	RedisAddr     string        `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"redis_password,omitempty" json:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db,omitempty" json:"redis_db,omitempty" mapstructure:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl,omitempty" json:"cache_ttl,omitempty" mapstructure:"cache_ttl"`
}

// NewStoreConfig creates a store configuration with defaults
func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		SQLitePath: "counselgo.db",
		CacheTTL:   10 * time.Minute,
	}
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" mapstructure:"host"`
	Port         int           `yaml:"port" json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty" mapstructure:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

// NewServerConfig creates a server configuration with defaults
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:        "0.0.0.0",
		Port:        8080,
		ReadTimeout: 30 * time.Second,
		// Streaming responses hold the connection open for the whole turn
		WriteTimeout: 5 * time.Minute,
		CORSOrigins:  []string{"*"},
	}
}

// PipelineConfig carries the tunable thresholds of the turn pipeline.
// Defaults reproduce production behavior; tests override individual fields.
type PipelineConfig struct {
	// Crisis detection
	CrisisConfidencePerKeyword float64 `yaml:"crisis_confidence_per_keyword" json:"crisis_confidence_per_keyword" mapstructure:"crisis_confidence_per_keyword" validate:"gt=0,lte=1"`
	CrisisCriticalMatchCount   int     `yaml:"crisis_critical_match_count" json:"crisis_critical_match_count" mapstructure:"crisis_critical_match_count" validate:"min=1"`
	CrisisAuditMediumMin       float64 `yaml:"crisis_audit_medium_min" json:"crisis_audit_medium_min" mapstructure:"crisis_audit_medium_min"`

	// Emotion classification
	EmotionMinMessageChars int     `yaml:"emotion_min_message_chars" json:"emotion_min_message_chars" mapstructure:"emotion_min_message_chars"`
	GuidanceMinIntensity   float64 `yaml:"guidance_min_intensity" json:"guidance_min_intensity" mapstructure:"guidance_min_intensity"`
	GuidanceCautionMin     float64 `yaml:"guidance_caution_min" json:"guidance_caution_min" mapstructure:"guidance_caution_min"`

	// Memory extraction
	MemoryExtractionInterval int     `yaml:"memory_extraction_interval" json:"memory_extraction_interval" mapstructure:"memory_extraction_interval" validate:"min=1"`
	MemoryWindowSize         int     `yaml:"memory_window_size" json:"memory_window_size" mapstructure:"memory_window_size" validate:"min=1"`
	MemoryMinWindow          int     `yaml:"memory_min_window" json:"memory_min_window" mapstructure:"memory_min_window"`
	MemoryReadMinConfidence  float64 `yaml:"memory_read_min_confidence" json:"memory_read_min_confidence" mapstructure:"memory_read_min_confidence"`

	// Summaries
	SummaryBlockSize int `yaml:"summary_block_size" json:"summary_block_size" mapstructure:"summary_block_size" validate:"min=2"`

	// Preference learning
	PreferenceWindowDays      int     `yaml:"preference_window_days" json:"preference_window_days" mapstructure:"preference_window_days" validate:"min=1"`
	PreferenceShortMaxChars   int     `yaml:"preference_short_max_chars" json:"preference_short_max_chars" mapstructure:"preference_short_max_chars"`
	PreferenceMediumMaxChars  int     `yaml:"preference_medium_max_chars" json:"preference_medium_max_chars" mapstructure:"preference_medium_max_chars"`
	PreferenceEmojiDelta      float64 `yaml:"preference_emoji_delta" json:"preference_emoji_delta" mapstructure:"preference_emoji_delta"`
	PreferenceStaleDays       int     `yaml:"preference_stale_days" json:"preference_stale_days" mapstructure:"preference_stale_days"`
	PreferenceStaleConvs      int     `yaml:"preference_stale_convs" json:"preference_stale_convs" mapstructure:"preference_stale_convs"`
	PreferenceFeedbackDivisor int     `yaml:"preference_feedback_divisor" json:"preference_feedback_divisor" mapstructure:"preference_feedback_divisor"`
	PreferenceConvDivisor     int     `yaml:"preference_conv_divisor" json:"preference_conv_divisor" mapstructure:"preference_conv_divisor"`

	// Exemplar selection
	ExemplarTextWeight    float64 `yaml:"exemplar_text_weight" json:"exemplar_text_weight" mapstructure:"exemplar_text_weight"`
	ExemplarEmotionWeight float64 `yaml:"exemplar_emotion_weight" json:"exemplar_emotion_weight" mapstructure:"exemplar_emotion_weight"`
	ExemplarThreshold     float64 `yaml:"exemplar_threshold" json:"exemplar_threshold" mapstructure:"exemplar_threshold"`
	ExemplarDynamicRatio  float64 `yaml:"exemplar_dynamic_ratio" json:"exemplar_dynamic_ratio" mapstructure:"exemplar_dynamic_ratio" validate:"gte=0,lte=1"`
	ExemplarHistoryScan   int     `yaml:"exemplar_history_scan" json:"exemplar_history_scan" mapstructure:"exemplar_history_scan"`

	// Prompt assembly
	TokenBudget        int `yaml:"token_budget" json:"token_budget" mapstructure:"token_budget" validate:"min=100"`
	CrossSummaryCount  int `yaml:"cross_summary_count" json:"cross_summary_count" mapstructure:"cross_summary_count"`
	OtherConversations int `yaml:"other_conversations" json:"other_conversations" mapstructure:"other_conversations"`
	OtherConvMessages  int `yaml:"other_conv_messages" json:"other_conv_messages" mapstructure:"other_conv_messages"`
	RecentHistoryLimit int `yaml:"recent_history_limit" json:"recent_history_limit" mapstructure:"recent_history_limit"`

	// Validation
	ValidationPassScore float64 `yaml:"validation_pass_score" json:"validation_pass_score" mapstructure:"validation_pass_score" validate:"gte=0,lte=1"`
}

// NewPipelineConfig creates a pipeline configuration with production defaults
func NewPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		CrisisConfidencePerKeyword: 0.3,
		CrisisCriticalMatchCount:   3,
		CrisisAuditMediumMin:       0.7,

		EmotionMinMessageChars: 3,
		GuidanceMinIntensity:   0.3,
		GuidanceCautionMin:     0.7,

		MemoryExtractionInterval: 10,
		MemoryWindowSize:         10,
		MemoryMinWindow:          4,
		MemoryReadMinConfidence:  0.7,

		SummaryBlockSize: 20,

		PreferenceWindowDays:      30,
		PreferenceShortMaxChars:   100,
		PreferenceMediumMaxChars:  300,
		PreferenceEmojiDelta:      0.3,
		PreferenceStaleDays:       7,
		PreferenceStaleConvs:      10,
		PreferenceFeedbackDivisor: 10,
		PreferenceConvDivisor:     5,

		ExemplarTextWeight:    0.7,
		ExemplarEmotionWeight: 0.3,
		ExemplarThreshold:     0.4,
		ExemplarDynamicRatio:  0.5,
		ExemplarHistoryScan:   50,

		TokenBudget:        4000,
		CrossSummaryCount:  3,
		OtherConversations: 3,
		OtherConvMessages:  10,
		RecentHistoryLimit: 20,

		ValidationPassScore: 0.7,
	}
}

// Config is the root counselgo configuration
type Config struct {
	LogLevel string          `yaml:"log_level" json:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Server   *ServerConfig   `yaml:"server" json:"server" mapstructure:"server"`
	LLM      *LLMConfig      `yaml:"llm" json:"llm" mapstructure:"llm" validate:"required"`
	Store    *StoreConfig    `yaml:"store" json:"store" mapstructure:"store" validate:"required"`
	Pipeline *PipelineConfig `yaml:"pipeline" json:"pipeline" mapstructure:"pipeline" validate:"required"`

	// CrisisResourcePath points to the hot-reloadable crisis resource file.
	// Empty means built-in resources only.
	CrisisResourcePath string `yaml:"crisis_resource_path,omitempty" json:"crisis_resource_path,omitempty" mapstructure:"crisis_resource_path"`
}

// NewConfig creates a configuration with defaults
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server:   NewServerConfig(),
		LLM:      NewLLMConfig(),
		Store:    NewStoreConfig(),
		Pipeline: NewPipelineConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file, layering the
// file contents over defaults and environment variables (COUNSELGO_ prefix).
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()

	v := viper.New()
	v.SetConfigFile(path)
	switch filepath.Ext(path) {
	case ".json":
		v.SetConfigType("json")
	default:
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("COUNSELGO")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToYAMLFile saves the configuration to a YAML file
func (c *Config) ToYAMLFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
