package llm

import (
	"fmt"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/errors"
)

// CreateLLM creates an LLM provider for the configured backend
func CreateLLM(cfg *config.LLMConfig) (LLMProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("llm config cannot be nil")
	}

	switch cfg.Backend {
	case "openai":
		return NewOpenAILLM(cfg)
	case "ollama":
		return NewOllamaLLM(cfg)
	default:
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("unsupported llm backend: %s", cfg.Backend))
	}
}

// SupportedBackends returns the backends the factory can build
func SupportedBackends() []string {
	return []string{"openai", "ollama"}
}
