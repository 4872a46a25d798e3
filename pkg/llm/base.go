// Package llm provides LLM provider implementations for counselgo
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maumtalk/counselgo/pkg/interfaces"
	"github.com/maumtalk/counselgo/pkg/types"
)

// BaseLLM provides common functionality for all LLM implementations
type BaseLLM struct {
	modelName   string
	maxTokens   int
	temperature float64
	topP        float64
	timeout     time.Duration
}

// NewBaseLLM creates a new base LLM instance
func NewBaseLLM(modelName string) *BaseLLM {
	return &BaseLLM{
		modelName:   modelName,
		maxTokens:   1024,
		temperature: 0.7,
		topP:        0.9,
		timeout:     60 * time.Second,
	}
}

// SetMaxTokens sets the maximum number of tokens
func (b *BaseLLM) SetMaxTokens(maxTokens int) {
	b.maxTokens = maxTokens
}

// SetTemperature sets the temperature for generation
func (b *BaseLLM) SetTemperature(temperature float64) {
	b.temperature = temperature
}

// SetTopP sets the top-p value for nucleus sampling
func (b *BaseLLM) SetTopP(topP float64) {
	b.topP = topP
}

// SetTimeout sets the request timeout
func (b *BaseLLM) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// GetMaxTokens returns the maximum number of tokens
func (b *BaseLLM) GetMaxTokens() int {
	return b.maxTokens
}

// GetTemperature returns the temperature
func (b *BaseLLM) GetTemperature() float64 {
	return b.temperature
}

// GetTopP returns the top-p value
func (b *BaseLLM) GetTopP() float64 {
	return b.topP
}

// GetTimeout returns the request timeout
func (b *BaseLLM) GetTimeout() time.Duration {
	return b.timeout
}

// GetModelName returns the model name
func (b *BaseLLM) GetModelName() string {
	return b.modelName
}

// GetModelInfo returns model information
func (b *BaseLLM) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":       b.modelName,
		"max_tokens":  b.maxTokens,
		"temperature": b.temperature,
		"top_p":       b.topP,
		"timeout":     b.timeout.String(),
	}
}

// ValidateMessages validates the message list
func (b *BaseLLM) ValidateMessages(messages types.MessageList) error {
	if len(messages) == 0 {
		return fmt.Errorf("empty message list")
	}

	for i, msg := range messages {
		if msg.Role == "" {
			return fmt.Errorf("message %d: role is required", i)
		}
		if msg.Content == "" {
			return fmt.Errorf("message %d: content is required", i)
		}
		if msg.Role != types.MessageRoleUser &&
			msg.Role != types.MessageRoleAssistant &&
			msg.Role != types.MessageRoleSystem {
			return fmt.Errorf("message %d: invalid role %s", i, msg.Role)
		}
	}

	return nil
}

// Close provides default close implementation
func (b *BaseLLM) Close() error {
	return nil
}

// StripCodeFence removes a markdown code fence wrapping structured model
// output. Models regularly wrap requested JSON in ```json fences even when
// asked not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (```json, ```yaml, bare ```)
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// LLMProvider defines the interface for LLM provider implementations
type LLMProvider interface {
	interfaces.LLM
	GetProviderName() string
	HealthCheck(ctx context.Context) error
}
