package llm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/errors"
	"github.com/maumtalk/counselgo/pkg/types"
)

// OpenAILLM implements the LLM interface for OpenAI-compatible endpoints
type OpenAILLM struct {
	*BaseLLM
	client     *openai.Client
	config     *config.LLMConfig
	httpClient *resty.Client
}

// NewOpenAILLM creates a new OpenAI LLM instance
func NewOpenAILLM(cfg *config.LLMConfig) (LLMProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("llm config cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError("OpenAI API key is required")
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(openaiConfig)

	// Separate resty client for endpoints the SDK does not cover
	httpClient := resty.New()
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetRetryCount(2)
	httpClient.SetRetryWaitTime(1 * time.Second)
	httpClient.SetRetryMaxWaitTime(5 * time.Second)
	httpClient.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	httpClient.SetHeader("Content-Type", "application/json")

	llm := &OpenAILLM{
		BaseLLM:    NewBaseLLM(cfg.Model),
		client:     client,
		config:     cfg,
		httpClient: httpClient,
	}

	if cfg.MaxTokens > 0 {
		llm.SetMaxTokens(cfg.MaxTokens)
	}
	if cfg.Temperature > 0 {
		llm.SetTemperature(cfg.Temperature)
	}
	if cfg.TopP > 0 {
		llm.SetTopP(cfg.TopP)
	}
	if cfg.Timeout > 0 {
		llm.SetTimeout(cfg.Timeout)
	}

	return llm, nil
}

func (o *OpenAILLM) toOpenAIMessages(messages types.MessageList) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return out
}

// Generate generates text based on messages
func (o *OpenAILLM) Generate(ctx context.Context, messages types.MessageList) (string, error) {
	if err := o.ValidateMessages(messages); err != nil {
		return "", errors.NewInvalidInputError(err.Error())
	}

	req := openai.ChatCompletionRequest{
		Model:       o.GetModelName(),
		Messages:    o.toOpenAIMessages(messages),
		MaxTokens:   o.GetMaxTokens(),
		Temperature: float32(o.GetTemperature()),
		TopP:        float32(o.GetTopP()),
		Stream:      false,
	}

	attempts := uint(o.config.MaxRetries)
	if attempts == 0 {
		attempts = 3
	}

	var resp openai.ChatCompletionResponse
	err := retry.Do(
		func() error {
			var callErr error
			resp, callErr = o.client.CreateChatCompletion(ctx, req)
			return callErr
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return "", errors.NewLLMAPIError("chat completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewLLMError("no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateStream generates text with streaming support
func (o *OpenAILLM) GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error {
	if err := o.ValidateMessages(messages); err != nil {
		return errors.NewInvalidInputError(err.Error())
	}

	req := openai.ChatCompletionRequest{
		Model:       o.GetModelName(),
		Messages:    o.toOpenAIMessages(messages),
		MaxTokens:   o.GetMaxTokens(),
		Temperature: float32(o.GetTemperature()),
		TopP:        float32(o.GetTopP()),
		Stream:      true,
	}

	streamResp, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return errors.NewLLMAPIError("failed to open completion stream", err)
	}
	defer streamResp.Close()

	for {
		response, err := streamResp.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.NewLLMAPIError("stream read failed", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		content := response.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		select {
		case stream <- content:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// GetProviderName returns the provider name
func (o *OpenAILLM) GetProviderName() string {
	return "openai"
}

// HealthCheck verifies the API is reachable with the configured credentials
func (o *OpenAILLM) HealthCheck(ctx context.Context) error {
	_, err := o.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

// GetModelInfo returns detailed model information
func (o *OpenAILLM) GetModelInfo() map[string]interface{} {
	info := o.BaseLLM.GetModelInfo()
	info["provider"] = o.GetProviderName()
	info["api_key_set"] = o.config.APIKey != ""
	info["base_url"] = o.config.BaseURL
	return info
}

// Close closes the OpenAI client
func (o *OpenAILLM) Close() error {
	return o.BaseLLM.Close()
}
