package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/maumtalk/counselgo/pkg/config"
	"github.com/maumtalk/counselgo/pkg/errors"
	"github.com/maumtalk/counselgo/pkg/types"
)

const defaultOllamaURL = "http://localhost:11434"

// OllamaLLM implements the LLM interface for a local Ollama server
type OllamaLLM struct {
	*BaseLLM
	config     *config.LLMConfig
	baseURL    string
	httpClient *resty.Client
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

// NewOllamaLLM creates a new Ollama LLM instance
func NewOllamaLLM(cfg *config.LLMConfig) (LLMProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("llm config cannot be nil")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetTimeout(cfg.Timeout)
	httpClient.SetHeader("Content-Type", "application/json")

	llm := &OllamaLLM{
		BaseLLM:    NewBaseLLM(cfg.Model),
		config:     cfg,
		baseURL:    baseURL,
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

func (o *OllamaLLM) buildRequest(messages types.MessageList, stream bool) *ollamaChatRequest {
	msgs := make([]ollamaChatMessage, len(messages))
	for i, msg := range messages {
		msgs[i] = ollamaChatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	return &ollamaChatRequest{
		Model:    o.GetModelName(),
		Messages: msgs,
		Stream:   stream,
		Options: map[string]any{
			"temperature": o.GetTemperature(),
			"top_p":       o.GetTopP(),
			"num_predict": o.GetMaxTokens(),
		},
	}
}

// Generate generates text based on messages
func (o *OllamaLLM) Generate(ctx context.Context, messages types.MessageList) (string, error) {
	if err := o.ValidateMessages(messages); err != nil {
		return "", errors.NewInvalidInputError(err.Error())
	}

	var result ollamaChatResponse

	operation := func() error {
		resp, err := o.httpClient.R().
			SetContext(ctx).
			SetBody(o.buildRequest(messages, false)).
			SetResult(&result).
			Post("/api/chat")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("ollama server error: %s", resp.Status())
		}
		if resp.StatusCode() != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("ollama request failed: %s", resp.Status()))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", errors.NewLLMAPIError("ollama chat request failed", err)
	}

	if result.Error != "" {
		return "", errors.NewLLMError(result.Error)
	}

	return result.Message.Content, nil
}

// GenerateStream generates text with streaming support
func (o *OllamaLLM) GenerateStream(ctx context.Context, messages types.MessageList, stream chan<- string) error {
	if err := o.ValidateMessages(messages); err != nil {
		return errors.NewInvalidInputError(err.Error())
	}

	body, err := json.Marshal(o.buildRequest(messages, true))
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// resty buffers whole responses; streaming needs the raw client
	httpResp, err := o.httpClient.GetClient().Do(req)
	if err != nil {
		return errors.NewLLMAPIError("failed to open ollama stream", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return errors.NewLLMAPIError(fmt.Sprintf("ollama stream failed: %s", httpResp.Status), nil)
	}

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return errors.NewLLMBadOutputError("malformed stream chunk", err)
		}
		if chunk.Error != "" {
			return errors.NewLLMError(chunk.Error)
		}
		if chunk.Message.Content != "" {
			select {
			case stream <- chunk.Message.Content:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.NewLLMAPIError("stream read failed", err)
	}

	return nil
}

// GetProviderName returns the provider name
func (o *OllamaLLM) GetProviderName() string {
	return "ollama"
}

// HealthCheck verifies the Ollama server is reachable
func (o *OllamaLLM) HealthCheck(ctx context.Context) error {
	resp, err := o.httpClient.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ollama health check failed: %s", resp.Status())
	}
	return nil
}

// GetModelInfo returns detailed model information
func (o *OllamaLLM) GetModelInfo() map[string]interface{} {
	info := o.BaseLLM.GetModelInfo()
	info["provider"] = o.GetProviderName()
	info["base_url"] = o.baseURL
	return info
}

// Close closes the Ollama client
func (o *OllamaLLM) Close() error {
	return o.BaseLLM.Close()
}
