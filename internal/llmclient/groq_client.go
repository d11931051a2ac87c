// internal/llmclient/groq_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/config"
)

const defaultGroqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqClient implements schemas.LLMClient against an OpenAI-compatible
// chat-completions endpoint (Groq by default). A single attempt is made per
// request; a failed call is terminal for that audit.
type GroqClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// -- Chat Completions Request/Response Structures (Internal to this file) --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponsePayload struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewGroqClient initializes the client.
func NewGroqClient(cfg config.LLMConfig, logger *zap.Logger) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultGroqEndpoint
	}

	return &GroqClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.groq"),
	}, nil
}

// GenerateResponse sends the prompts to the provider and returns the
// generated content.
func (c *GroqClient) GenerateResponse(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := chatRequestPayload{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		MaxTokens:   req.Options.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return "", &schemas.ProviderError{Provider: "groq", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &schemas.ProviderError{Provider: "groq", Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Provider returned error status",
			zap.Int("status", resp.StatusCode), zap.String("response", string(respBody)))
		return "", &schemas.ProviderError{
			Provider: "groq",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected status: %s", string(respBody)),
		}
	}

	var responsePayload chatResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return "", &schemas.ProviderError{Provider: "groq", Err: fmt.Errorf("failed to decode response payload: %w", err)}
	}

	if len(responsePayload.Choices) == 0 {
		return "", &schemas.ProviderError{Provider: "groq", Err: fmt.Errorf("provider returned no choices")}
	}

	c.logger.Info("LLM generation complete",
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", responsePayload.Usage.PromptTokens),
		zap.Int("completion_tokens", responsePayload.Usage.CompletionTokens),
		zap.Int("total_tokens", responsePayload.Usage.TotalTokens),
	)

	return responsePayload.Choices[0].Message.Content, nil
}
