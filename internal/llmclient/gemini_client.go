// internal/llmclient/gemini_client.go
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

// GeminiClient implements schemas.LLMClient for Google Gemini APIs.
type GeminiClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

// -- Gemini API Request/Response Structures (Internal to this file) --

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig,omitempty"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// NewGeminiClient initializes the client.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	return &GeminiClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		config:   cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// GenerateResponse sends the prompts to the Gemini API and returns the
// generated content.
func (c *GeminiClient) GenerateResponse(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := c.buildRequestPayload(req)

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		return "", &schemas.ProviderError{Provider: "gemini", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &schemas.ProviderError{Provider: "gemini", Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gemini API returned error status",
			zap.Int("status", resp.StatusCode), zap.String("response", string(respBody)))
		return "", &schemas.ProviderError{
			Provider: "gemini",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected status: %s", string(respBody)),
		}
	}

	var responsePayload geminiResponsePayload
	if err := json.Unmarshal(respBody, &responsePayload); err != nil {
		return "", &schemas.ProviderError{Provider: "gemini", Err: fmt.Errorf("failed to decode response payload: %w", err)}
	}

	if len(responsePayload.Candidates) == 0 {
		return "", &schemas.ProviderError{Provider: "gemini", Err: fmt.Errorf("gemini API returned no candidates")}
	}

	candidate := responsePayload.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", &schemas.ProviderError{
			Provider: "gemini",
			Err:      fmt.Errorf("gemini API returned empty content parts (Reason: %s)", candidate.FinishReason),
		}
	}

	c.logger.Info("LLM generation complete (Gemini)",
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", responsePayload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", responsePayload.UsageMetadata.CandidatesTokenCount),
		zap.Int("total_tokens", responsePayload.UsageMetadata.TotalTokenCount),
	)

	return candidate.Content.Parts[0].Text, nil
}

func (c *GeminiClient) buildRequestPayload(req schemas.GenerationRequest) geminiRequestPayload {
	return geminiRequestPayload{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: req.UserPrompt}},
			},
		},
		SystemInstruction: &geminiSystemInstruction{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Options.Temperature,
			TopP:            req.Options.TopP,
			MaxOutputTokens: req.Options.MaxTokens,
		},
	}
}
