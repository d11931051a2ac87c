// File: internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/config"
)

// NewClient is a factory function that constructs the configured provider
// client.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case "groq", "openai":
		// Both speak the OpenAI chat-completions wire format; only the
		// endpoint differs.
		return NewGroqClient(cfg, logger)
	case "gemini":
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider '%s'", cfg.Provider)
	}
}
