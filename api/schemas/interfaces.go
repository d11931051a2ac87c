package schemas

import "context"

// GenerationOptions is the immutable per-call model configuration. The audit
// pipeline always pins temperature and top_p low to bias the model toward
// deterministic extraction.
type GenerationOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// GenerationRequest carries one prompt pair to an LLM provider.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Options      GenerationOptions
}

// LLMClient abstracts an outbound language-model provider.
type LLMClient interface {
	// GenerateResponse sends the prompts and returns the raw generated text.
	// Transport and authentication failures are returned as *ProviderError.
	GenerateResponse(ctx context.Context, req GenerationRequest) (string, error)
}

// ResultStore persists finished audit results.
type ResultStore interface {
	SaveResult(ctx context.Context, result *AuditResult) error
	GetResult(ctx context.Context, id string) (*AuditResult, error)
	Close()
}

// RepoFetcher retrieves an analyzable code payload for a public repository.
type RepoFetcher interface {
	// FetchRepo resolves the repository tree, selects code files and returns
	// a single combined payload ready for model analysis.
	FetchRepo(ctx context.Context, owner, repo string) (string, error)
}
