package schemas

import (
	"errors"
	"fmt"
)

// Sentinel errors discriminate recoverable faults from hard failures.
// ErrMalformedModelOutput is absorbed inside the audit pipeline; the
// remaining errors propagate to the request boundary unmodified.
var (
	// ErrMalformedModelOutput means no valid JSON array could be extracted
	// from the model response. Recovered locally with a sentinel record.
	ErrMalformedModelOutput = errors.New("malformed model output")

	// ErrInvalidRequest covers client mistakes: bad repository URL shape,
	// missing input, non-text uploads.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRepoNotFound means the repository or its default branches could
	// not be resolved.
	ErrRepoNotFound = errors.New("repository not found")

	// ErrNoCodeFiles means the repository contains no readable code files
	// matching the extension allowlist.
	ErrNoCodeFiles = errors.New("no code files found in repository")
)

// ProviderError wraps a transport or authentication failure from the LLM
// provider. It always surfaces as an internal error; nothing is persisted.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
