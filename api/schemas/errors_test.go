package schemas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderError(t *testing.T) {
	t.Run("includes status when present", func(t *testing.T) {
		err := &ProviderError{Provider: "groq", Status: 429, Err: errors.New("rate limited")}
		assert.Equal(t, "groq provider error (status 429): rate limited", err.Error())
	})

	t.Run("omits zero status", func(t *testing.T) {
		err := &ProviderError{Provider: "gemini", Err: errors.New("dial tcp: timeout")}
		assert.Equal(t, "gemini provider error: dial tcp: timeout", err.Error())
	})

	t.Run("unwraps to the cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &ProviderError{Provider: "groq", Err: cause}
		assert.ErrorIs(t, err, cause)

		var pe *ProviderError
		require.ErrorAs(t, fmt.Errorf("AI analysis failed: %w", err), &pe)
		assert.Equal(t, "groq", pe.Provider)
	})
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{ErrMalformedModelOutput, ErrInvalidRequest, ErrRepoNotFound, ErrNoCodeFiles}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
