package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/impact"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockLLM returns a canned response or error and records the last request.
type mockLLM struct {
	response string
	err      error
	lastReq  schemas.GenerationRequest
}

func (m *mockLLM) GenerateResponse(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	m.lastReq = req
	return m.response, m.err
}

// mockStore records saved results and optionally fails.
type mockStore struct {
	saved []*schemas.AuditResult
	err   error
}

func (m *mockStore) SaveResult(ctx context.Context, result *schemas.AuditResult) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, result)
	return nil
}

func (m *mockStore) GetResult(ctx context.Context, id string) (*schemas.AuditResult, error) {
	for _, r := range m.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockStore) Close() {}

func newTestAuditor(t *testing.T, llm schemas.LLMClient, store schemas.ResultStore) *Auditor {
	t.Helper()
	a, err := New(llm, store, impact.DefaultRates(), schemas.GenerationOptions{Temperature: 0, TopP: 0.1, MaxTokens: 8192}, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	t.Run("rejects nil llm client", func(t *testing.T) {
		_, err := New(nil, nil, impact.DefaultRates(), schemas.GenerationOptions{}, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("rejects nil logger", func(t *testing.T) {
		_, err := New(&mockLLM{}, nil, impact.DefaultRates(), schemas.GenerationOptions{}, nil)
		require.Error(t, err)
	})

	t.Run("nil store is allowed", func(t *testing.T) {
		_, err := New(&mockLLM{}, nil, impact.DefaultRates(), schemas.GenerationOptions{}, zap.NewNop())
		require.NoError(t, err)
	})
}

func TestRunProducesScoredResult(t *testing.T) {
	llm := &mockLLM{response: "```json\n" + `[
		{"cwe_id":"CWE-89","title":"SQL Injection","location":"db.py:10","description":"d","remediation":"r"},
		{"cwe_id":"cwe-89","title":"SQL Injection again","location":" DB.PY:10 "},
		{"cwe_id":"CWE-676","title":"eval use","location":"app.py:4"}
	]` + "\n```"}
	store := &mockStore{}
	a := newTestAuditor(t, llm, store)

	result, err := a.Run(context.Background(), "print(1)", "python snippet")
	require.NoError(t, err)

	// Duplicate CWE-89/db.py collapses; two findings remain.
	require.Len(t, result.Vulnerabilities, 2)
	assert.Equal(t, schemas.SeverityCritical, result.Vulnerabilities[0].Severity)
	assert.Equal(t, schemas.SeverityLow, result.Vulnerabilities[1].Severity)

	// 100 - 25 (critical) - 3 (low).
	assert.Equal(t, 72, result.SecurityScore)
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.Timestamp.IsZero())

	b := result.DetailedImpact.Breakdown
	assert.Equal(t, b.FixCost+b.Downtime+b.RegulatoryFines+b.Reputation, result.DetailedImpact.TotalINR)

	// The prompt carries the caller's context label and the code.
	assert.Contains(t, llm.lastReq.UserPrompt, "python snippet")
	assert.Contains(t, llm.lastReq.UserPrompt, "print(1)")
	assert.NotEmpty(t, llm.lastReq.SystemPrompt)

	// Result was persisted.
	require.Len(t, store.saved, 1)
	assert.Equal(t, result.ID, store.saved[0].ID)
}

func TestRunSubstitutesSentinelOnUnparseableOutput(t *testing.T) {
	llm := &mockLLM{response: "I am sorry, I cannot audit this code."}
	a := newTestAuditor(t, llm, nil)

	result, err := a.Run(context.Background(), "code", "code snippet")
	require.NoError(t, err)

	require.Len(t, result.Vulnerabilities, 1)
	assert.Equal(t, "Analysis Error", result.Vulnerabilities[0].Title)
	assert.Equal(t, schemas.SeverityLow, result.Vulnerabilities[0].Severity)
	assert.Equal(t, 97, result.SecurityScore)
}

func TestRunNullOutputSubstitutesSentinel(t *testing.T) {
	// A bare null is not a findings array; it must degrade to the diagnostic
	// record instead of reporting a clean 100.
	llm := &mockLLM{response: "null"}
	a := newTestAuditor(t, llm, nil)

	result, err := a.Run(context.Background(), "code", "code snippet")
	require.NoError(t, err)

	require.Len(t, result.Vulnerabilities, 1)
	assert.Equal(t, "Analysis Error", result.Vulnerabilities[0].Title)
	assert.Equal(t, 97, result.SecurityScore)
}

func TestRunEmptyFindingsScoresPerfect(t *testing.T) {
	llm := &mockLLM{response: "[]"}
	a := newTestAuditor(t, llm, nil)

	result, err := a.Run(context.Background(), "code", "code snippet")
	require.NoError(t, err)
	assert.Empty(t, result.Vulnerabilities)
	assert.Equal(t, 100, result.SecurityScore)
	assert.Equal(t, 0, result.DetailedImpact.TotalINR)
}

func TestRunPropagatesProviderErrors(t *testing.T) {
	provErr := &schemas.ProviderError{Provider: "groq", Status: 429, Err: errors.New("rate limited")}
	llm := &mockLLM{err: provErr}
	a := newTestAuditor(t, llm, nil)

	_, err := a.Run(context.Background(), "code", "code snippet")
	require.Error(t, err)

	var pe *schemas.ProviderError
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "AI analysis failed")
}

func TestRunSurvivesStoreFailure(t *testing.T) {
	llm := &mockLLM{response: "[]"}
	store := &mockStore{err: errors.New("connection refused")}
	a := newTestAuditor(t, llm, store)

	result, err := a.Run(context.Background(), "code", "code snippet")
	require.NoError(t, err)
	assert.Equal(t, 100, result.SecurityScore)
}
