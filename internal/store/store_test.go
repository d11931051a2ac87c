package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	s, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return s, mockPool
}

func sampleResult() *schemas.AuditResult {
	cwe := "CWE-89"
	return &schemas.AuditResult{
		ID: uuid.NewString(),
		Vulnerabilities: []schemas.Vulnerability{
			{
				Title:        "SQL Injection",
				Severity:     schemas.SeverityCritical,
				CWEID:        &cwe,
				Location:     "db.py:10",
				SOC2Controls: []string{"CC6.1"},
				DataImpact:   []string{"PII"},
				FixTimeHours: 24,
				Category:     "SQL Injection",
			},
		},
		SecurityScore: 75,
		DetailedImpact: schemas.DetailedImpact{
			Breakdown: schemas.ImpactBreakdown{
				FixCost:         60000,
				Downtime:        200000,
				RegulatoryFines: 250000,
				Reputation:      100000,
			},
			TotalINR: 610000,
		},
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestNew(t *testing.T) {
	t.Run("returns error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	s, mockPool := newMockStore(t)

	mockPool.ExpectExec(flexibleSQLMatcher(createTableSQL)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveResult(t *testing.T) {
	t.Run("inserts serialized result", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		result := sampleResult()

		vulns, err := json.Marshal(result.Vulnerabilities)
		require.NoError(t, err)
		detail, err := json.Marshal(result.DetailedImpact)
		require.NoError(t, err)

		mockPool.ExpectExec(flexibleSQLMatcher(insertResultSQL)).
			WithArgs(result.ID, vulns, result.SecurityScore, detail, result.Timestamp).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, s.SaveResult(context.Background(), result))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("propagates insert failure", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		result := sampleResult()

		mockPool.ExpectExec(flexibleSQLMatcher(insertResultSQL)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		err := s.SaveResult(context.Background(), result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert audit result")
	})
}

func TestGetResult(t *testing.T) {
	t.Run("round trips a stored result", func(t *testing.T) {
		s, mockPool := newMockStore(t)
		result := sampleResult()

		vulns, err := json.Marshal(result.Vulnerabilities)
		require.NoError(t, err)
		detail, err := json.Marshal(result.DetailedImpact)
		require.NoError(t, err)

		rows := pgxmock.NewRows([]string{"id", "vulnerabilities", "security_score", "detailed_impact", "created_at"}).
			AddRow(result.ID, vulns, result.SecurityScore, detail, result.Timestamp)
		mockPool.ExpectQuery(flexibleSQLMatcher(selectResultSQL)).
			WithArgs(result.ID).
			WillReturnRows(rows)

		got, err := s.GetResult(context.Background(), result.ID)
		require.NoError(t, err)
		assert.Equal(t, result.ID, got.ID)
		assert.Equal(t, result.SecurityScore, got.SecurityScore)
		assert.Equal(t, result.Vulnerabilities, got.Vulnerabilities)
		assert.Equal(t, result.DetailedImpact, got.DetailedImpact)
		assert.True(t, result.Timestamp.Equal(got.Timestamp))
	})

	t.Run("missing row maps to ErrResultNotFound", func(t *testing.T) {
		s, mockPool := newMockStore(t)

		mockPool.ExpectQuery(flexibleSQLMatcher(selectResultSQL)).
			WithArgs("missing-id").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.GetResult(context.Background(), "missing-id")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultNotFound)
	})
}
