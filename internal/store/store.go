package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
)

// ErrResultNotFound is returned when no audit result exists for an id.
var ErrResultNotFound = errors.New("audit result not found")

// DBPool abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS audit_results (
    id UUID PRIMARY KEY,
    vulnerabilities JSONB NOT NULL,
    security_score INTEGER NOT NULL,
    detailed_impact JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`

const insertResultSQL = `
INSERT INTO audit_results (id, vulnerabilities, security_score, detailed_impact, created_at)
VALUES ($1, $2, $3, $4, $5);`

const selectResultSQL = `
SELECT id, vulnerabilities, security_score, detailed_impact, created_at
FROM audit_results WHERE id = $1;`

// Store provides a PostgreSQL implementation of schemas.ResultStore.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pgx pool for the given URL and wraps it in a Store.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the audit_results table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveResult inserts one finished audit result. The vulnerability list and
// impact breakdown are stored as JSONB so the record round-trips verbatim.
func (s *Store) SaveResult(ctx context.Context, result *schemas.AuditResult) error {
	vulns, err := json.Marshal(result.Vulnerabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal vulnerabilities: %w", err)
	}
	detail, err := json.Marshal(result.DetailedImpact)
	if err != nil {
		return fmt.Errorf("failed to marshal detailed impact: %w", err)
	}

	_, err = s.pool.Exec(ctx, insertResultSQL,
		result.ID, vulns, result.SecurityScore, detail, result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert audit result: %w", err)
	}

	s.log.Debug("Persisted audit result", zap.String("id", result.ID))
	return nil
}

// GetResult loads one audit result by id.
func (s *Store) GetResult(ctx context.Context, id string) (*schemas.AuditResult, error) {
	var (
		result    schemas.AuditResult
		vulns     []byte
		detail    []byte
		createdAt time.Time
	)

	row := s.pool.QueryRow(ctx, selectResultSQL, id)
	if err := row.Scan(&result.ID, &vulns, &result.SecurityScore, &detail, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrResultNotFound)
		}
		return nil, fmt.Errorf("failed to load audit result: %w", err)
	}

	if err := json.Unmarshal(vulns, &result.Vulnerabilities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vulnerabilities: %w", err)
	}
	if err := json.Unmarshal(detail, &result.DetailedImpact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detailed impact: %w", err)
	}
	result.Timestamp = createdAt
	return &result, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
