// Package store persists finished scan reports to PostgreSQL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// PgxIface abstracts the pgxpool.Pool so tests can substitute a mock.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store provides the PostgreSQL implementation of the ScanStore contract.
type Store struct {
	pool PgxIface
	log  *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scans (
	scan_uuid    TEXT PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	url          TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	duration_ms  BIGINT NOT NULL,
	risk_score   INT NOT NULL,
	risk_level   TEXT NOT NULL,
	tool_version TEXT NOT NULL,
	results      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS scans_user_started_idx ON scans (user_id, started_at DESC);
`

const insertScanSQL = `
INSERT INTO scans
	(scan_uuid, user_id, url, started_at, duration_ms, risk_score, risk_level, tool_version, results, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
`

const recentScansSQL = `
SELECT scan_uuid, url, started_at, risk_score, risk_level, created_at
FROM scans
WHERE user_id = $1
ORDER BY started_at DESC
LIMIT $2
`

// New wraps an existing pool. Use Connect for production wiring.
func New(pool PgxIface, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, log: logger.Named("store")}
}

// Connect opens a pgx pool against the given URL, verifies the connection
// and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(pool, logger)
	if err := s.Init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the scans table when missing.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveScan inserts one finished scan. Callers decide whether a scan should
// be persisted at all; a record without a user ID is rejected here rather
// than silently stored unowned.
func (s *Store) SaveScan(ctx context.Context, rec schemas.ScanRecord) error {
	if rec.UserID == nil {
		return fmt.Errorf("refusing to persist scan %s without a user id", rec.ScanID)
	}

	_, err := s.pool.Exec(ctx, insertScanSQL,
		rec.ScanID,
		*rec.UserID,
		rec.Target,
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
		rec.RiskScore,
		string(rec.RiskLevel),
		rec.ToolVersion,
		rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", rec.ScanID, err)
	}

	s.log.Debug("Scan row inserted", zap.String("scan_id", rec.ScanID))
	return nil
}

// RecentScans lists a user's latest scans, newest first. The LIMIT keeps
// the listing cheap on large histories.
func (s *Store) RecentScans(ctx context.Context, userID int64, limit int) ([]schemas.ScanSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, recentScansSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []schemas.ScanSummary
	for rows.Next() {
		var sum schemas.ScanSummary
		var level string
		if err := rows.Scan(&sum.ScanID, &sum.Target, &sum.StartedAt, &sum.RiskScore, &level, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sum.RiskLevel = schemas.RiskLevel(level)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading scan rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
