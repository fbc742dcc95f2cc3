// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditkit/siteaudit/internal/audit"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrReportNotFound is returned when no report exists for an audit ID.
var ErrReportNotFound = errors.New("report not found")

// ReportStoreConfig controls the Postgres connection pool used for audit reports.
type ReportStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// ReportStore persists finished audit reports as JSONB rows keyed by audit ID.
type ReportStore struct {
	pool  pgPool
	table string
}

// NewReportStore creates a Postgres-backed ReportStore using the provided config.
func NewReportStore(ctx context.Context, cfg ReportStoreConfig) (*ReportStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "audit_reports"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ReportStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewReportStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewReportStoreWithPool(pool pgPool, table string) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "audit_reports"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ReportStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveReport upserts the report row for an audit. Retried jobs overwrite
// their previous report.
func (s *ReportStore) SaveReport(ctx context.Context, auditID string, report audit.Report) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("report store is not configured")
	}
	if auditID == "" {
		return fmt.Errorf("audit id is required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	audit_id,
	root_url,
	pages_analyzed,
	pages_failed,
	total_issues,
	report,
	saved_at
) VALUES (
	$1,$2,$3,$4,$5,$6,now()
)
ON CONFLICT (audit_id) DO UPDATE SET
	root_url = EXCLUDED.root_url,
	pages_analyzed = EXCLUDED.pages_analyzed,
	pages_failed = EXCLUDED.pages_failed,
	total_issues = EXCLUDED.total_issues,
	report = EXCLUDED.report,
	saved_at = EXCLUDED.saved_at`, s.table)

	args := []any{
		auditID,
		report.URL,
		report.PagesAnalyzed,
		len(report.FailedPages),
		report.TotalIssues,
		payload,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport loads the report for an audit ID.
func (s *ReportStore) GetReport(ctx context.Context, auditID string) (audit.Report, error) {
	if s == nil || s.pool == nil {
		return audit.Report{}, fmt.Errorf("report store is not configured")
	}
	query := fmt.Sprintf(`SELECT report FROM %s WHERE audit_id = $1`, s.table)

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, auditID).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, auditID)
		}
		return audit.Report{}, fmt.Errorf("query report: %w", err)
	}
	var report audit.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return audit.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}
