// Package repository persists bills, budgets, vendor history, and
// compliance records behind narrow per-aggregate interfaces. It speaks two
// dialects: PostgreSQL through pgx for deployments, and embedded SQLite for
// local runs and tests. Queries are written with ? placeholders and rebound
// for PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/buildsure/bill-verifier/internal/common"
)

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// DB wraps the sql handle with its dialect so repositories can rebind
// placeholders. pool is non-nil only for PostgreSQL.
type DB struct {
	*sql.DB
	dialect string
	pool    *pgxpool.Pool
}

// Open connects to the database named by the DSN: postgres:// URLs go
// through a pgx pool wrapped as *sql.DB, anything else is treated as an
// embedded SQLite path.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to parse database config", "error", err)
			return nil, err
		}
		pc.MaxConns = cfg.MaxConns
		pc.MinConns = cfg.MinConns
		pc.MaxConnLifetime = cfg.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		pc.ConnConfig.RuntimeParams["application_name"] = "bill-verifier"

		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}

		logger.Info("successfully connected to database", "dialect", dialectPostgres)
		return &DB{DB: stdlib.OpenDBFromPool(pool), dialect: dialectPostgres, pool: pool}, nil
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	logger.Info("successfully connected to database", "dialect", dialectSQLite)
	return &DB{DB: db, dialect: dialectSQLite}, nil
}

// Close closes the database connections gracefully.
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := d.DB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.PingContext(ctx)
}

// rebind converts ? placeholders to $1..$N for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		tenant TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		status TEXT NOT NULL,
		parsed TEXT,
		result TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_project ON bills (project)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		project_id TEXT PRIMARY KEY,
		total_budget DOUBLE PRECISION NOT NULL,
		allocated TEXT NOT NULL,
		spent TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_updated TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS budget_alerts (
		alert_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		category TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		message TEXT NOT NULL,
		percentage_used DOUBLE PRECISION NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_budget_alerts_project ON budget_alerts (project_id)`,
	`CREATE TABLE IF NOT EXISTS vendor_transactions (
		transaction_id TEXT PRIMARY KEY,
		vendor_name TEXT NOT NULL,
		project_id TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		transaction_date TEXT NOT NULL,
		payment_date TEXT,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		quality_rating INTEGER,
		delivery_rating INTEGER,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vendor_txns_vendor ON vendor_transactions (vendor_name)`,
	`CREATE TABLE IF NOT EXISTS compliance_rules (
		rule_id TEXT PRIMARY KEY,
		rule_name TEXT NOT NULL,
		regulation TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL,
		kind TEXT NOT NULL,
		parameters TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_violations (
		violation_id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		rule_name TEXT NOT NULL,
		severity TEXT NOT NULL,
		description TEXT NOT NULL,
		detected_date TEXT NOT NULL,
		resolved_date TEXT,
		status TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '{}',
		remediation_notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_checks (
		check_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		check_date TEXT NOT NULL,
		check_type TEXT NOT NULL,
		status TEXT NOT NULL,
		violations_found TEXT NOT NULL DEFAULT '[]',
		summary TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate applies the schema. Statements are idempotent; there is no
// version table.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Timestamps are stored as RFC 3339 text so both dialects read them back
// identically.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
