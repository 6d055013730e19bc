package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func OpenDB(dsn string) (*sql.DB, error) {
	return openDB("pgx", dsn)
}

func openDB(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the intake tables. The advisory lock serializes
// bootstrap DDL across api/worker startups.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	destination_path TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	document_category TEXT NOT NULL DEFAULT '',
	tier TEXT NOT NULL DEFAULT '',
	asset_id TEXT NOT NULL DEFAULT '',
	asset_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	duplicate_of TEXT NOT NULL DEFAULT '',
	quarantine_reason TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	extension TEXT NOT NULL DEFAULT '',
	sender_email TEXT NOT NULL DEFAULT '',
	subject TEXT NOT NULL DEFAULT '',
	processed_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_outcomes_success_hash
	ON outcomes(content_hash) WHERE status = 'success';
CREATE INDEX IF NOT EXISTS idx_outcomes_tier ON outcomes(tier);
CREATE INDEX IF NOT EXISTS idx_outcomes_processed_at ON outcomes(processed_at DESC);

CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	deal_name TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	folder_path TEXT NOT NULL,
	aliases JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sender_mappings (
	id TEXT PRIMARY KEY,
	sender_email TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	document_types JSONB NOT NULL DEFAULT '[]'::jsonb,
	email_count INTEGER NOT NULL DEFAULT 0,
	last_activity_date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sender_mappings_email ON sender_mappings(sender_email);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
