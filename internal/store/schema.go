package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the run-history database.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

-- One row per processed ARTRollout file
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    batch_id TEXT NOT NULL,
    file TEXT NOT NULL,
    created_at TEXT NOT NULL,

    -- Settings the run was evaluated with
    mode TEXT NOT NULL,
    category TEXT NOT NULL,
    query_mode TEXT NOT NULL,
    anchor_year INTEGER NOT NULL,
    anchor_month INTEGER NOT NULL,
    tolerance REAL NOT NULL,

    observations INTEGER DEFAULT 0,
    truncated TEXT,  -- JSON array of years dropped for missing lag months
    skipped TEXT,    -- JSON array of years without a baseline
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_batch ON runs(batch_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

-- Aggregated yearly figures
CREATE TABLE IF NOT EXISTS year_summaries (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    infected INTEGER NOT NULL,
    detected INTEGER NOT NULL,
    in_care INTEGER NOT NULL,
    new_diagnosis INTEGER NOT NULL,
    enrolled_in_30 INTEGER NOT NULL,
    suppressed_vl INTEGER NOT NULL,
    PRIMARY KEY (run_id, year)
);

-- Verdicts per year and ratio
CREATE TABLE IF NOT EXISTS year_checks (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    year INTEGER NOT NULL,
    ratio INTEGER NOT NULL,  -- continuum.Ratio
    verdict TEXT NOT NULL,
    value REAL,              -- NULL when the ratio is not finite
    PRIMARY KEY (run_id, year, ratio)
);
`

// InitSchema creates the schema on a fresh database and checks the version
// of an existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// schema_version doesn't exist yet
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}

	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns 0 and an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}
