package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are idempotent and run in order.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS confirmations (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		tool        TEXT NOT NULL,
		tier        TEXT NOT NULL,
		args        TEXT NOT NULL DEFAULT '{}',
		signature   TEXT NOT NULL DEFAULT '',
		ack_phrase  TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		expires_at  TEXT NOT NULL,
		resolved_at TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_confirmations_session ON confirmations(session_id, created_at)`,

	`CREATE INDEX IF NOT EXISTS idx_confirmations_resolved ON confirmations(resolved_at)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
