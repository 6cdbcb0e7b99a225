package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		customer_id TEXT    NOT NULL,
		seq         INTEGER NOT NULL,
		role        TEXT    NOT NULL,
		content     TEXT    NOT NULL DEFAULT '',
		metadata    TEXT    NOT NULL DEFAULT '{}',
		created_at  TEXT    NOT NULL,
		PRIMARY KEY (customer_id, seq)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_customer ON messages(customer_id, seq)`,

	`CREATE TABLE IF NOT EXISTS intents (
		customer_id TEXT    NOT NULL,
		seq         INTEGER NOT NULL,
		type        TEXT    NOT NULL,
		confidence  REAL    NOT NULL DEFAULT 0,
		parameters  TEXT    NOT NULL DEFAULT '{}',
		created_at  TEXT    NOT NULL,
		PRIMARY KEY (customer_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS states (
		customer_id  TEXT NOT NULL PRIMARY KEY,
		phase        TEXT NOT NULL,
		active_order TEXT NOT NULL DEFAULT '',
		data         TEXT NOT NULL DEFAULT '{}',
		updated_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS deliveries (
		delivery_id TEXT NOT NULL PRIMARY KEY,
		received_at TEXT NOT NULL
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

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
