package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
)

// Migrate runs all schema migrations. Every statement is idempotent, so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range schemaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// schemaStatements returns the record tables for every syncable table
// followed by the fixed migrations.
func schemaStatements() []string {
	var stmts []string
	for _, t := range domain.SyncTables {
		stmts = append(stmts, recordTableDDL(t)...)
	}
	return append(stmts, migrations...)
}

// recordTableDDL stores each record as canonical JSON with its id and
// updated_at lifted into columns. Secondary attributes are expression indexes.
func recordTableDDL(t domain.Table) []string {
	stmts := []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id         TEXT PRIMARY KEY,
		updated_at TEXT NOT NULL,
		data       TEXT NOT NULL CHECK(json_valid(data))
	)`, t)}
	for _, field := range t.Indexes() {
		stmts = append(stmts, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s(json_extract(data, '$.%s'))`,
			IndexName(t, field), t, field,
		))
	}
	return stmts
}

// IndexName returns the name of the expression index for t.field.
func IndexName(t domain.Table, field string) string {
	return fmt.Sprintf("idx_%s_%s", t, field)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS outbox (
		id         TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		operation  TEXT NOT NULL
		           CHECK(operation IN ('insert','update','delete')),
		payload    TEXT NOT NULL CHECK(json_valid(payload)),
		created_at INTEGER NOT NULL,
		retries    INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_outbox_created ON outbox(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_retries ON outbox(retries)`,

	// v2: per-entry failure reason
	`ALTER TABLE outbox ADD COLUMN last_error TEXT NOT NULL DEFAULT ''`,

	`CREATE TABLE IF NOT EXISTS sync_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}
