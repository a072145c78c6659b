package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Replays include the ALTER TABLE that must be tolerated.
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"outbox", "sync_meta"}
	for _, tbl := range domain.SyncTables {
		expected = append(expected, string(tbl))
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesDeclaredIndexes(t *testing.T) {
	db := openTestDB(t)

	for _, tbl := range domain.SyncTables {
		for _, field := range tbl.Indexes() {
			var name string
			idx := IndexName(tbl, field)
			err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
			require.NoError(t, err, "index %s should exist", idx)
		}
	}
}

func TestMigrate_OutboxHasLastError(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO outbox (id, table_name, operation, payload, created_at) VALUES ('o1', 'users', 'insert', '{}', 1)`)
	require.NoError(t, err)

	var lastErr string
	require.NoError(t, db.QueryRow(`SELECT last_error FROM outbox WHERE id = 'o1'`).Scan(&lastErr))
	assert.Empty(t, lastErr)
}

func TestMigrate_RejectsInvalidJSON(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO users (id, updated_at, data) VALUES ('u1', 'x', 'not json')`)
	assert.Error(t, err)
}

func TestOpenDB_FileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cadence.db")

	first, err := OpenDB(path)
	require.NoError(t, err)
	_, err = first.Exec(`INSERT INTO sync_meta (key, value) VALUES ('k', 'v')`)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenDB(path)
	require.NoError(t, err)
	defer second.Close()

	var v string
	require.NoError(t, second.QueryRow(`SELECT value FROM sync_meta WHERE key = 'k'`).Scan(&v))
	assert.Equal(t, "v", v)
}
