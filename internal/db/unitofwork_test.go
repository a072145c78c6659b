package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUoW(t *testing.T) (*sql.DB, *db.SQLiteUnitOfWork) {
	t.Helper()
	database, err := db.OpenDB(db.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database, db.NewSQLiteUnitOfWork(database)
}

func insertUser(ctx context.Context, tx db.DBTX, id string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, updated_at, data) VALUES (?, '2024-01-01T00:00:00Z', '{}')`, id)
	return err
}

func userExists(t *testing.T, database *sql.DB, id string) bool {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n))
	return n == 1
}

func TestWithinTx_CommitRunsHooks(t *testing.T) {
	database, uow := openUoW(t)
	var fired []string

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		db.AfterCommit(ctx, func() { fired = append(fired, "first") })
		if err := insertUser(ctx, tx, "u1"); err != nil {
			return err
		}
		assert.Empty(t, fired, "hooks wait for commit")
		db.AfterCommit(ctx, func() { fired = append(fired, "second") })
		return nil
	})
	require.NoError(t, err)

	assert.True(t, userExists(t, database, "u1"))
	assert.Equal(t, []string{"first", "second"}, fired)
}

func TestWithinTx_RollbackDropsHooks(t *testing.T) {
	database, uow := openUoW(t)
	fired := false

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		db.AfterCommit(ctx, func() { fired = true })
		if err := insertUser(ctx, tx, "u2"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	assert.False(t, userExists(t, database, "u2"))
	assert.False(t, fired)
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	database, uow := openUoW(t)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
			_ = insertUser(ctx, tx, "u3")
			panic("boom")
		})
	})
	assert.False(t, userExists(t, database, "u3"))
}

func TestWithinTx_RejectsNesting(t *testing.T) {
	_, uow := openUoW(t)

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		assert.True(t, db.InTx(ctx))
		return uow.WithinTx(ctx, func(context.Context, db.DBTX) error { return nil })
	})
	require.ErrorContains(t, err, "nested")
}

func TestAfterCommit_OutsideTxRunsNow(t *testing.T) {
	fired := false
	db.AfterCommit(context.Background(), func() { fired = true })
	assert.True(t, fired)
	assert.False(t, db.InTx(context.Background()))
}

type readOnly struct{ db.DBTX }

func (readOnly) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("read only")
}

func TestWithWrapper_DecoratesTransaction(t *testing.T) {
	database, uow := openUoW(t)
	wrapped := uow.WithWrapper(func(tx db.DBTX) db.DBTX { return readOnly{tx} })

	err := wrapped.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return insertUser(ctx, tx, "u4")
	})
	require.EqualError(t, err, "read only")
	assert.False(t, userExists(t, database, "u4"))

	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context, tx db.DBTX) error {
		return insertUser(ctx, tx, "u4")
	}), "the original is left undecorated")
	assert.True(t, userExists(t, database, "u4"))
}
