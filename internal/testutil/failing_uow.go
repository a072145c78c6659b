package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/cadence/internal/db"
)

// FailOnNthExecUoW fails the FailOn-th ExecContext (1-based) of each
// transaction with Err. Reads are not counted. Every local put is two execs,
// the record and then its outbox row, so an even FailOn hits the queue insert.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Err    error
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	uow := db.NewSQLiteUnitOfWork(u.DB).WithWrapper(func(tx db.DBTX) db.DBTX {
		return &execCounter{DBTX: tx, failOn: u.FailOn, err: u.Err}
	})
	return uow.WithinTx(ctx, fn)
}

type execCounter struct {
	db.DBTX
	n      atomic.Int32
	failOn int32
	err    error
}

func (c *execCounter) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.n.Add(1) == c.failOn {
		return nil, c.err
	}
	return c.DBTX.ExecContext(ctx, query, args...)
}
