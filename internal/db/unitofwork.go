package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UnitOfWork runs fn inside one transaction. Stores and queues built from the
// DBTX it hands out commit or roll back together.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

type hooksKey struct{}

type hooks struct {
	fns []func()
}

// AfterCommit registers fn to run once the transaction carried by ctx has
// committed. Outside a unit of work fn runs immediately. Hooks of a rolled
// back transaction are discarded.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*hooks)
	if !ok {
		fn()
		return
	}
	h.fns = append(h.fns, fn)
}

// InTx reports whether ctx belongs to an open unit of work.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*hooks)
	return ok
}

// SQLiteUnitOfWork implements UnitOfWork over database/sql.
type SQLiteUnitOfWork struct {
	db *sql.DB
	// wrap, when set, decorates the transaction before fn sees it.
	wrap func(DBTX) DBTX
}

func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

// WithWrapper returns a copy whose transactions are passed through wrap.
func (u *SQLiteUnitOfWork) WithWrapper(wrap func(DBTX) DBTX) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: u.db, wrap: wrap}
}

func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	if InTx(ctx) {
		return errors.New("nested unit of work")
	}
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	h := &hooks{}
	var conn DBTX = tx
	if u.wrap != nil {
		conn = u.wrap(tx)
	}
	if err := fn(context.WithValue(ctx, hooksKey{}, h), conn); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	for _, fn := range h.fns {
		fn()
	}
	return nil
}
