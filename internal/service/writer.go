package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
)

// writer is shared by every producer. Each mutation runs in one unit of work
// that writes the local record and then queues its remote effect, so an
// outbox entry never exists without its local write. Changes reach the feed
// only after commit.
type writer struct {
	store *store.Store
	queue *outbox.Queue
	uow   db.UnitOfWork
	feed  *changefeed.Feed
}

func newWriter(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) writer {
	return writer{store: s, queue: q, uow: uow, feed: feed}
}

// txn is the view a mutation gets of one open transaction.
type txn struct {
	ctx   context.Context
	store *store.Store
	queue *outbox.Queue
	feed  *changefeed.Feed
}

func (w writer) within(ctx context.Context, fn func(t *txn) error) error {
	return w.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(&txn{ctx: ctx, store: w.store.WithTx(tx), queue: w.queue.WithTx(tx), feed: w.feed})
	})
}

func (t *txn) publish(c changefeed.Change) {
	db.AfterCommit(t.ctx, func() { t.feed.Publish(c) })
}

// put stamps e, writes it and queues op.
func (t *txn) put(op domain.Operation, e domain.Entity) error {
	e.Touch(domain.Now())
	if _, err := store.Save(t.ctx, t.store, e); err != nil {
		return err
	}
	if _, err := t.queue.EnqueueEntity(t.ctx, op, e); err != nil {
		return err
	}
	t.publish(changefeed.Change{Table: e.EntityTable(), ID: e.EntityID(), Operation: op, Source: changefeed.SourceLocal})
	return nil
}

func (t *txn) remove(tbl domain.Table, id string) error {
	if err := t.store.Delete(t.ctx, tbl, id); err != nil {
		return err
	}
	if _, err := t.queue.EnqueueDelete(t.ctx, tbl, id); err != nil {
		return err
	}
	t.publish(changefeed.Change{Table: tbl, ID: id, Operation: domain.OpDelete, Source: changefeed.SourceLocal})
	return nil
}

// ids returns the ids of tbl's records whose field equals value.
func (t *txn) ids(tbl domain.Table, field string, value any) ([]string, error) {
	recs, err := t.store.QueryByIndex(t.ctx, tbl, field, value)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out, nil
}

// mustExist fails with ErrInvalidInput when the referenced record is missing.
func (t *txn) mustExist(tbl domain.Table, id string) error {
	if _, err := t.store.Get(t.ctx, tbl, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s %q does not exist", ErrInvalidInput, tbl, id)
		}
		return err
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
