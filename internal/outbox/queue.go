// Package outbox is the durable log of local writes still to be applied to
// the remote store.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

const entryColumns = `id, table_name, operation, payload, created_at, retries, last_error`

// Queue reads and writes the outbox table. Producers append from any number
// of call sites; the push reconciler is the only consumer.
type Queue struct {
	db    db.DBTX
	clock *Clock
}

// New creates a Queue over handle using the process-wide clock.
func New(handle db.DBTX) *Queue {
	return &Queue{db: handle, clock: defaultClock}
}

// NewWithClock creates a Queue with its own created_at clock.
func NewWithClock(handle db.DBTX, clock *Clock) *Queue {
	return &Queue{db: handle, clock: clock}
}

// WithTx returns a Queue bound to tx sharing this queue's clock. Enqueue on
// the returned Queue commits together with the caller's entity write.
func (q *Queue) WithTx(tx db.DBTX) *Queue {
	return &Queue{db: tx, clock: q.clock}
}

// Enqueue appends entry. Empty ID and zero CreatedAt are assigned here;
// Retries always starts at zero. It never touches the network.
func (q *Queue) Enqueue(ctx context.Context, entry *domain.OutboxEntry) error {
	if !entry.Table.Valid() {
		return fmt.Errorf("enqueue: %q: %w", string(entry.Table), domain.ErrUnknownTable)
	}
	if !domain.ValidOperations[entry.Operation] {
		return fmt.Errorf("enqueue: invalid operation %q", entry.Operation)
	}
	if !json.Valid(entry.Payload) {
		return fmt.Errorf("enqueue: payload is not valid JSON")
	}
	if entry.Operation == domain.OpDelete && domain.PayloadID(entry.Payload) == "" {
		return fmt.Errorf("enqueue: delete payload requires an id")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = q.clock.Next()
	}
	entry.Retries = 0
	entry.LastError = ""

	_, err := q.db.ExecContext(ctx, `INSERT INTO outbox (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, 0, '')`,
		entry.ID, string(entry.Table), string(entry.Operation), string(entry.Payload), entry.CreatedAt)
	if err != nil {
		return &store.Fault{Op: "enqueue", Table: entry.Table, Err: err}
	}
	return nil
}

// EnqueueEntity queues op for e. Insert and update carry the full entity;
// delete carries only {"id": ...}.
func (q *Queue) EnqueueEntity(ctx context.Context, op domain.Operation, e domain.Entity) (*domain.OutboxEntry, error) {
	var payload []byte
	var err error
	if op == domain.OpDelete {
		payload, err = json.Marshal(domain.DeletePayload{ID: e.EntityID()})
	} else {
		payload, err = json.Marshal(e)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding outbox payload: %w", err)
	}
	entry := &domain.OutboxEntry{Table: e.EntityTable(), Operation: op, Payload: payload}
	if err := q.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// EnqueueDelete queues a delete of id from t.
func (q *Queue) EnqueueDelete(ctx context.Context, t domain.Table, id string) (*domain.OutboxEntry, error) {
	payload, err := json.Marshal(domain.DeletePayload{ID: id})
	if err != nil {
		return nil, fmt.Errorf("encoding outbox payload: %w", err)
	}
	entry := &domain.OutboxEntry{Table: t, Operation: domain.OpDelete, Payload: payload}
	if err := q.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Drain returns a snapshot of every pending entry, oldest first. Nothing is
// removed; entries appended after the snapshot wait for the next drain.
func (q *Queue) Drain(ctx context.Context) ([]domain.OutboxEntry, error) {
	return q.list(ctx, `SELECT `+entryColumns+` FROM outbox ORDER BY created_at, rowid`)
}

// DeadLetters lists entries that have failed at least threshold times.
// They stay queued; this is a read-only view for operators.
func (q *Queue) DeadLetters(ctx context.Context, threshold int) ([]domain.OutboxEntry, error) {
	return q.list(ctx, `SELECT `+entryColumns+` FROM outbox WHERE retries >= ? ORDER BY created_at, rowid`, threshold)
}

// Remove deletes the entry. Removing an absent id is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return &store.Fault{Op: "remove outbox entry", Err: err}
	}
	return nil
}

// IncrementRetry bumps the retry counter and records cause as the entry's
// last error. A nil cause leaves the previous message. Unknown ids are a no-op.
func (q *Queue) IncrementRetry(ctx context.Context, id string, cause error) error {
	var err error
	if cause == nil {
		_, err = q.db.ExecContext(ctx, `UPDATE outbox SET retries = retries + 1 WHERE id = ?`, id)
	} else {
		_, err = q.db.ExecContext(ctx, `UPDATE outbox SET retries = retries + 1, last_error = ? WHERE id = ?`, cause.Error(), id)
	}
	if err != nil {
		return &store.Fault{Op: "increment retry", Err: err}
	}
	return nil
}

// Seed feeds the newest pending created_at to the clock, so entries queued
// after a restart still drain after older ones when the wall clock went back.
func (q *Queue) Seed(ctx context.Context) error {
	var newest int64
	if err := q.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM outbox`).Scan(&newest); err != nil {
		return &store.Fault{Op: "seed outbox clock", Err: err}
	}
	q.clock.Observe(newest)
	return nil
}

// Count returns the number of pending entries. Advisory only.
func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, &store.Fault{Op: "count outbox", Err: err}
	}
	return n, nil
}

// PendingIDs returns the distinct entity ids in t that still have queued effects.
func (q *Queue) PendingIDs(ctx context.Context, t domain.Table) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT json_extract(payload, '$.id') FROM outbox
		WHERE table_name = ? AND json_extract(payload, '$.id') IS NOT NULL ORDER BY 1`, string(t))
	if err != nil {
		return nil, &store.Fault{Op: "pending ids", Table: t, Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &store.Fault{Op: "pending ids", Table: t, Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.Fault{Op: "pending ids", Table: t, Err: err}
	}
	return ids, nil
}

func (q *Queue) list(ctx context.Context, query string, args ...any) ([]domain.OutboxEntry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &store.Fault{Op: "read outbox", Err: err}
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.Fault{Op: "read outbox", Err: err}
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	var table, op, payload string
	if err := rows.Scan(&e.ID, &table, &op, &payload, &e.CreatedAt, &e.Retries, &e.LastError); err != nil {
		return e, &store.Fault{Op: "scan outbox entry", Err: err}
	}
	e.Table = domain.Table(table)
	e.Operation = domain.Operation(op)
	e.Payload = json.RawMessage(payload)
	return e, nil
}
