package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
)

// Record is one stored row: the entity JSON plus the two columns the sync
// engine needs without decoding it.
type Record struct {
	ID        string
	UpdatedAt string
	Data      json.RawMessage
}

type recordHeader struct {
	ID        string `json:"id"`
	UpdatedAt string `json:"updated_at"`
}

// RecordFromJSON builds a Record from raw entity JSON, lifting id and
// updated_at out of the payload.
func RecordFromJSON(raw json.RawMessage) (Record, error) {
	var h recordHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return Record{}, fmt.Errorf("reading record header: %w", err)
	}
	if h.ID == "" {
		return Record{}, fmt.Errorf("record has no id")
	}
	return Record{ID: h.ID, UpdatedAt: h.UpdatedAt, Data: raw}, nil
}

// Store is the keyed local replica. It wraps any DBTX, so the same Store code
// runs on the shared handle or inside a unit of work (see WithTx).
type Store struct {
	db db.DBTX
}

// New creates a Store over the given handle.
func New(handle db.DBTX) *Store {
	return &Store{db: handle}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx db.DBTX) *Store {
	return &Store{db: tx}
}

func (s *Store) Get(ctx context.Context, t domain.Table, id string) (Record, error) {
	if err := checkTable(t); err != nil {
		return Record{}, err
	}
	query := fmt.Sprintf(`SELECT id, updated_at, data FROM %s WHERE id = ?`, t)
	var rec Record
	var data string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.UpdatedAt, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%s %s: %w", t, id, ErrNotFound)
		}
		return Record{}, fault("get", t, err)
	}
	rec.Data = json.RawMessage(data)
	return rec, nil
}

// Put inserts or replaces the record by id. The last Put physically wins;
// conflict decisions belong to the caller.
func (s *Store) Put(ctx context.Context, t domain.Table, rec Record) error {
	if err := checkTable(t); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("put %s: record id is required", t)
	}
	if !json.Valid(rec.Data) {
		return fmt.Errorf("put %s %s: record data is not valid JSON", t, rec.ID)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, updated_at, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, data = excluded.data`, t)
	if _, err := s.db.ExecContext(ctx, query, rec.ID, rec.UpdatedAt, string(rec.Data)); err != nil {
		return fault("put", t, err)
	}
	return nil
}

// Delete removes the record. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, t domain.Table, id string) error {
	if err := checkTable(t); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fault("delete", t, err)
	}
	return nil
}

// QueryByIndex returns every record whose indexed field equals value,
// ordered by id. Only fields declared by the table's index set are accepted.
func (s *Store) QueryByIndex(ctx context.Context, t domain.Table, field string, value any) ([]Record, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	if !t.HasIndex(field) {
		return nil, fmt.Errorf("%s.%s: %w", t, field, ErrNoIndex)
	}
	// json_extract yields 1/0 for JSON booleans.
	if b, ok := value.(bool); ok {
		value = boolToInt(b)
	}
	query := fmt.Sprintf(`SELECT id, updated_at, data FROM %s
		WHERE json_extract(data, '$.%s') = ? ORDER BY id`, t, field)
	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fault("query", t, err)
	}
	return scanRecords(rows, t)
}

// List returns every record of the table ordered by id.
func (s *Store) List(ctx context.Context, t domain.Table) ([]Record, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, updated_at, data FROM %s ORDER BY id`, t))
	if err != nil {
		return nil, fault("list", t, err)
	}
	return scanRecords(rows, t)
}

func scanRecords(rows *sql.Rows, t domain.Table) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var data string
		if err := rows.Scan(&rec.ID, &rec.UpdatedAt, &data); err != nil {
			return nil, fault("scan", t, err)
		}
		rec.Data = json.RawMessage(data)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("iterate", t, err)
	}
	return out, nil
}

// GetMeta reads a sync bookkeeping value. ok is false when the key is unset.
func (s *Store) GetMeta(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get meta", "", err)
	}
	return value, true, nil
}

// SetMeta writes a sync bookkeeping value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fault("set meta", "", err)
	}
	return nil
}

func checkTable(t domain.Table) error {
	if !t.Valid() {
		return fmt.Errorf("%q: %w", string(t), domain.ErrUnknownTable)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
