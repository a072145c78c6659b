package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/remote/migrations"
	"github.com/charmbracelet/log"
	pq "github.com/lib/pq"
)

// SchemaName is the Postgres schema holding the record tables.
const SchemaName = "cadence"

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// Postgres is a Store backed by one JSONB table per syncable table.
type Postgres struct {
	connStr string
	db      *sql.DB
	log     *log.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres prepares a store for connStr. Call Open before use.
func NewPostgres(connStr string) *Postgres {
	return &Postgres{connStr: withSearchPath(connStr), log: logger.With("remote")}
}

// withSearchPath pins search_path to SchemaName unless the caller set one.
func withSearchPath(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return connStr
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", SchemaName)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "search_path") {
			return connStr
		}
	}
	return strings.TrimSpace(connStr) + " search_path=" + SchemaName
}

// hasSSLMode reports whether connStr sets sslmode, in URL or DSN form.
func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(kv[0], "sslmode") {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr parses as a PostgreSQL URI or DSN
// and carries no password. Passwords belong in PGPASSFILE or the keyring.
func ValidateConnString(connStr string) error {
	if strings.TrimSpace(connStr) == "" {
		return fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
		}
		if _, set := u.User.Password(); set {
			return ErrEmbeddedCredentials
		}
		if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
			return fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
		return nil
	}

	for _, pair := range strings.Fields(connStr) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "password") {
			return ErrEmbeddedCredentials
		}
	}
	return nil
}

// Open connects, creates the schema and applies pending migrations.
func (p *Postgres) Open(ctx context.Context) error {
	db, err := sql.Open("postgres", p.connStr)
	if err != nil {
		return fmt.Errorf("opening remote database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(p.connStr) {
			return fmt.Errorf("connecting to remote database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("connecting to remote database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+SchemaName); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}
	p.db = db

	n, err := NewRunner(db, migrations.FS).Apply(ctx, func(msg string) { p.log.Info(msg) })
	if err != nil {
		return fmt.Errorf("running remote migrations: %w", err)
	}
	if n > 0 {
		p.log.Info("remote schema updated", "applied", n)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Available reports whether Open has succeeded.
func (p *Postgres) Available() bool { return p.db != nil }

func (p *Postgres) Ping(ctx context.Context) error {
	if p.db == nil {
		return ErrUnavailable
	}
	return p.db.PingContext(ctx)
}

func (p *Postgres) Upsert(ctx context.Context, t domain.Table, record json.RawMessage) error {
	if err := p.check(t); err != nil {
		return err
	}
	var h struct {
		ID        string `json:"id"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal(record, &h); err != nil {
		return fmt.Errorf("upsert %s: %w", t, err)
	}
	if h.ID == "" {
		return fmt.Errorf("upsert %s: record has no id", t)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, updated_at, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at, data = EXCLUDED.data`, t)
	if _, err := p.db.ExecContext(ctx, query, h.ID, h.UpdatedAt, string(record)); err != nil {
		return fmt.Errorf("upsert %s %s: %w", t, h.ID, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, t domain.Table, id string) error {
	if err := p.check(t); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t), id); err != nil {
		return fmt.Errorf("delete %s %s: %w", t, id, err)
	}
	return nil
}

func (p *Postgres) SelectAll(ctx context.Context, t domain.Table) ([]json.RawMessage, error) {
	if err := p.check(t); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`SELECT data::text FROM %s ORDER BY id`, t))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t, err)
		}
		out = append(out, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t, err)
	}
	return out, nil
}

// SchemaVersion reports the applied remote schema version.
func (p *Postgres) SchemaVersion(ctx context.Context) (int, error) {
	if p.db == nil {
		return 0, ErrUnavailable
	}
	return NewRunner(p.db, migrations.FS).CurrentVersion(ctx)
}

func (p *Postgres) check(t domain.Table) error {
	if p.db == nil {
		return ErrUnavailable
	}
	if !t.Valid() {
		return fmt.Errorf("%q: %w", string(t), domain.ErrUnknownTable)
	}
	return nil
}
