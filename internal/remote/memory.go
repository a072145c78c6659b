package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/alexanderramin/cadence/internal/domain"
)

// Call records one operation received by a Memory store.
type Call struct {
	Op    string
	Table domain.Table
	ID    string
}

// Memory is an in-process Store. It backs tests and the offline demo mode and
// supports failure injection per record id and per table.
type Memory struct {
	mu         sync.Mutex
	tables     map[domain.Table]map[string]json.RawMessage
	available  bool
	unreachErr error
	failWrite  map[string]error
	failSelect map[domain.Table]error
	calls      []Call
}

var _ Store = (*Memory)(nil)

// NewMemory returns an available, reachable, empty store.
func NewMemory() *Memory {
	return &Memory{
		tables:     make(map[domain.Table]map[string]json.RawMessage),
		available:  true,
		failWrite:  make(map[string]error),
		failSelect: make(map[domain.Table]error),
	}
}

// SetAvailable toggles whether the store reports a configured endpoint.
func (m *Memory) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

// SetUnreachable makes Ping fail with err; nil restores reachability.
func (m *Memory) SetUnreachable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unreachErr = err
}

// FailWrite makes every upsert or delete of the record id fail with err.
// A nil err clears the failure.
func (m *Memory) FailWrite(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failWrite, id)
		return
	}
	m.failWrite[id] = err
}

// FailSelect makes SelectAll on t fail with err. A nil err clears it.
func (m *Memory) FailSelect(t domain.Table, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failSelect, t)
		return
	}
	m.failSelect[t] = err
}

// Seed stores records directly, bypassing failure injection and the call log.
func (m *Memory) Seed(t domain.Table, records ...json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		id := domain.PayloadID(r)
		if id == "" {
			return fmt.Errorf("seed %s: record has no id", t)
		}
		m.put(t, id, r)
	}
	return nil
}

// Record returns the stored record for id, if any.
func (m *Memory) Record(t domain.Table, id string) (json.RawMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.tables[t][id]
	return r, ok
}

// Len returns how many records t holds.
func (m *Memory) Len(t domain.Table) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[t])
}

// Calls returns a copy of the operation log in arrival order.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Memory) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return ErrUnavailable
	}
	return m.unreachErr
}

func (m *Memory) Upsert(ctx context.Context, t domain.Table, record json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := domain.PayloadID(record)
	m.calls = append(m.calls, Call{Op: "upsert", Table: t, ID: id})
	if err := m.check(t); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("upsert %s: record has no id", t)
	}
	if err := m.failWrite[id]; err != nil {
		return err
	}
	m.put(t, id, record)
	return nil
}

func (m *Memory) Delete(ctx context.Context, t domain.Table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "delete", Table: t, ID: id})
	if err := m.check(t); err != nil {
		return err
	}
	if err := m.failWrite[id]; err != nil {
		return err
	}
	delete(m.tables[t], id)
	return nil
}

func (m *Memory) SelectAll(ctx context.Context, t domain.Table) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "select", Table: t})
	if err := m.check(t); err != nil {
		return nil, err
	}
	if err := m.failSelect[t]; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(m.tables[t]))
	for id := range m.tables[t] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, append(json.RawMessage(nil), m.tables[t][id]...))
	}
	return out, nil
}

func (m *Memory) check(t domain.Table) error {
	if !m.available {
		return ErrUnavailable
	}
	if !t.Valid() {
		return fmt.Errorf("%q: %w", string(t), domain.ErrUnknownTable)
	}
	return nil
}

func (m *Memory) put(t domain.Table, id string, r json.RawMessage) {
	if m.tables[t] == nil {
		m.tables[t] = make(map[string]json.RawMessage)
	}
	m.tables[t][id] = append(json.RawMessage(nil), r...)
}
