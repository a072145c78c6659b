package orchestrator

import (
	"slices"
	"sync"
	"time"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// Snapshot is the sync state shown to users.
type Snapshot struct {
	Status   Status     `json:"status"`
	Error    string     `json:"error,omitempty"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Pending  int        `json:"pending"`
}

// StatusStore holds the process-wide Snapshot and notifies subscribers on
// every change. Reads are advisory; nothing is transactional here.
type StatusStore struct {
	mu     sync.RWMutex
	snap   Snapshot
	nextID uint64
	subs   map[uint64]func(Snapshot)

	// notifyMu keeps notifications in update order.
	notifyMu sync.Mutex
}

func NewStatusStore(initial Snapshot) *StatusStore {
	if initial.Status == "" {
		initial.Status = StatusIdle
	}
	return &StatusStore{snap: initial, subs: make(map[uint64]func(Snapshot))}
}

func (s *StatusStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Update applies fn to the current snapshot and notifies subscribers when
// the result differs.
func (s *StatusStore) Update(fn func(*Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	before := s.snap
	fn(&s.snap)
	after := s.snap
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.subs[id])
	}
	s.mu.Unlock()

	if equal(before, after) {
		return
	}
	for _, h := range handlers {
		h(after)
	}
}

// Subscribe registers fn for future snapshots.
func (s *StatusStore) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func equal(a, b Snapshot) bool {
	if a.Status != b.Status || a.Error != b.Error || a.Pending != b.Pending {
		return false
	}
	if a.LastSync == nil || b.LastSync == nil {
		return a.LastSync == b.LastSync
	}
	return a.LastSync.Equal(*b.LastSync)
}
