// Package connectivity tracks whether the remote store is reachable.
package connectivity

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Listener is called with the new state on every online/offline transition.
type Listener func(online bool)

// Monitor is the process-wide online flag. Online is a lock-free read so
// reconcilers can use it as a fast precondition.
type Monitor struct {
	online atomic.Bool

	// setMu serializes transitions so listeners observe them in order.
	setMu     sync.Mutex
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
}

func NewMonitor(online bool) *Monitor {
	m := &Monitor{listeners: make(map[uint64]Listener)}
	m.online.Store(online)
	return m
}

func (m *Monitor) Online() bool { return m.online.Load() }

// Set records the current state. Listeners fire only when it changes, on
// the caller's goroutine, and must not call Set themselves.
func (m *Monitor) Set(online bool) {
	m.setMu.Lock()
	defer m.setMu.Unlock()
	if !m.online.CompareAndSwap(!online, online) {
		return
	}
	for _, l := range m.snapshot() {
		l(online)
	}
}

// Subscribe registers l and returns a func that removes it. The returned
// func may be called more than once.
func (m *Monitor) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) snapshot() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.listeners[id])
	}
	return out
}
