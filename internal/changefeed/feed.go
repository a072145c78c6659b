// Package changefeed fans out local-store change notifications per table.
package changefeed

import (
	"sync"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
)

// Source tells subscribers who produced a change.
type Source string

const (
	SourceLocal Source = "local"
	SourcePull  Source = "pull"
)

// Change describes one record written to or removed from the local store.
type Change struct {
	Table     domain.Table     `json:"table"`
	ID        string           `json:"id"`
	Operation domain.Operation `json:"operation"`
	Source    Source           `json:"source"`
	At        time.Time        `json:"at"`
}

// Handler receives changes. Handlers run on the publisher's goroutine and
// must not block.
type Handler func(Change)

type subscription struct {
	id      uint64
	handler Handler
}

// Feed is a publish/subscribe channel keyed by table. The zero value is not
// usable; call New.
type Feed struct {
	mu     sync.RWMutex
	nextID uint64
	byTbl  map[domain.Table][]subscription
	all    []subscription
}

func New() *Feed {
	return &Feed{byTbl: make(map[domain.Table][]subscription)}
}

// Subscribe registers h for changes to the given tables, or to every table
// when none are given. The returned func unsubscribes and is safe to call
// more than once.
func (f *Feed) Subscribe(h Handler, tables ...domain.Table) (unsubscribe func()) {
	f.mu.Lock()
	f.nextID++
	sub := subscription{id: f.nextID, handler: h}
	if len(tables) == 0 {
		f.all = append(f.all, sub)
	}
	for _, t := range tables {
		f.byTbl[t] = append(f.byTbl[t], sub)
	}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(sub.id, tables) })
	}
}

func (f *Feed) remove(id uint64, tables []domain.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(tables) == 0 {
		f.all = without(f.all, id)
	}
	for _, t := range tables {
		f.byTbl[t] = without(f.byTbl[t], id)
		if len(f.byTbl[t]) == 0 {
			delete(f.byTbl, t)
		}
	}
}

func without(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish delivers c to the table's subscribers and to catch-all subscribers.
// A nil Feed discards the change.
func (f *Feed) Publish(c Change) {
	if f == nil {
		return
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	f.mu.RLock()
	targets := make([]Handler, 0, len(f.byTbl[c.Table])+len(f.all))
	for _, s := range f.byTbl[c.Table] {
		targets = append(targets, s.handler)
	}
	for _, s := range f.all {
		targets = append(targets, s.handler)
	}
	f.mu.RUnlock()

	for _, h := range targets {
		h(c)
	}
}

// SubscriberCount reports how many handlers would receive a change to t.
func (f *Feed) SubscriberCount(t domain.Table) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.byTbl[t]) + len(f.all)
}
