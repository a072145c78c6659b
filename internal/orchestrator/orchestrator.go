// Package orchestrator runs push and pull together, reports sync status, and
// schedules runs around connectivity changes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// LastSyncKey is the local meta key holding the last successful sync time.
const LastSyncKey = "last_sync"

type Pusher interface {
	Push(ctx context.Context) (int, error)
}

type Puller interface {
	Pull(ctx context.Context) (int, error)
}

// PendingCounter reports the outbox size.
type PendingCounter interface {
	Count(ctx context.Context) (int, error)
}

// MetaStore persists small key/value state across restarts.
type MetaStore interface {
	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
}

type OnlineChecker interface {
	Online() bool
}

// Result summarizes one full sync.
type Result struct {
	Pushes int `json:"pushes"`
	Pulls  int `json:"pulls"`
	Errors int `json:"errors"`
	// LastRun is when the run finished.
	LastRun time.Time `json:"last_run"`
}

type Orchestrator struct {
	pusher  Pusher
	puller  Puller
	pending PendingCounter
	meta    MetaStore
	online  OnlineChecker
	status  *StatusStore
	flight  singleflight.Group
	log     *log.Logger
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithStatusStore(s *StatusStore) Option {
	return func(o *Orchestrator) { o.status = s }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(p Pusher, pl Puller, pending PendingCounter, meta MetaStore, online OnlineChecker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pusher:  p,
		puller:  pl,
		pending: pending,
		meta:    meta,
		online:  online,
		log:     logger.With("sync"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.status == nil {
		o.status = NewStatusStore(Snapshot{})
	}
	return o
}

func (o *Orchestrator) Status() *StatusStore { return o.status }

// Restore loads the persisted last sync time and the current outbox size
// into the status store.
func (o *Orchestrator) Restore(ctx context.Context) error {
	var last *time.Time
	raw, ok, err := o.meta.GetMeta(ctx, LastSyncKey)
	if err != nil {
		return fmt.Errorf("reading last sync: %w", err)
	}
	if ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			last = &ts
		}
	}
	n, err := o.pending.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting outbox: %w", err)
	}
	online := o.online.Online()
	o.status.Update(func(s *Snapshot) {
		s.LastSync = last
		s.Pending = n
		if !online {
			s.Status = StatusOffline
		}
	})
	return nil
}

// RunFullSync runs push and pull concurrently. Calls that arrive while a run
// is in flight wait for it and share its result.
func (o *Orchestrator) RunFullSync(ctx context.Context) (Result, error) {
	v, err, shared := o.flight.Do("sync", func() (any, error) {
		return o.run(ctx)
	})
	if shared {
		o.log.Debug("joined in-flight sync")
	}
	res, _ := v.(Result)
	return res, err
}

func (o *Orchestrator) run(ctx context.Context) (Result, error) {
	var (
		res              Result
		pushErr, pullErr error
		g                errgroup.Group
	)
	g.Go(func() error {
		res.Pushes, pushErr = guard("push", func() (int, error) { return o.pusher.Push(ctx) })
		return pushErr
	})
	g.Go(func() error {
		res.Pulls, pullErr = guard("pull", func() (int, error) { return o.puller.Pull(ctx) })
		return pullErr
	})
	_ = g.Wait()

	for _, err := range []error{pushErr, pullErr} {
		if err != nil {
			res.Errors++
		}
	}
	res.LastRun = o.now().UTC()
	return res, errors.Join(pushErr, pullErr)
}

// guard turns a panic in fn into an error.
func guard(name string, fn func() (int, error)) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	n, err = fn()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return n, err
}

// SyncNow runs one full sync and keeps the status store current. Offline
// devices only get their status refreshed. The returned error is the same
// one shown in the status.
func (o *Orchestrator) SyncNow(ctx context.Context) (Result, error) {
	if !o.online.Online() {
		n := o.countPending(ctx)
		o.status.Update(func(s *Snapshot) {
			s.Status = StatusOffline
			s.Pending = n
		})
		return Result{}, nil
	}

	o.status.Update(func(s *Snapshot) {
		s.Status = StatusSyncing
		s.Error = ""
	})

	res, err := o.RunFullSync(ctx)
	n := o.countPending(ctx)
	if err != nil {
		o.log.Error("sync failed", "err", err, "pushes", res.Pushes, "pulls", res.Pulls)
		o.status.Update(func(s *Snapshot) {
			s.Status = StatusError
			s.Error = err.Error()
			s.Pending = n
		})
		return res, err
	}

	last := res.LastRun
	if merr := o.meta.SetMeta(ctx, LastSyncKey, last.Format(time.RFC3339Nano)); merr != nil {
		o.log.Warn("saving last sync time", "err", merr)
	}
	o.log.Info("sync finished", "pushes", res.Pushes, "pulls", res.Pulls, "pending", n)
	o.status.Update(func(s *Snapshot) {
		s.Status = StatusIdle
		s.LastSync = &last
		s.Pending = n
	})
	return res, nil
}

func (o *Orchestrator) countPending(ctx context.Context) int {
	n, err := o.pending.Count(ctx)
	if err != nil {
		o.log.Warn("counting outbox", "err", err)
		return o.status.Snapshot().Pending
	}
	return n
}
