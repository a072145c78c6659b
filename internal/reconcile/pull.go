package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/charmbracelet/log"
)

const defaultMergeWorkers = 8

// Puller fetches every syncable table from the remote store and merges the
// records into the local replica.
type Puller struct {
	store   *store.Store
	remote  remote.Store
	online  OnlineChecker
	feed    *changefeed.Feed
	tables  []domain.Table
	workers int
	log     *log.Logger
}

type PullOption func(*Puller)

// WithTables overrides the table list. Defaults to domain.SyncTables.
func WithTables(tables ...domain.Table) PullOption {
	return func(p *Puller) { p.tables = tables }
}

func WithPullLogger(l *log.Logger) PullOption {
	return func(p *Puller) { p.log = l }
}

// WithMergeWorkers bounds how many record writes of one table run at once.
func WithMergeWorkers(n int) PullOption {
	return func(p *Puller) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPuller creates a Puller. feed may be nil.
func NewPuller(s *store.Store, r remote.Store, online OnlineChecker, feed *changefeed.Feed, opts ...PullOption) *Puller {
	p := &Puller{
		store:   s,
		remote:  r,
		online:  online,
		feed:    feed,
		tables:  domain.SyncTables,
		workers: defaultMergeWorkers,
		log:     logger.With("pull"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Pull returns the number of records merged across all tables. A table whose
// fetch fails is logged and skipped; a record whose write fails is logged and
// not counted. Only cancellation is returned as an error.
func (p *Puller) Pull(ctx context.Context) (int, error) {
	if !p.online.Online() || !p.remote.Available() {
		return 0, nil
	}

	total := 0
	for _, t := range p.tables {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		records, err := p.remote.SelectAll(ctx, t)
		if err != nil {
			p.log.Warn("pull: fetching table failed", "table", t, "err", err)
			continue
		}
		n := p.mergeTable(ctx, t, records)
		if n > 0 {
			p.log.Debug("pull: merged table", "table", t, "records", n)
		}
		total += n
	}
	return total, nil
}

// mergeTable writes every record independently and waits for all of them.
func (p *Puller) mergeTable(ctx context.Context, t domain.Table, records []json.RawMessage) int {
	var (
		merged atomic.Int64
		wg     sync.WaitGroup
		sem    = make(chan struct{}, p.workers)
	)
	for _, raw := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(raw json.RawMessage) {
			defer wg.Done()
			defer func() { <-sem }()
			ok, err := p.mergeRecord(ctx, t, raw)
			if err != nil {
				p.log.Warn("pull: merging record failed", "table", t, "id", domain.PayloadID(raw), "err", err)
				return
			}
			if ok {
				merged.Add(1)
			}
		}(raw)
	}
	wg.Wait()
	return int(merged.Load())
}

// mergeRecord resolves one incoming record against the local copy and
// writes the winner. It reports false for records skipped without error.
func (p *Puller) mergeRecord(ctx context.Context, t domain.Table, raw json.RawMessage) (bool, error) {
	incoming, err := store.RecordFromJSON(raw)
	if err != nil {
		p.log.Warn("pull: skipping remote record", "table", t, "err", err)
		return false, nil
	}

	winner, side := incoming, SideRemote
	local, err := p.store.Get(ctx, t, incoming.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return false, err
	default:
		winner, side, err = ResolveRecord(t, local, incoming)
		if err != nil {
			return false, err
		}
	}

	if err := p.store.Put(ctx, t, winner); err != nil {
		return false, fmt.Errorf("writing merged record: %w", err)
	}
	if side == SideRemote {
		op := domain.OpUpdate
		if local.ID == "" {
			op = domain.OpInsert
		}
		p.feed.Publish(changefeed.Change{Table: t, ID: winner.ID, Operation: op, Source: changefeed.SourcePull})
	}
	return true, nil
}
