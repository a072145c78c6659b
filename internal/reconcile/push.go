package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/charmbracelet/log"
)

// ErrMissingID is recorded against a delete entry whose payload has no id.
var ErrMissingID = errors.New("delete payload has no id")

// OnlineChecker is the synchronous connectivity read both reconcilers use as
// their precondition.
type OnlineChecker interface {
	Online() bool
}

// Pusher applies outbox entries to the remote store.
type Pusher struct {
	queue           *outbox.Queue
	remote          remote.Store
	online          OnlineChecker
	deadLetterAfter int
	log             *log.Logger
}

type PushOption func(*Pusher)

// WithDeadLetterAfter sets the retry count at which an entry is reported as
// dead. Zero disables the warning. Entries are never dropped either way.
func WithDeadLetterAfter(n int) PushOption {
	return func(p *Pusher) { p.deadLetterAfter = n }
}

func WithPushLogger(l *log.Logger) PushOption {
	return func(p *Pusher) { p.log = l }
}

func NewPusher(q *outbox.Queue, r remote.Store, online OnlineChecker, opts ...PushOption) *Pusher {
	p := &Pusher{
		queue:           q,
		remote:          r,
		online:          online,
		deadLetterAfter: 10,
		log:             logger.With("push"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Push drains the outbox snapshot and applies each entry in order. It returns
// how many entries were applied and removed. A rejected entry keeps its place
// with one more retry and does not stop the run. Errors are returned only for
// local storage faults and cancellation.
func (p *Pusher) Push(ctx context.Context) (int, error) {
	if !p.online.Online() || !p.remote.Available() {
		return 0, nil
	}

	entries, err := p.queue.Drain(ctx)
	if err != nil {
		return 0, fmt.Errorf("draining outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	applied := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		err := p.apply(ctx, e)
		if errors.Is(err, remote.ErrUnavailable) {
			// Lost the endpoint mid-run; the rest waits for the next cycle.
			p.log.Warn("remote became unavailable during push", "remaining", len(entries)-applied)
			return applied, nil
		}
		if err != nil {
			if rerr := p.queue.IncrementRetry(ctx, e.ID, err); rerr != nil {
				return applied, fmt.Errorf("recording retry for %s: %w", e.ID, rerr)
			}
			retries := e.Retries + 1
			p.log.Warn("push rejected", "table", e.Table, "op", e.Operation, "entry", e.ID, "retries", retries, "err", err)
			if p.deadLetterAfter > 0 && retries == p.deadLetterAfter {
				p.log.Error("outbox entry reached dead-letter threshold", "entry", e.ID, "table", e.Table, "retries", retries)
			}
			continue
		}

		if err := p.queue.Remove(ctx, e.ID); err != nil {
			return applied, fmt.Errorf("removing pushed entry %s: %w", e.ID, err)
		}
		applied++
	}

	p.log.Debug("push finished", "applied", applied, "drained", len(entries))
	return applied, nil
}

func (p *Pusher) apply(ctx context.Context, e domain.OutboxEntry) error {
	switch e.Operation {
	case domain.OpInsert, domain.OpUpdate:
		return p.remote.Upsert(ctx, e.Table, e.Payload)
	case domain.OpDelete:
		id := domain.PayloadID(e.Payload)
		if id == "" {
			return ErrMissingID
		}
		return p.remote.Delete(ctx, e.Table, id)
	default:
		return fmt.Errorf("unknown operation %q", e.Operation)
	}
}
