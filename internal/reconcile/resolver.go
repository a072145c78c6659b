// Package reconcile moves state between the local replica and the remote
// store: the pusher drains the outbox, the puller merges remote records, and
// the resolver decides every local/remote conflict.
package reconcile

import (
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/store"
)

// Side names the copy that won a conflict.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

// Resolve returns whichever of local and remote is authoritative. It never
// merges fields and never mutates its inputs.
//
// Identical updated_at values go to remote. A local trainer is never
// demoted by a remote copy. Otherwise the later updated_at wins.
func Resolve[E domain.Entity](local, remote E) E {
	if pick(local, remote) == SideRemote {
		return remote
	}
	return local
}

func pick(local, remote domain.Entity) Side {
	if local.Stamp() == remote.Stamp() {
		return SideRemote
	}
	if lr, ok := local.(domain.RoleBearer); ok {
		if rr, ok := remote.(domain.RoleBearer); ok {
			if lr.EntityRole() == domain.RoleTrainer && rr.EntityRole() != domain.RoleTrainer {
				return SideLocal
			}
		}
	}
	if later(local.Stamp(), remote.Stamp()) {
		return SideLocal
	}
	return SideRemote
}

// later reports whether a is strictly after b. Both are compared as instants
// when they parse as RFC 3339, otherwise as strings.
func later(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}

// ResolveRecord applies Resolve to two stored copies of the same row of t
// and returns the winning record unchanged.
func ResolveRecord(t domain.Table, local, remote store.Record) (store.Record, Side, error) {
	re, err := domain.Decode(t, remote.Data)
	if err != nil {
		return store.Record{}, "", fmt.Errorf("remote %s %s: %w", t, remote.ID, err)
	}
	le, err := domain.Decode(t, local.Data)
	if err != nil {
		// An undecodable local copy cannot win.
		return remote, SideRemote, nil
	}
	if pick(le, re) == SideRemote {
		return remote, SideRemote, nil
	}
	return local, SideLocal, nil
}
