// Package remote defines the generic record store the sync engine reconciles
// against, plus its backends.
package remote

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/alexanderramin/cadence/internal/domain"
)

// ErrUnavailable is returned by every call against an unconfigured endpoint.
// Reconcilers treat it the same as being offline.
var ErrUnavailable = errors.New("remote store unavailable")

// Store is the remote persistence backend seen as a keyed record store.
type Store interface {
	// Available reports synchronously whether an endpoint is configured.
	Available() bool
	// Ping checks that the endpoint is reachable.
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, t domain.Table, record json.RawMessage) error
	Delete(ctx context.Context, t domain.Table, id string) error
	SelectAll(ctx context.Context, t domain.Table) ([]json.RawMessage, error)
}

// Disabled is the sentinel Store for a missing endpoint. It never panics and
// never touches the network.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) Available() bool { return false }

func (Disabled) Ping(context.Context) error { return ErrUnavailable }

func (Disabled) Upsert(context.Context, domain.Table, json.RawMessage) error {
	return ErrUnavailable
}

func (Disabled) Delete(context.Context, domain.Table, string) error { return ErrUnavailable }

func (Disabled) SelectAll(context.Context, domain.Table) ([]json.RawMessage, error) {
	return nil, ErrUnavailable
}
