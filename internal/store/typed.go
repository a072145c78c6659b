package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/cadence/internal/domain"
)

// RecordOf encodes a typed entity into a Record.
func RecordOf(e domain.Entity) (Record, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encoding %s %s: %w", e.EntityTable(), e.EntityID(), err)
	}
	return Record{ID: e.EntityID(), UpdatedAt: e.Stamp(), Data: data}, nil
}

// Save writes a typed entity to its table.
func Save(ctx context.Context, s *Store, e domain.Entity) (Record, error) {
	rec, err := RecordOf(e)
	if err != nil {
		return Record{}, err
	}
	if err := s.Put(ctx, e.EntityTable(), rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Load reads and decodes one entity.
func Load[E domain.Entity](ctx context.Context, s *Store, t domain.Table, id string) (E, error) {
	var zero E
	rec, err := s.Get(ctx, t, id)
	if err != nil {
		return zero, err
	}
	return decodeAs[E](t, rec)
}

// Query decodes every record matched by QueryByIndex.
func Query[E domain.Entity](ctx context.Context, s *Store, t domain.Table, field string, value any) ([]E, error) {
	recs, err := s.QueryByIndex(ctx, t, field, value)
	if err != nil {
		return nil, err
	}
	return decodeAll[E](t, recs)
}

// All decodes every record of the table.
func All[E domain.Entity](ctx context.Context, s *Store, t domain.Table) ([]E, error) {
	recs, err := s.List(ctx, t)
	if err != nil {
		return nil, err
	}
	return decodeAll[E](t, recs)
}

func decodeAll[E domain.Entity](t domain.Table, recs []Record) ([]E, error) {
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		e, err := decodeAs[E](t, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeAs[E domain.Entity](t domain.Table, rec Record) (E, error) {
	var zero E
	ent, err := domain.Decode(t, rec.Data)
	if err != nil {
		return zero, err
	}
	typed, ok := ent.(E)
	if !ok {
		return zero, fmt.Errorf("%s record %s does not decode to %T", t, rec.ID, zero)
	}
	return typed, nil
}
