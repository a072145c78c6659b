package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testutil.NewTestDB(t))
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	u := testutil.NewTestUser("Ana", testutil.WithRole(domain.RoleTrainer))
	_, err := store.Save(ctx, s, u)
	require.NoError(t, err)

	got, err := store.Load[*domain.User](ctx, s, domain.TableUsers, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestStore_PutReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	u := testutil.NewTestUser("Ana")
	_, err := store.Save(ctx, s, u)
	require.NoError(t, err)

	u.Name = "Ana Maria"
	u.UpdatedAt = "2024-02-01T00:00:00.000Z"
	_, err = store.Save(ctx, s, u)
	require.NoError(t, err)

	rec, err := s.Get(ctx, domain.TableUsers, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01T00:00:00.000Z", rec.UpdatedAt)

	all, err := s.List(ctx, domain.TableUsers)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_GetMissing(t *testing.T) {
	s := setupStore(t)

	_, err := s.Get(context.Background(), domain.TableSessions, "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.False(t, errors.Is(err, store.ErrStorageFault))
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	m := testutil.NewTestMacrocycle("Season")
	_, err := store.Save(ctx, s, m)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, domain.TableMacrocycles, m.ID))
	require.NoError(t, s.Delete(ctx, domain.TableMacrocycles, m.ID))

	_, err = s.Get(ctx, domain.TableMacrocycles, m.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStore_QueryByIndex(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	macro := testutil.NewTestMacrocycle("Season")
	other := testutil.NewTestMacrocycle("Other")
	for _, m := range []*domain.Mesocycle{
		testutil.NewTestMesocycle(macro.ID, "Base", 0),
		testutil.NewTestMesocycle(macro.ID, "Build", 1),
		testutil.NewTestMesocycle(other.ID, "Peak", 0),
	} {
		_, err := store.Save(ctx, s, m)
		require.NoError(t, err)
	}

	got, err := store.Query[*domain.Mesocycle](ctx, s, domain.TableMesocycles, "macrocycle_id", macro.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, macro.ID, m.MacrocycleID)
	}
}

func TestStore_QueryByBooleanIndex(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	for i, active := range []bool{true, false, false} {
		a := &domain.PlanningAssignment{
			ID: string(rune('a' + i)), UserID: "u1", MacrocycleID: "m", IsActive: active,
			UpdatedAt: testutil.Stamp,
		}
		_, err := store.Save(ctx, s, a)
		require.NoError(t, err)
	}

	active, err := s.QueryByIndex(ctx, domain.TablePlanningAssignments, "is_active", true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	inactive, err := s.QueryByIndex(ctx, domain.TablePlanningAssignments, "is_active", false)
	require.NoError(t, err)
	assert.Len(t, inactive, 2)
}

func TestStore_QueryRejectsUndeclaredField(t *testing.T) {
	s := setupStore(t)

	_, err := s.QueryByIndex(context.Background(), domain.TableUsers, "name", "Ana")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNoIndex))
}

func TestStore_RejectsUnknownTable(t *testing.T) {
	s := setupStore(t)

	err := s.Put(context.Background(), domain.Table("outbox"), store.Record{ID: "x", Data: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownTable))
}

func TestStore_ClosedDatabaseIsStorageFault(t *testing.T) {
	database := testutil.NewTestDB(t)
	s := store.New(database)
	require.NoError(t, database.Close())

	_, err := s.Get(context.Background(), domain.TableUsers, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrStorageFault))

	var f *store.Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "get", f.Op)
	assert.Equal(t, domain.TableUsers, f.Table)
}

func TestRecordFromJSON(t *testing.T) {
	rec, err := store.RecordFromJSON(json.RawMessage(`{"id":"s1","updated_at":"2024-01-01T00:00:00.000Z","date":"2024-01-02"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", rec.ID)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", rec.UpdatedAt)

	_, err = store.RecordFromJSON(json.RawMessage(`{"name":"x"}`))
	assert.Error(t, err)
}

func TestStore_Meta(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	_, ok, err := s.GetMeta(ctx, "last_sync")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta(ctx, "last_sync", "2024-01-01T00:00:00.000Z"))
	require.NoError(t, s.SetMeta(ctx, "last_sync", "2024-01-02T00:00:00.000Z"))

	v, ok, err := s.GetMeta(ctx, "last_sync")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-01-02T00:00:00.000Z", v)
}
