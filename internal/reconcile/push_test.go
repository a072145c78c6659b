package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/cadence/internal/connectivity"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pushFixture struct {
	queue   *outbox.Queue
	remote  *remote.Memory
	monitor *connectivity.Monitor
	pusher  *Pusher
}

func setupPush(t *testing.T, opts ...PushOption) *pushFixture {
	t.Helper()
	q := outbox.New(testutil.NewTestDB(t))
	mem := remote.NewMemory()
	mon := connectivity.NewMonitor(true)
	opts = append([]PushOption{WithPushLogger(logger.Discard())}, opts...)
	return &pushFixture{queue: q, remote: mem, monitor: mon, pusher: NewPusher(q, mem, mon, opts...)}
}

func (f *pushFixture) enqueueGroups(t *testing.T, ids ...string) []*domain.OutboxEntry {
	t.Helper()
	var out []*domain.OutboxEntry
	for _, id := range ids {
		e, err := f.queue.EnqueueEntity(context.Background(), domain.OpInsert, group(id, testutil.Stamp))
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func TestPush_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	f := setupPush(t)
	entries := f.enqueueGroups(t, "g1", "g2", "g3")
	f.remote.FailWrite("g2", errors.New("constraint violation"))

	n, err := f.pusher.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := f.queue.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, entries[1].ID, left[0].ID)
	assert.Equal(t, 1, left[0].Retries)
	assert.Equal(t, "constraint violation", left[0].LastError)

	_, ok := f.remote.Record(domain.TableGroups, "g1")
	assert.True(t, ok)
	_, ok = f.remote.Record(domain.TableGroups, "g3")
	assert.True(t, ok)
}

func TestPush_EmptyOutbox(t *testing.T) {
	f := setupPush(t)

	n, err := f.pusher.Push(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := f.queue.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.remote.Calls())
}

func TestPush_SkipsWhenOffline(t *testing.T) {
	f := setupPush(t)
	f.enqueueGroups(t, "g1")
	f.monitor.Set(false)

	n, err := f.pusher.Push(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.remote.Calls())

	count, err := f.queue.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPush_SkipsWhenRemoteDisabled(t *testing.T) {
	q := outbox.New(testutil.NewTestDB(t))
	_, err := q.EnqueueEntity(context.Background(), domain.OpInsert, group("g1", testutil.Stamp))
	require.NoError(t, err)

	p := NewPusher(q, remote.Disabled{}, connectivity.NewMonitor(true), WithPushLogger(logger.Discard()))
	n, err := p.Push(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPush_AppliesInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	f := setupPush(t)
	f.enqueueGroups(t, "g3", "g1")
	_, err := f.queue.EnqueueDelete(ctx, domain.TableGroups, "g3")
	require.NoError(t, err)

	n, err := f.pusher.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []remote.Call{
		{Op: "upsert", Table: domain.TableGroups, ID: "g3"},
		{Op: "upsert", Table: domain.TableGroups, ID: "g1"},
		{Op: "delete", Table: domain.TableGroups, ID: "g3"},
	}, f.remote.Calls())
	assert.Equal(t, 1, f.remote.Len(domain.TableGroups))
}

func TestPush_DeleteWithoutIDIsRejected(t *testing.T) {
	ctx := context.Background()
	f := setupPush(t)
	bad := domain.OutboxEntry{ID: "e1", Table: domain.TableGroups, Operation: domain.OpDelete, Payload: []byte(`{}`)}

	require.NoError(t, f.pusher.apply(ctx, domain.OutboxEntry{Table: domain.TableGroups, Operation: domain.OpInsert, Payload: []byte(`{"id":"g1"}`)}))
	assert.ErrorIs(t, f.pusher.apply(ctx, bad), ErrMissingID)
}

func TestPush_StopsWhenRemoteBecomesUnavailable(t *testing.T) {
	ctx := context.Background()
	f := setupPush(t)
	f.enqueueGroups(t, "g1", "g2")
	f.remote.FailWrite("g1", remote.ErrUnavailable)

	n, err := f.pusher.Push(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	left, err := f.queue.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Zero(t, left[0].Retries)
	assert.Len(t, f.remote.Calls(), 1)
}

func TestPush_RetriesAccumulatePastDeadLetterThreshold(t *testing.T) {
	ctx := context.Background()
	f := setupPush(t, WithDeadLetterAfter(2))
	f.enqueueGroups(t, "g1")
	f.remote.FailWrite("g1", errors.New("rejected"))

	for i := 0; i < 3; i++ {
		_, err := f.pusher.Push(ctx)
		require.NoError(t, err)
	}

	dead, err := f.queue.DeadLetters(ctx, 2)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Retries)

	f.remote.FailWrite("g1", nil)
	n, err := f.pusher.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPush_CancelledContext(t *testing.T) {
	f := setupPush(t)
	f.enqueueGroups(t, "g1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pusher.Push(ctx)
	assert.Error(t, err)
	assert.Empty(t, f.remote.Calls())
}
