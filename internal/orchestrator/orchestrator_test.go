package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/cadence/internal/connectivity"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStep struct {
	calls   atomic.Int32
	n       int
	err     error
	panicV  any
	started chan struct{}
	release chan struct{}
}

func (f *fakeStep) run(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.release != nil {
		<-f.release
	}
	if f.panicV != nil {
		panic(f.panicV)
	}
	return f.n, f.err
}

type fakePusher struct{ fakeStep }

func (f *fakePusher) Push(ctx context.Context) (int, error) { return f.run(ctx) }

type fakePuller struct{ fakeStep }

func (f *fakePuller) Pull(ctx context.Context) (int, error) { return f.run(ctx) }

type fakeCounter struct{ n atomic.Int32 }

func (f *fakeCounter) Count(context.Context) (int, error) { return int(f.n.Load()), nil }

type memMeta struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemMeta() *memMeta { return &memMeta{m: make(map[string]string)} }

func (m *memMeta) GetMeta(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok, nil
}

func (m *memMeta) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
	return nil
}

type fixture struct {
	push    *fakePusher
	pull    *fakePuller
	pending *fakeCounter
	meta    *memMeta
	monitor *connectivity.Monitor
	orch    *Orchestrator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		push:    &fakePusher{},
		pull:    &fakePuller{},
		pending: &fakeCounter{},
		meta:    newMemMeta(),
		monitor: connectivity.NewMonitor(true),
	}
	f.orch = New(f.push, f.pull, f.pending, f.meta, f.monitor, WithLogger(logger.Discard()))
	return f
}

func TestRunFullSync_AggregatesCounts(t *testing.T) {
	f := setup(t)
	f.push.n, f.pull.n = 3, 7

	res, err := f.orch.RunFullSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pushes)
	assert.Equal(t, 7, res.Pulls)
	assert.Zero(t, res.Errors)
	assert.False(t, res.LastRun.IsZero())
}

func TestRunFullSync_OneSideFails(t *testing.T) {
	f := setup(t)
	f.push.err = errors.New("disk I/O error")
	f.pull.n = 4

	res, err := f.orch.RunFullSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push: disk I/O error")
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 4, res.Pulls)
}

func TestRunFullSync_RecoversPanic(t *testing.T) {
	f := setup(t)
	f.pull.panicV = "nil map"

	res, err := f.orch.RunFullSync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull panicked: nil map")
	assert.Equal(t, 1, res.Errors)
}

func TestRunFullSync_CoalescesConcurrentCalls(t *testing.T) {
	f := setup(t)
	f.push.started = make(chan struct{})
	f.push.release = make(chan struct{})
	started := f.push.started

	var wg sync.WaitGroup
	results := make([]Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = f.orch.RunFullSync(context.Background())
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = f.orch.RunFullSync(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.push.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.push.calls.Load())
	assert.Equal(t, results[0], results[1])
}

func TestSyncNow_Offline(t *testing.T) {
	f := setup(t)
	f.monitor.Set(false)
	f.pending.n.Store(2)

	_, err := f.orch.SyncNow(context.Background())
	require.NoError(t, err)

	snap := f.orch.Status().Snapshot()
	assert.Equal(t, StatusOffline, snap.Status)
	assert.Equal(t, 2, snap.Pending)
	assert.Zero(t, f.push.calls.Load())
}

func TestSyncNow_SuccessPersistsLastSync(t *testing.T) {
	f := setup(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.orch = New(f.push, f.pull, f.pending, f.meta, f.monitor, WithLogger(logger.Discard()), WithClock(func() time.Time { return fixed }))

	_, err := f.orch.SyncNow(context.Background())
	require.NoError(t, err)

	snap := f.orch.Status().Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	require.NotNil(t, snap.LastSync)
	assert.True(t, fixed.Equal(*snap.LastSync))

	restored := New(f.push, f.pull, f.pending, f.meta, f.monitor, WithLogger(logger.Discard()))
	require.NoError(t, restored.Restore(context.Background()))
	require.NotNil(t, restored.Status().Snapshot().LastSync)
	assert.True(t, fixed.Equal(*restored.Status().Snapshot().LastSync))
}

func TestSyncNow_ErrorThenRecovery(t *testing.T) {
	f := setup(t)
	f.pull.err = errors.New("boom")

	_, err := f.orch.SyncNow(context.Background())
	require.Error(t, err)
	snap := f.orch.Status().Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Error, "boom")
	assert.Nil(t, snap.LastSync)

	f.pull.err = nil
	_, err = f.orch.SyncNow(context.Background())
	require.NoError(t, err)
	snap = f.orch.Status().Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Error)
}

func TestRestore_OfflineStatus(t *testing.T) {
	f := setup(t)
	f.monitor.Set(false)
	f.pending.n.Store(5)

	require.NoError(t, f.orch.Restore(context.Background()))
	snap := f.orch.Status().Snapshot()
	assert.Equal(t, StatusOffline, snap.Status)
	assert.Equal(t, 5, snap.Pending)
	assert.Nil(t, snap.LastSync)
}
