package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/alexanderramin/cadence/internal/connectivity"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/charmbracelet/log"
)

const DefaultInterval = 30 * time.Second

// Runner triggers syncs on a fixed interval while online and immediately
// whenever connectivity returns. Going offline stops the ticker; a run that
// is already in flight finishes.
type Runner struct {
	orch    *Orchestrator
	monitor *connectivity.Monitor
	log     *log.Logger

	mu       sync.Mutex
	ctx      context.Context
	interval time.Duration
	stopTick chan struct{}
	unsub    func()
	running  bool
	wg       sync.WaitGroup
}

func NewRunner(o *Orchestrator, m *connectivity.Monitor, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{orch: o, monitor: m, interval: interval, log: logger.With("runner")}
}

// Start subscribes to connectivity and, when online, syncs at once and
// starts the ticker. Runs use ctx; cancelling it ends the ticker too.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	unsub := r.monitor.Subscribe(r.onConnectivity)
	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()
	r.onConnectivity(r.monitor.Online())
	r.log.Info("sync runner started", "interval", r.Interval())
}

// Stop unsubscribes, stops the ticker and waits for in-flight runs.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.stopTickerLocked()
	unsub := r.unsub
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	r.wg.Wait()
	r.log.Info("sync runner stopped")
}

func (r *Runner) Interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interval
}

// SetInterval changes the tick period, restarting an active ticker.
func (r *Runner) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if d == r.interval {
		return
	}
	r.interval = d
	if r.stopTick != nil {
		r.startTickerLocked()
	}
	r.log.Info("sync interval changed", "interval", d)
}

// Ticking reports whether the periodic timer is active.
func (r *Runner) Ticking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopTick != nil
}

func (r *Runner) onConnectivity(online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	if !online {
		r.stopTickerLocked()
		r.orch.Status().Update(func(s *Snapshot) { s.Status = StatusOffline })
		return
	}
	r.orch.Status().Update(func(s *Snapshot) {
		if s.Status == StatusOffline {
			s.Status = StatusIdle
		}
	})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.syncOnce()
	}()
	r.startTickerLocked()
}

func (r *Runner) startTickerLocked() {
	r.stopTickerLocked()
	stop := make(chan struct{})
	r.stopTick = stop
	interval, ctx := r.interval, r.ctx

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				r.syncOnce()
			}
		}
	}()
}

func (r *Runner) stopTickerLocked() {
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
}

// syncOnce never lets a failure escape, so the next tick still fires.
func (r *Runner) syncOnce() {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("sync run panicked", "panic", p)
		}
	}()
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, err := r.orch.SyncNow(ctx); err != nil {
		r.log.Warn("scheduled sync failed", "err", err)
	}
}
