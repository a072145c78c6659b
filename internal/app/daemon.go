package app

import (
	"context"
	"sync"
	"time"

	"github.com/alexanderramin/cadence/internal/connectivity"
	"github.com/alexanderramin/cadence/internal/dashboard"
	"github.com/alexanderramin/cadence/internal/orchestrator"
)

// DaemonInfo describes a running daemon once it is ready.
type DaemonInfo struct {
	Interval time.Duration
	Remote   string
	// DashboardAddr is the bound dashboard address, empty when disabled.
	DashboardAddr string
}

// Run keeps the replica in sync until ctx is done: it serves the dashboard
// when configured, connects to the remote (retrying on the probe interval),
// probes connectivity and runs the periodic sync runner. ready, when non-nil,
// is called once everything is started.
func (rt *Runtime) Run(ctx context.Context, ready func(DaemonInfo)) error {
	info := DaemonInfo{Interval: rt.Config.Sync.Interval, Remote: rt.RemoteLabel()}

	if addr := rt.Config.Dashboard.Addr; addr != "" {
		srv := dashboard.NewServer(dashboard.Config{
			Addr:   addr,
			Status: rt.Orchestrator.Status(),
			Feed:   rt.Feed,
		})
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				rt.log.Warn("stopping dashboard", "err", err)
			}
		}()
		info.DashboardAddr = srv.Addr()
	}

	if !rt.connectUntil(ctx) {
		return nil
	}

	runner := orchestrator.NewRunner(rt.Orchestrator, rt.Monitor, rt.Config.Sync.Interval)
	var probing sync.WaitGroup
	if !rt.Config.Offline {
		prober := connectivity.NewProber(rt.Monitor, rt.Remote, rt.Config.Sync.ProbeInterval)
		probing.Add(1)
		go func() {
			defer probing.Done()
			prober.Run(ctx)
		}()
	}
	runner.Start(ctx)
	// The prober exits with ctx; the runner stops only after its last event.
	defer func() {
		probing.Wait()
		runner.Stop()
	}()

	if rt.watch != nil {
		rt.watch(func(d time.Duration) {
			rt.log.Info("sync interval changed", "interval", d)
			runner.SetInterval(d)
		})
	}
	if ready != nil {
		ready(info)
	}

	<-ctx.Done()
	return nil
}

// connectUntil retries Connect on the probe interval until it succeeds. It
// reports false when ctx ends first.
func (rt *Runtime) connectUntil(ctx context.Context) bool {
	if rt.Connect(ctx) == nil {
		return true
	}
	ticker := time.NewTicker(rt.Config.Sync.ProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if rt.Connect(ctx) == nil {
				return true
			}
		}
	}
}
