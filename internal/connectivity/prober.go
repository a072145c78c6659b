package connectivity

import (
	"context"
	"time"

	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/charmbracelet/log"
)

const (
	DefaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// Prober pings the remote store on an interval and feeds the result to a
// Monitor. An unconfigured store always reads as offline.
type Prober struct {
	monitor  *Monitor
	remote   remote.Store
	interval time.Duration
	timeout  time.Duration
	log      *log.Logger
}

func NewProber(m *Monitor, r remote.Store, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &Prober{
		monitor:  m,
		remote:   r,
		interval: interval,
		timeout:  defaultProbeTimeout,
		log:      logger.With("connectivity"),
	}
}

// Check probes once and returns the state it recorded.
func (p *Prober) Check(ctx context.Context) bool {
	online := false
	if p.remote.Available() {
		pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.remote.Ping(pingCtx)
		cancel()
		if err != nil {
			p.log.Debug("remote ping failed", "err", err)
		}
		online = err == nil
	}
	if online != p.monitor.Online() {
		p.log.Info("connectivity changed", "online", online)
	}
	p.monitor.Set(online)
	return online
}

// Run checks immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.Check(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
