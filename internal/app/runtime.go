// Package app assembles the local replica, the domain services and the sync
// engine into one Runtime that commands drive.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/config"
	"github.com/alexanderramin/cadence/internal/connectivity"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/alexanderramin/cadence/internal/orchestrator"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/reconcile"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/charmbracelet/log"
)

// ErrNoPostgres is returned by remote administration when the configured
// backend is not PostgreSQL.
var ErrNoPostgres = errors.New("no PostgreSQL remote configured (set CADENCE_REMOTE_DSN or run `cadence remote set`)")

// Runtime owns every long-lived component of one cadence process.
type Runtime struct {
	Config *config.Config

	DB    *sql.DB
	Store *store.Store
	Queue *outbox.Queue
	Feed  *changefeed.Feed

	Planning    service.PlanningService
	Assignments service.AssignmentService
	Users       service.UserService
	Progress    service.ProgressService
	Groups      service.GroupService

	Remote       remote.Store
	Monitor      *connectivity.Monitor
	Orchestrator *orchestrator.Orchestrator

	postgres  *remote.Postgres
	connected bool
	watch     func(func(time.Duration))
	log       *log.Logger
}

type Option func(*Runtime)

// WithRemote replaces the backend chosen from configuration.
func WithRemote(r remote.Store) Option {
	return func(rt *Runtime) { rt.Remote = r }
}

// WithIntervalWatch registers a source of live sync-interval changes used
// by the daemon, typically config.Loader.WatchInterval.
func WithIntervalWatch(watch func(func(time.Duration))) Option {
	return func(rt *Runtime) { rt.watch = watch }
}

// Open opens the local replica at cfg.DBPath and wires services and the sync
// engine around it. The remote is not contacted until Connect.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	rt := &Runtime{Config: cfg, log: logger.With("app")}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.Remote == nil {
		r, pg, err := selectRemote(cfg.Remote)
		if err != nil {
			return nil, err
		}
		rt.Remote, rt.postgres = r, pg
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	rt.DB = database
	rt.Store = store.New(database)
	rt.Queue = outbox.New(database)
	if err := rt.Queue.Seed(ctx); err != nil {
		database.Close()
		return nil, err
	}
	rt.Feed = changefeed.New()

	uow := db.NewSQLiteUnitOfWork(database)
	rt.Planning = service.NewPlanningService(rt.Store, rt.Queue, uow, rt.Feed)
	rt.Assignments = service.NewAssignmentService(rt.Store, rt.Queue, uow, rt.Feed)
	rt.Users = service.NewUserService(rt.Store, rt.Queue, uow, rt.Feed)
	rt.Progress = service.NewProgressService(rt.Store, rt.Queue, uow, rt.Feed)
	rt.Groups = service.NewGroupService(rt.Store, rt.Queue, uow, rt.Feed)

	rt.Monitor = connectivity.NewMonitor(false)
	pusher := reconcile.NewPusher(rt.Queue, rt.Remote, rt.Monitor,
		reconcile.WithDeadLetterAfter(cfg.Sync.DeadLetterAfter))
	puller := reconcile.NewPuller(rt.Store, rt.Remote, rt.Monitor, rt.Feed,
		reconcile.WithMergeWorkers(cfg.Sync.MergeWorkers))
	rt.Orchestrator = orchestrator.New(pusher, puller, rt.Queue, rt.Store, rt.Monitor)

	if err := rt.Orchestrator.Restore(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("restoring sync status: %w", err)
	}
	return rt, nil
}

func selectRemote(rc config.RemoteConfig) (remote.Store, *remote.Postgres, error) {
	switch rc.Backend {
	case config.BackendNone:
		return remote.Disabled{}, nil, nil
	case config.BackendMemory:
		return remote.NewMemory(), nil, nil
	case config.BackendPostgres:
		if rc.DSN == "" {
			return nil, nil, ErrNoPostgres
		}
	default:
		if rc.DSN == "" {
			return remote.Disabled{}, nil, nil
		}
	}
	if err := remote.ValidateConnString(rc.DSN); err != nil {
		return nil, nil, err
	}
	pg := remote.NewPostgres(rc.DSN)
	return pg, pg, nil
}

// RemoteLabel describes the active backend for status output.
func (rt *Runtime) RemoteLabel() string {
	switch {
	case rt.postgres != nil:
		return fmt.Sprintf("postgres (%s)", rt.Config.Remote.DSNSource)
	case rt.Remote == nil:
		return "none"
	}
	switch rt.Remote.(type) {
	case remote.Disabled:
		return "not configured"
	case *remote.Memory:
		return "memory"
	default:
		return fmt.Sprintf("%T", rt.Remote)
	}
}

// Connect opens the remote when needed and probes it once. With --offline
// the monitor stays offline and nothing is dialled. A failed connection is
// logged and leaves the runtime offline.
func (rt *Runtime) Connect(ctx context.Context) error {
	if rt.Config.Offline {
		rt.Monitor.Set(false)
		return nil
	}
	if !rt.connected && rt.postgres != nil && !rt.postgres.Available() {
		if err := rt.postgres.Open(ctx); err != nil {
			rt.log.Warn("remote unavailable, working offline", "err", err)
			return err
		}
	}
	rt.connected = true
	connectivity.NewProber(rt.Monitor, rt.Remote, rt.Config.Sync.ProbeInterval).Check(ctx)
	return nil
}

// SyncNow connects and runs one sync cycle. Connection failures are not
// returned: the orchestrator reports the offline state instead.
func (rt *Runtime) SyncNow(ctx context.Context) (orchestrator.Result, error) {
	_ = rt.Connect(ctx)
	return rt.Orchestrator.SyncNow(ctx)
}

func (rt *Runtime) Snapshot() orchestrator.Snapshot {
	return rt.Orchestrator.Status().Snapshot()
}

// CheckStatus probes the remote and returns the snapshot with its online
// state brought up to date. Errors and the last sync time are left as they
// are.
func (rt *Runtime) CheckStatus(ctx context.Context) orchestrator.Snapshot {
	_ = rt.Connect(ctx)
	online := rt.Monitor.Online()
	rt.Orchestrator.Status().Update(func(s *orchestrator.Snapshot) {
		switch {
		case !online:
			s.Status = orchestrator.StatusOffline
		case s.Status == orchestrator.StatusOffline:
			s.Status = orchestrator.StatusIdle
		}
	})
	return rt.Snapshot()
}

// MigrateRemote connects to PostgreSQL, which applies pending migrations,
// and returns the resulting schema version.
func (rt *Runtime) MigrateRemote(ctx context.Context) (int, error) {
	if rt.postgres == nil {
		return 0, ErrNoPostgres
	}
	if !rt.postgres.Available() {
		if err := rt.postgres.Open(ctx); err != nil {
			return 0, err
		}
	}
	return rt.postgres.SchemaVersion(ctx)
}

func (rt *Runtime) Close() error {
	var errs []error
	if rt.postgres != nil {
		errs = append(errs, rt.postgres.Close())
	}
	if rt.DB != nil {
		errs = append(errs, rt.DB.Close())
	}
	return errors.Join(errs...)
}
