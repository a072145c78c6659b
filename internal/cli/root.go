// Package cli implements the cadence command tree.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/cadence/internal/app"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/keyring"
	"github.com/alexanderramin/cadence/internal/orchestrator"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/spf13/cobra"
)

// SyncEngine is the sync side of the runtime as commands see it.
type SyncEngine interface {
	SyncNow(ctx context.Context) (orchestrator.Result, error)
	Snapshot() orchestrator.Snapshot
	CheckStatus(ctx context.Context) orchestrator.Snapshot
	RemoteLabel() string
	Run(ctx context.Context, ready func(app.DaemonInfo)) error
	MigrateRemote(ctx context.Context) (int, error)
}

type OutboxReader interface {
	Drain(ctx context.Context) ([]domain.OutboxEntry, error)
	DeadLetters(ctx context.Context, threshold int) ([]domain.OutboxEntry, error)
	Count(ctx context.Context) (int, error)
}

// CredentialStore keeps the remote DSN out of config files.
type CredentialStore interface {
	SetDSN(dsn string) error
	DeleteDSN() error
}

// OSKeyring stores the DSN in the operating system keyring.
type OSKeyring struct{}

func (OSKeyring) SetDSN(dsn string) error { return keyring.SetDSN(dsn) }

func (OSKeyring) DeleteDSN() error {
	if err := keyring.DeleteDSN(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// App holds everything commands use.
type App struct {
	Planning    service.PlanningService
	Assignments service.AssignmentService
	Users       service.UserService
	Outbox      OutboxReader
	Sync        SyncEngine
	Credentials CredentialStore

	DeadLetterAfter int
	Now             func() time.Time

	// Boot resolves configuration and fills the fields above before a
	// command runs. Nil when the App is wired up front.
	Boot func(cmd *cobra.Command) error
}

// Bind points the App at a runtime.
func (a *App) Bind(rt *app.Runtime) {
	a.Planning = rt.Planning
	a.Assignments = rt.Assignments
	a.Users = rt.Users
	a.Outbox = rt.Queue
	a.Sync = rt
	a.DeadLetterAfter = rt.Config.Sync.DeadLetterAfter
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) credentials() CredentialStore {
	if a.Credentials != nil {
		return a.Credentials
	}
	return OSKeyring{}
}

// skipBoot marks commands that must run without opening the replica.
const skipBoot = "cadence/skip-boot"

// NewRootCmd creates the top-level "cadence" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Local-first training plans with background sync",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.Boot == nil || cmd.Annotations[skipBoot] == "true" {
				return nil
			}
			return a.Boot(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default <data-dir>/cadence.toml)")
	pf.String("data-dir", "", "directory for the replica, config and logs")
	pf.String("db", "", "local database path (default <data-dir>/cadence.db)")
	pf.Bool("offline", false, "never contact the remote")
	pf.Duration("interval", orchestrator.DefaultInterval, "background sync interval")
	pf.String("remote", "auto", "remote backend: auto, postgres, memory or none")
	pf.String("dashboard", "", "serve the live status dashboard on this address (daemon only)")
	pf.Bool("verbose", false, "echo logs to stderr")
	pf.Bool("debug", false, "debug logging")

	root.AddCommand(
		newSyncCmd(a),
		newDaemonCmd(a),
		newStatusCmd(a),
		newOutboxCmd(a),
		newPlanCmd(a),
		newAssignCmd(a),
		newUserCmd(a),
		newRemoteCmd(a),
	)
	return root
}
