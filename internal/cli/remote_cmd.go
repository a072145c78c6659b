package cli

import (
	"fmt"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/remote"
	"github.com/spf13/cobra"
)

func newRemoteCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Configure the PostgreSQL remote",
	}
	cmd.AddCommand(newRemoteSetCmd(a), newRemoteClearCmd(a), newRemoteMigrateCmd(a))
	return cmd
}

func newRemoteSetCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set DSN",
		Short: "Store the remote connection string in the OS keyring",
		Long: `Validates DSN and stores it in the OS keyring. The connection string
must not embed a password; use PGPASSFILE or a trusted connection instead.
CADENCE_REMOTE_DSN, when set, takes precedence over the keyring.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipBoot: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := remote.ValidateConnString(args[0]); err != nil {
				return err
			}
			if err := a.credentials().SetDSN(args[0]); err != nil {
				return fmt.Errorf("storing DSN: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Remote DSN saved to the keyring\n", formatter.StyleGreen.Render("✔"))
			return nil
		},
	}
}

func newRemoteClearCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:         "clear",
		Short:       "Remove the stored connection string",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipBoot: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.credentials().DeleteDSN(); err != nil {
				return fmt.Errorf("removing DSN: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Remote DSN removed. cadence now works offline."))
			return nil
		},
	}
}

func newRemoteMigrateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the remote schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := a.Sync.MigrateRemote(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Remote schema at version %d\n", formatter.StyleGreen.Render("✔"), version)
			return nil
		},
	}
}
