package cli

import (
	"fmt"

	"github.com/alexanderramin/cadence/internal/app"
	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newSyncCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes and pull remote records once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stop := formatter.StartSpinner(cmd.ErrOrStderr(), "Syncing…")
			res, err := a.Sync.SyncNow(cmd.Context())
			stop()

			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSyncResult(res, a.Sync.Snapshot()))
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			return nil
		},
	}
}

func newDaemonCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Long: `Runs the sync loop: a full sync every --interval while online and
immediately whenever the remote becomes reachable again. With --dashboard,
live status is served over WebSocket at ws://ADDR/ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return a.Sync.Run(cmd.Context(), func(info app.DaemonInfo) {
				fields := []formatter.Field{
					{Label: "Remote", Value: info.Remote},
					{Label: "Interval", Value: info.Interval.String()},
				}
				if info.DashboardAddr != "" {
					fields = append(fields, formatter.Field{Label: "Dashboard", Value: "ws://" + info.DashboardAddr + "/ws"})
				}
				fmt.Fprintln(out, formatter.StyleGreen.Render("● cadence daemon running"))
				fmt.Fprint(out, formatter.RenderFields(fields))
			})
		},
	}
}

func newStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and pending changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			snap := a.Sync.CheckStatus(ctx)

			view := formatter.StatusView{
				Snapshot:  snap,
				Remote:    a.Sync.RemoteLabel(),
				DeadAfter: a.DeadLetterAfter,
				Now:       a.now(),
			}
			if a.DeadLetterAfter > 0 {
				dead, err := a.Outbox.DeadLetters(ctx, a.DeadLetterAfter)
				if err != nil {
					return err
				}
				view.DeadLetters = len(dead)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStatus(view))
			return nil
		},
	}
}
