package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newOutboxCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect local changes waiting to be pushed",
	}
	cmd.AddCommand(
		newOutboxListCmd(a),
		newOutboxCountCmd(a),
		newOutboxDeadCmd(a),
	)
	return cmd
}

func newOutboxListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued changes in push order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.Outbox.Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatOutbox(entries, a.DeadLetterAfter, a.now()))
			return nil
		},
	}
}

func newOutboxCountCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of queued changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.Outbox.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newOutboxDeadCmd(a *App) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List changes the remote keeps rejecting",
		Long: `Lists queued changes whose retry count reached the threshold. They
stay queued and keep being retried; this view only surfaces them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.DeadLetterAfter
			}
			if threshold <= 0 {
				return errors.New("dead-letter threshold is disabled; pass --threshold N")
			}
			entries, err := a.Outbox.DeadLetters(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim(fmt.Sprintf("No changes with %d or more retries.", threshold)))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatOutbox(entries, threshold, a.now()))
			return nil
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "retry count to report at (default sync.dead_letter_after)")
	return cmd
}
