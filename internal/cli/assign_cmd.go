package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/spf13/cobra"
)

func newAssignCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign macrocycles to users",
	}
	cmd.AddCommand(
		newAssignSetCmd(a),
		newAssignActiveCmd(a),
		newAssignListCmd(a),
		newAssignRemoveCmd(a),
	)
	return cmd
}

func newAssignSetCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set USER MACRO",
		Short: "Make MACRO the user's only active plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := resolveUser(ctx, a, args[0])
			if err != nil {
				return err
			}
			macroID, err := resolveMacrocycle(ctx, a, args[1])
			if err != nil {
				return err
			}
			asg, err := a.Assignments.SetActive(ctx, userID, macroID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Active plan for %s is now %s\n",
				formatter.StyleGreen.Render("●"), formatter.TruncID(asg.UserID), formatter.TruncID(asg.MacrocycleID))
			return nil
		},
	}
}

func newAssignActiveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "active USER",
		Short: "Show the user's active plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := resolveUser(ctx, a, args[0])
			if err != nil {
				return err
			}
			asg, err := a.Assignments.ActiveForUser(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("No active plan."))
				return nil
			}
			if err != nil {
				return err
			}
			macro, err := a.Planning.GetMacrocycle(ctx, asg.MacrocycleID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMacrocycles([]*domain.Macrocycle{macro}, a.now()))
			return nil
		},
	}
}

func newAssignListCmd(a *App) *cobra.Command {
	var user, macro string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List assignments of a user or of a macrocycle",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var list []*domain.PlanningAssignment
			switch {
			case user != "":
				id, err := resolveUser(ctx, a, user)
				if err != nil {
					return err
				}
				if list, err = a.Assignments.ListByUser(ctx, id); err != nil {
					return err
				}
			case macro != "":
				id, err := resolveMacrocycle(ctx, a, macro)
				if err != nil {
					return err
				}
				if list, err = a.Assignments.ListByMacrocycle(ctx, id); err != nil {
					return err
				}
			default:
				return errors.New("pass --user or --macro")
			}

			macros, err := a.Planning.ListMacrocycles(ctx)
			if err != nil {
				return err
			}
			names := make(map[string]string, len(macros))
			for _, m := range macros {
				names[m.ID] = m.Name
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAssignments(list, names))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user (id or email)")
	cmd.Flags().StringVar(&macro, "macro", "", "macrocycle")
	cmd.MarkFlagsMutuallyExclusive("user", "macro")
	return cmd
}

func newAssignRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ASSIGNMENT",
		Aliases: []string{"rm"},
		Short:   "Delete an assignment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveAssignment(ctx, a, args[0])
			if err != nil {
				return err
			}
			if err := a.Assignments.Remove(ctx, id); err != nil {
				return err
			}
			printDeleted(cmd, "assignment", id, 1)
			return nil
		},
	}
}
