package cli

import (
	"fmt"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/spf13/cobra"
)

func newUserCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage trainers and athletes",
	}
	cmd.AddCommand(newUserAddCmd(a), newUserListCmd(a), newUserRoleCmd(a))
	return cmd
}

func newUserAddCmd(a *App) *cobra.Command {
	var name, email, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := &domain.User{
				Name:      name,
				Email:     email,
				Role:      domain.Role(role),
				Goal:      optString(cmd, "goal"),
				Birthdate: optString(cmd, "birthdate"),
			}
			if err := a.Users.Create(cmd.Context(), u); err != nil {
				return err
			}
			printCreated(cmd, string(u.Role), u.Name, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAthlete), "trainer, athlete, nutritionist or admin")
	cmd.Flags().String("goal", "", "personal goal")
	cmd.Flags().String("birthdate", "", "birthdate (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserListCmd(a *App) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users by name",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var users []*domain.User
			var err error
			if role != "" {
				users, err = a.Users.ListByRole(ctx, domain.Role(role))
			} else {
				users, err = a.Users.List(ctx)
			}
			if err != nil {
				return err
			}
			pendingIDs, err := a.Users.PendingIDs(ctx)
			if err != nil {
				return err
			}
			pending := make(map[string]bool, len(pendingIDs))
			for _, id := range pendingIDs {
				pending[id] = true
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatUsers(users, pending))
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "only users with this role")
	return cmd
}

func newUserRoleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "role USER ROLE",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveUser(ctx, a, args[0])
			if err != nil {
				return err
			}
			u, err := a.Users.SetRole(ctx, id, domain.Role(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s is now %s\n",
				formatter.StyleGreen.Render("✔"), formatter.Bold(u.Name), formatter.RoleBadge(u.Role))
			return nil
		},
	}
}
