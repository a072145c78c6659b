package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/spf13/cobra"
)

func newSessionCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage planned training sessions",
	}
	cmd.AddCommand(newSessionAddCmd(a), newSessionListCmd(a), newSessionRemoveCmd(a))
	return cmd
}

type sessionParents struct {
	macro, meso, micro string
}

// resolve fills in ancestors the user left out: a microcycle implies its
// mesocycle, and a mesocycle its macrocycle.
func (p sessionParents) resolve(ctx context.Context, a *App, s *domain.Session) error {
	if p.micro != "" {
		id, err := resolveMicrocycle(ctx, a, p.micro)
		if err != nil {
			return err
		}
		micro, err := a.Planning.GetMicrocycle(ctx, id)
		if err != nil {
			return err
		}
		s.MicrocycleID = &micro.ID
		if p.meso == "" {
			p.meso = micro.MesocycleID
		}
	}
	if p.meso != "" {
		id, err := resolveMesocycle(ctx, a, p.meso)
		if err != nil {
			return err
		}
		meso, err := a.Planning.GetMesocycle(ctx, id)
		if err != nil {
			return err
		}
		s.MesocycleID = &meso.ID
		if p.macro == "" {
			p.macro = meso.MacrocycleID
		}
	}
	if p.macro != "" {
		id, err := resolveMacrocycle(ctx, a, p.macro)
		if err != nil {
			return err
		}
		s.MacrocycleID = &id
	}
	return nil
}

func newSessionAddCmd(a *App) *cobra.Command {
	var parents sessionParents
	var date, sessionType, trainer string
	var order int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Plan a session at any level of the hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := &domain.Session{
				Date:        date,
				SessionType: sessionType,
				OrderIndex:  order,
				Name:        optString(cmd, "name"),
				Notes:       optString(cmd, "notes"),
			}
			if err := parents.resolve(ctx, a, s); err != nil {
				return err
			}
			if trainer != "" {
				id, err := resolveUser(ctx, a, trainer)
				if err != nil {
					return err
				}
				s.TrainerID = &id
			}
			if err := a.Planning.CreateSession(ctx, s); err != nil {
				return err
			}
			name := s.SessionType + " session"
			if s.Name != nil {
				name = *s.Name
			}
			printCreated(cmd, "session", name+" on "+s.Date, s.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "session date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&parents.macro, "macro", "", "macrocycle")
	cmd.Flags().StringVar(&parents.meso, "meso", "", "mesocycle")
	cmd.Flags().StringVar(&parents.micro, "micro", "", "microcycle")
	cmd.Flags().StringVar(&sessionType, "type", "", "session type (default training)")
	cmd.Flags().StringVar(&trainer, "trainer", "", "trainer (id or email)")
	cmd.Flags().IntVar(&order, "order", 0, "position within the day")
	cmd.Flags().String("name", "", "session name")
	cmd.Flags().String("notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newSessionListCmd(a *App) *cobra.Command {
	var parents sessionParents
	var trainer, date string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, optionally filtered by one attribute",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var f service.SessionFilter
			var err error
			switch {
			case parents.micro != "":
				f.MicrocycleID, err = resolveMicrocycle(ctx, a, parents.micro)
			case parents.meso != "":
				f.MesocycleID, err = resolveMesocycle(ctx, a, parents.meso)
			case parents.macro != "":
				f.MacrocycleID, err = resolveMacrocycle(ctx, a, parents.macro)
			case trainer != "":
				f.TrainerID, err = resolveUser(ctx, a, trainer)
			case date != "":
				f.Date = date
			}
			if err != nil {
				return err
			}
			sessions, err := a.Planning.ListSessions(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessions(sessions, a.now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&parents.macro, "macro", "", "only sessions of this macrocycle")
	cmd.Flags().StringVar(&parents.meso, "meso", "", "only sessions of this mesocycle")
	cmd.Flags().StringVar(&parents.micro, "micro", "", "only sessions of this microcycle")
	cmd.Flags().StringVar(&trainer, "trainer", "", "only sessions led by this trainer")
	cmd.Flags().StringVar(&date, "date", "", "only sessions on this date")
	cmd.MarkFlagsMutuallyExclusive("macro", "meso", "micro", "trainer", "date")
	return cmd
}

func newSessionRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm SESSION",
		Aliases: []string{"delete"},
		Short:   "Delete a planned session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveSession(ctx, a, args[0])
			if err != nil {
				return err
			}
			if err := a.Planning.DeleteSession(ctx, id); err != nil {
				return err
			}
			printDeleted(cmd, "session", id, 1)
			return nil
		},
	}
}
