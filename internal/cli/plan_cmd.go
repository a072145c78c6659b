package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/importer"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/spf13/cobra"
)

func newPlanCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage macrocycles, mesocycles, microcycles and sessions",
	}
	cmd.AddCommand(
		newMacroCmd(a),
		newMesoCmd(a),
		newMicroCmd(a),
		newSessionCmd(a),
		newPlanImportCmd(a),
	)
	return cmd
}

// optString returns a pointer to the flag value when the flag was set.
func optString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func printDeleted(cmd *cobra.Command, kind, id string, n int) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s %s (%d records queued for removal)\n",
		formatter.StyleRed.Render("✖"), kind, formatter.TruncID(id), n)
}

func printCreated(cmd *cobra.Command, kind, name, id string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s %s %s\n",
		formatter.StyleGreen.Render("✔"), kind, formatter.Bold(name), formatter.TruncID(id))
}

func newMacroCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "macro",
		Aliases: []string{"macrocycle"},
		Short:   "Manage macrocycles (seasons)",
	}
	cmd.AddCommand(newMacroAddCmd(a), newMacroListCmd(a), newMacroShowCmd(a), newMacroRemoveCmd(a))
	return cmd
}

func newMacroAddCmd(a *App) *cobra.Command {
	var name, start, end, status, createdBy string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a macrocycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m := &domain.Macrocycle{
				Name:      name,
				StartDate: start,
				EndDate:   end,
				Status:    domain.PlanningStatus(status),
				Season:    optString(cmd, "season"),
				Goal:      optString(cmd, "goal"),
				Notes:     optString(cmd, "notes"),
			}
			if createdBy != "" {
				id, err := resolveUser(ctx, a, createdBy)
				if err != nil {
					return err
				}
				m.CreatedBy = &id
			}
			if err := a.Planning.CreateMacrocycle(ctx, m); err != nil {
				return err
			}
			printCreated(cmd, "macrocycle", m.Name, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "macrocycle name")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "draft, published or archived (default draft)")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "creating user (id or email)")
	cmd.Flags().String("season", "", "season label")
	cmd.Flags().String("goal", "", "season goal")
	cmd.Flags().String("notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newMacroListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List macrocycles by start date",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			macros, err := a.Planning.ListMacrocycles(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMacrocycles(macros, a.now()))
			return nil
		},
	}
}

func newMacroShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show MACRO",
		Short: "Show a macrocycle with everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveMacrocycle(ctx, a, args[0])
			if err != nil {
				return err
			}
			tree, err := loadPlanTree(ctx, a.Planning, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlanTree(tree))
			return nil
		},
	}
}

// loadPlanTree reads a macrocycle and its descendants. Sessions are
// collected from every level so ones linked only to a lower level show up.
func loadPlanTree(ctx context.Context, p service.PlanningService, macroID string) (*service.PlanTree, error) {
	macro, err := p.GetMacrocycle(ctx, macroID)
	if err != nil {
		return nil, err
	}
	tree := &service.PlanTree{Macrocycle: macro}
	filters := []service.SessionFilter{{MacrocycleID: macroID}}

	if tree.Mesocycles, err = p.ListMesocycles(ctx, macroID); err != nil {
		return nil, err
	}
	for _, meso := range tree.Mesocycles {
		filters = append(filters, service.SessionFilter{MesocycleID: meso.ID})
		micros, err := p.ListMicrocycles(ctx, meso.ID)
		if err != nil {
			return nil, err
		}
		for _, micro := range micros {
			filters = append(filters, service.SessionFilter{MicrocycleID: micro.ID})
		}
		tree.Microcycles = append(tree.Microcycles, micros...)
	}

	seen := make(map[string]bool)
	for _, f := range filters {
		sessions, err := p.ListSessions(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if !seen[s.ID] {
				seen[s.ID] = true
				tree.Sessions = append(tree.Sessions, s)
			}
		}
	}
	sort.SliceStable(tree.Sessions, func(i, j int) bool {
		if tree.Sessions[i].Date != tree.Sessions[j].Date {
			return tree.Sessions[i].Date < tree.Sessions[j].Date
		}
		return tree.Sessions[i].OrderIndex < tree.Sessions[j].OrderIndex
	})
	return tree, nil
}

func newMacroRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm MACRO",
		Aliases: []string{"delete"},
		Short:   "Delete a macrocycle and everything below it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveMacrocycle(ctx, a, args[0])
			if err != nil {
				return err
			}
			n, err := a.Planning.DeleteMacrocycle(ctx, id)
			if err != nil {
				return err
			}
			printDeleted(cmd, "macrocycle", id, n)
			return nil
		},
	}
}

func newMesoCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meso",
		Aliases: []string{"mesocycle"},
		Short:   "Manage mesocycles (training blocks)",
	}
	cmd.AddCommand(newMesoAddCmd(a), newMesoListCmd(a), newMesoRemoveCmd(a))
	return cmd
}

func newMesoAddCmd(a *App) *cobra.Command {
	var macro, name, start, end string
	var order int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a mesocycle inside a macrocycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			macroID, err := resolveMacrocycle(ctx, a, macro)
			if err != nil {
				return err
			}
			m := &domain.Mesocycle{
				MacrocycleID: macroID,
				Name:         name,
				StartDate:    start,
				EndDate:      end,
				OrderIndex:   order,
				Phase:        optString(cmd, "phase"),
				Focus:        optString(cmd, "focus"),
				Goal:         optString(cmd, "goal"),
			}
			if err := a.Planning.CreateMesocycle(ctx, m); err != nil {
				return err
			}
			printCreated(cmd, "mesocycle", m.Name, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&macro, "macro", "", "parent macrocycle")
	cmd.Flags().StringVar(&name, "name", "", "mesocycle name")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&order, "order", 0, "position within the macrocycle")
	cmd.Flags().String("phase", "", "training phase")
	cmd.Flags().String("focus", "", "block focus")
	cmd.Flags().String("goal", "", "block goal")
	for _, f := range []string{"macro", "name", "start", "end"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newMesoListCmd(a *App) *cobra.Command {
	var macro string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the mesocycles of a macrocycle",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			macroID, err := resolveMacrocycle(ctx, a, macro)
			if err != nil {
				return err
			}
			mesos, err := a.Planning.ListMesocycles(ctx, macroID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMesocycles(mesos))
			return nil
		},
	}
	cmd.Flags().StringVar(&macro, "macro", "", "parent macrocycle")
	_ = cmd.MarkFlagRequired("macro")
	return cmd
}

func newMesoRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm MESO",
		Aliases: []string{"delete"},
		Short:   "Delete a mesocycle with its microcycles and sessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveMesocycle(ctx, a, args[0])
			if err != nil {
				return err
			}
			n, err := a.Planning.DeleteMesocycle(ctx, id)
			if err != nil {
				return err
			}
			printDeleted(cmd, "mesocycle", id, n)
			return nil
		},
	}
}

func newMicroCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "micro",
		Aliases: []string{"microcycle"},
		Short:   "Manage microcycles (training weeks)",
	}
	cmd.AddCommand(newMicroAddCmd(a), newMicroListCmd(a), newMicroRemoveCmd(a))
	return cmd
}

func newMicroAddCmd(a *App) *cobra.Command {
	var meso, name string
	var week int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a microcycle inside a mesocycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mesoID, err := resolveMesocycle(ctx, a, meso)
			if err != nil {
				return err
			}
			m := &domain.Microcycle{
				MesocycleID: mesoID,
				Name:        name,
				WeekNumber:  week,
				StartDate:   optString(cmd, "start"),
				EndDate:     optString(cmd, "end"),
				Focus:       optString(cmd, "focus"),
				Load:        optString(cmd, "load"),
			}
			if err := a.Planning.CreateMicrocycle(ctx, m); err != nil {
				return err
			}
			printCreated(cmd, "microcycle", m.Name, m.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&meso, "meso", "", "parent mesocycle")
	cmd.Flags().StringVar(&name, "name", "", "microcycle name")
	cmd.Flags().IntVar(&week, "week", 0, "week number within the mesocycle (from 1)")
	cmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().String("focus", "", "week focus")
	cmd.Flags().String("load", "", "load label, e.g. high or deload")
	for _, f := range []string{"meso", "name", "week"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newMicroListCmd(a *App) *cobra.Command {
	var meso string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the microcycles of a mesocycle",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mesoID, err := resolveMesocycle(ctx, a, meso)
			if err != nil {
				return err
			}
			micros, err := a.Planning.ListMicrocycles(ctx, mesoID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatMicrocycles(micros))
			return nil
		},
	}
	cmd.Flags().StringVar(&meso, "meso", "", "parent mesocycle")
	_ = cmd.MarkFlagRequired("meso")
	return cmd
}

func newMicroRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm MICRO",
		Aliases: []string{"delete"},
		Short:   "Delete a microcycle and its sessions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveMicrocycle(ctx, a, args[0])
			if err != nil {
				return err
			}
			n, err := a.Planning.DeleteMicrocycle(ctx, id)
			if err != nil {
				return err
			}
			printDeleted(cmd, "microcycle", id, n)
			return nil
		},
	}
}

func newPlanImportCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a whole plan from a JSON, TOML or YAML file",
		Long: `Reads a macrocycle with its mesocycles, microcycles and sessions from
FILE (format chosen by extension), validates all of it and writes it in one
transaction. Every record is queued for the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := importer.ImportFile(cmd.Context(), a.Planning, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatImportResult(res))
			return nil
		},
	}
}
