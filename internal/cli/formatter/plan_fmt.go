package formatter

import (
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/service"
)

func FormatMacrocycles(macros []*domain.Macrocycle, now time.Time) string {
	if len(macros) == 0 {
		return Dim("No macrocycles yet. Create one with `cadence plan macro add`.") + "\n"
	}
	rows := make([][]string, 0, len(macros))
	for _, m := range macros {
		rows = append(rows, []string{
			TruncID(m.ID),
			Bold(m.Name),
			Opt(m.Season),
			m.StartDate + " → " + m.EndDate,
			RenderProgress(Elapsed(m.StartDate, m.EndDate, now), 12),
			PlanningStatusPill(m.Status),
		})
	}
	return RenderTable([]string{"ID", "NAME", "SEASON", "DATES", "ELAPSED", "STATUS"}, rows)
}

func FormatMesocycles(mesos []*domain.Mesocycle) string {
	if len(mesos) == 0 {
		return Dim("No mesocycles.") + "\n"
	}
	rows := make([][]string, 0, len(mesos))
	for _, m := range mesos {
		rows = append(rows, []string{
			TruncID(m.ID),
			fmt.Sprintf("%d", m.OrderIndex),
			Bold(m.Name),
			Opt(m.Phase),
			m.StartDate + " → " + m.EndDate,
			PlanningStatusPill(m.Status),
		})
	}
	return RenderTable([]string{"ID", "#", "NAME", "PHASE", "DATES", "STATUS"}, rows)
}

func FormatMicrocycles(micros []*domain.Microcycle) string {
	if len(micros) == 0 {
		return Dim("No microcycles.") + "\n"
	}
	rows := make([][]string, 0, len(micros))
	for _, m := range micros {
		rows = append(rows, []string{
			TruncID(m.ID),
			fmt.Sprintf("W%d", m.WeekNumber),
			Bold(m.Name),
			Opt(m.Focus),
			Opt(m.Load),
			PlanningStatusPill(m.Status),
		})
	}
	return RenderTable([]string{"ID", "WEEK", "NAME", "FOCUS", "LOAD", "STATUS"}, rows)
}

func FormatSessions(sessions []*domain.Session, now time.Time) string {
	if len(sessions) == 0 {
		return Dim("No sessions.") + "\n"
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			TruncID(s.ID),
			s.Date,
			Dim(RelativeDay(s.Date, now)),
			sessionTitle(s),
			s.SessionType,
			SessionStatusPill(s.Status),
		})
	}
	return RenderTable([]string{"ID", "DATE", "WHEN", "NAME", "TYPE", "STATUS"}, rows)
}

func sessionTitle(s *domain.Session) string {
	if s.Name != nil && *s.Name != "" {
		return *s.Name
	}
	return s.SessionType + " session"
}

type treeNode struct {
	item     TreeItem
	children []*treeNode
}

// PlanTreeItems flattens a planning tree for RenderTree. Sessions are placed
// under the most specific parent they reference that is part of the tree.
func PlanTreeItems(tree *service.PlanTree) []TreeItem {
	if tree == nil || tree.Macrocycle == nil {
		return nil
	}
	m := tree.Macrocycle
	root := &treeNode{item: TreeItem{
		Title:  Bold(m.Name),
		ID:     m.ID,
		Status: string(m.Status),
		Detail: m.StartDate + " → " + m.EndDate,
	}}

	mesos := make(map[string]*treeNode, len(tree.Mesocycles))
	for _, me := range tree.Mesocycles {
		n := &treeNode{item: TreeItem{
			Title:  me.Name,
			ID:     me.ID,
			Status: string(me.Status),
			Detail: me.StartDate + " → " + me.EndDate,
		}}
		mesos[me.ID] = n
		root.children = append(root.children, n)
	}
	micros := make(map[string]*treeNode, len(tree.Microcycles))
	var orphans []*treeNode
	for _, mi := range tree.Microcycles {
		n := &treeNode{item: TreeItem{
			Title:  fmt.Sprintf("W%d %s", mi.WeekNumber, mi.Name),
			ID:     mi.ID,
			Status: string(mi.Status),
		}}
		if mi.Load != nil {
			n.item.Detail = *mi.Load
		}
		micros[mi.ID] = n
		if parent, ok := mesos[mi.MesocycleID]; ok {
			parent.children = append(parent.children, n)
		} else {
			orphans = append(orphans, n)
		}
	}
	root.children = append(root.children, orphans...)

	for _, s := range tree.Sessions {
		n := &treeNode{item: TreeItem{
			Title:  s.Date + " " + sessionTitle(s),
			Status: string(s.Status),
			Detail: s.SessionType,
		}}
		switch {
		case s.MicrocycleID != nil && micros[*s.MicrocycleID] != nil:
			micros[*s.MicrocycleID].children = append(micros[*s.MicrocycleID].children, n)
		case s.MesocycleID != nil && mesos[*s.MesocycleID] != nil:
			mesos[*s.MesocycleID].children = append(mesos[*s.MesocycleID].children, n)
		default:
			root.children = append(root.children, n)
		}
	}

	var out []TreeItem
	var walk func(n *treeNode, level int, last bool, parents []bool)
	walk = func(n *treeNode, level int, last bool, parents []bool) {
		item := n.item
		item.Level = level
		item.IsLast = last
		item.ParentsLast = parents
		out = append(out, item)

		var childParents []bool
		if level > 0 {
			childParents = append(append([]bool{}, parents...), last)
		}
		for i, c := range n.children {
			walk(c, level+1, i == len(n.children)-1, childParents)
		}
	}
	walk(root, 0, true, nil)
	return out
}

func FormatPlanTree(tree *service.PlanTree) string {
	return RenderTree(PlanTreeItems(tree))
}

func FormatImportResult(r *service.ImportResult) string {
	if r == nil || r.Macrocycle == nil {
		return ""
	}
	return fmt.Sprintf("%s %s %s\n%s\n",
		StyleGreen.Render("✔ Imported"),
		Bold(r.Macrocycle.Name),
		TruncID(r.Macrocycle.ID),
		RenderFields([]Field{
			{"Mesocycles", fmt.Sprintf("%d", r.MesocycleCount)},
			{"Microcycles", fmt.Sprintf("%d", r.MicrocycleCount)},
			{"Sessions", fmt.Sprintf("%d", r.SessionCount)},
		}),
	)
}
