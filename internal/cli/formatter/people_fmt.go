package formatter

import (
	"github.com/alexanderramin/cadence/internal/domain"
)

// FormatUsers renders users; ids in pending are marked as not yet pushed.
func FormatUsers(users []*domain.User, pending map[string]bool) string {
	if len(users) == 0 {
		return Dim("No users.") + "\n"
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		sync := StyleGreen.Render("✔")
		if pending[u.ID] {
			sync = StyleYellow.Render("↑ pending")
		}
		rows = append(rows, []string{TruncID(u.ID), Bold(u.Name), u.Email, RoleBadge(u.Role), sync})
	}
	return RenderTable([]string{"ID", "NAME", "EMAIL", "ROLE", "SYNC"}, rows)
}

// FormatAssignments renders assignments with macrocycle names resolved from
// names where known.
func FormatAssignments(list []*domain.PlanningAssignment, names map[string]string) string {
	if len(list) == 0 {
		return Dim("No assignments.") + "\n"
	}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		macro := TruncID(a.MacrocycleID)
		if n, ok := names[a.MacrocycleID]; ok {
			macro = n + " " + macro
		}
		active := Dim("○")
		if a.IsActive {
			active = StyleGreen.Render("● active")
		}
		rows = append(rows, []string{TruncID(a.ID), TruncID(a.UserID), macro, a.AssignedAt, active})
	}
	return RenderTable([]string{"ID", "USER", "MACROCYCLE", "ASSIGNED", "ACTIVE"}, rows)
}
