package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/orchestrator"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// SyncStatusPill renders the engine status as a colored indicator.
func SyncStatusPill(s orchestrator.Status) string {
	switch s {
	case orchestrator.StatusIdle:
		return StyleGreen.Render("● Idle")
	case orchestrator.StatusSyncing:
		return StyleBlue.Render("⟳ Syncing")
	case orchestrator.StatusOffline:
		return StyleYellow.Render("○ Offline")
	case orchestrator.StatusError:
		return StyleRed.Render("✖ Error")
	default:
		return StyleDim.Render(string(s))
	}
}

func PlanningStatusPill(s domain.PlanningStatus) string {
	switch s {
	case domain.PlanningPublished:
		return StyleGreen.Render("● Published")
	case domain.PlanningDraft:
		return StyleBlue.Render("○ Draft")
	case domain.PlanningArchived:
		return StyleDim.Render("✖ Archived")
	default:
		return StyleDim.Render(string(s))
	}
}

func SessionStatusPill(s domain.SessionStatus) string {
	switch s {
	case domain.SessionScheduled:
		return StyleBlue.Render("○ Scheduled")
	case domain.SessionCompleted:
		return StyleGreen.Render("✔ Completed")
	case domain.SessionCancelled:
		return StyleDim.Render("⊘ Cancelled")
	case domain.SessionDraft:
		return StyleDim.Render("… Draft")
	default:
		return StyleDim.Render(string(s))
	}
}

// RoleBadge renders a user role; trainers stand out since their records win
// conflicts.
func RoleBadge(r domain.Role) string {
	label := string(r)
	if label == "" {
		return StyleDim.Render("--")
	}
	label = strings.ToUpper(label[:1]) + label[1:]
	if r == domain.RoleTrainer {
		return StyleYellowBold.Render(label)
	}
	return StylePurple.Render(label)
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
