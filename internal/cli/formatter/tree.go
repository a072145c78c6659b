package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeItem is a single node in a tree display.
type TreeItem struct {
	Title  string
	ID     string // shown truncated after the title; empty hides it
	Level  int
	IsLast bool
	// ParentsLast records, for each ancestor level 1..Level-1, whether that
	// ancestor was the last of its siblings. It decides between a pipe and
	// blank indentation.
	ParentsLast []bool
	Status      string
	Detail      string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// RenderTree renders items as an indented tree with box-drawing connectors.
// Completed and published items get a green ✔, cancelled and archived items
// are dimmed, and detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type line struct {
		content string
		badge   string
	}
	lines := make([]line, len(items))
	width := 0

	for idx, item := range items {
		var prefix strings.Builder
		if item.Level > 0 {
			for i := 1; i < item.Level; i++ {
				if i-1 < len(item.ParentsLast) && item.ParentsLast[i-1] {
					prefix.WriteString(treeBlank)
				} else {
					prefix.WriteString(treePipe)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}

		title := item.Title
		marker := ""
		switch strings.ToLower(item.Status) {
		case "completed", "published":
			marker = StyleGreen.Render("✔ ")
		case "cancelled", "archived":
			title = Dim(title)
		case "scheduled":
			marker = StyleBlue.Render("○ ")
		}
		if item.ID != "" {
			title += " " + TruncID(item.ID)
		}

		content := StyleDim.Render(prefix.String()) + marker + title
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}
		width = max(width, lipgloss.Width(content))
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.content)
		if l.badge != "" {
			b.WriteString(strings.Repeat(" ", width-lipgloss.Width(l.content)+2))
			b.WriteString(l.badge)
		}
		b.WriteString("\n")
	}
	return b.String()
}
