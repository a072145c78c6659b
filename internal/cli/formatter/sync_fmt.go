package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/orchestrator"
)

// StatusView is everything `cadence status` shows.
type StatusView struct {
	Snapshot    orchestrator.Snapshot
	Remote      string
	DeadLetters int
	DeadAfter   int
	Now         time.Time
}

// FormatStatus renders the sync status box.
func FormatStatus(v StatusView) string {
	lastSync := Dim("never")
	if v.Snapshot.LastSync != nil {
		lastSync = HumanTimestamp(*v.Snapshot.LastSync, v.Now)
	}
	pending := fmt.Sprintf("%d", v.Snapshot.Pending)
	if v.Snapshot.Pending > 0 {
		pending = StyleYellow.Render(pending)
	}

	fields := []Field{
		{"Status", SyncStatusPill(v.Snapshot.Status)},
		{"Remote", v.Remote},
		{"Last sync", lastSync},
		{"Pending", pending},
	}
	if v.DeadAfter > 0 {
		dead := fmt.Sprintf("%d", v.DeadLetters)
		if v.DeadLetters > 0 {
			dead = StyleRed.Render(dead) + Dim(fmt.Sprintf(" (>= %d retries)", v.DeadAfter))
		}
		fields = append(fields, Field{"Stuck", dead})
	}
	if v.Snapshot.Error != "" {
		fields = append(fields, Field{"Error", StyleRed.Render(v.Snapshot.Error)})
	}
	return RenderBox("Sync", strings.TrimRight(RenderFields(fields), "\n"))
}

// FormatSyncResult renders the outcome of one sync run.
func FormatSyncResult(r orchestrator.Result, snap orchestrator.Snapshot) string {
	var b strings.Builder
	switch {
	case snap.Status == orchestrator.StatusOffline:
		b.WriteString(StyleYellow.Render("○ Offline: nothing synced"))
	case r.Errors > 0:
		b.WriteString(StyleRed.Render(fmt.Sprintf("✖ Sync finished with %d error(s)", r.Errors)))
	default:
		b.WriteString(StyleGreen.Render("✔ Sync complete"))
	}
	b.WriteString("\n")
	b.WriteString(RenderFields([]Field{
		{"Pushed", fmt.Sprintf("%d", r.Pushes)},
		{"Pulled", fmt.Sprintf("%d", r.Pulls)},
		{"Pending", fmt.Sprintf("%d", snap.Pending)},
	}))
	if snap.Error != "" {
		b.WriteString(StyleRed.Render(snap.Error) + "\n")
	}
	return b.String()
}
