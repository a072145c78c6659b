package formatter

import (
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
)

// FormatOutbox renders queued entries in drain order. Entries at or above
// deadAfter retries are flagged; deadAfter 0 disables the flag.
func FormatOutbox(entries []domain.OutboxEntry, deadAfter int, now time.Time) string {
	if len(entries) == 0 {
		return Dim("Outbox is empty.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		retries := fmt.Sprintf("%d", e.Retries)
		switch {
		case deadAfter > 0 && e.Retries >= deadAfter:
			retries = StyleRed.Render(retries + " ✖")
		case e.Retries > 0:
			retries = StyleYellow.Render(retries)
		}
		lastErr := Dim("--")
		if e.LastError != "" {
			lastErr = StyleRed.Render(Truncate(e.LastError, 48))
		}
		rows = append(rows, []string{
			TruncID(e.ID),
			string(e.Table),
			operationLabel(e.Operation),
			TruncID(domain.PayloadID(e.Payload)),
			HumanTimestamp(time.Unix(0, e.CreatedAt), now),
			retries,
			lastErr,
		})
	}
	return RenderTable([]string{"ID", "TABLE", "OP", "RECORD", "QUEUED", "RETRIES", "LAST ERROR"}, rows) +
		Dim(fmt.Sprintf("%d pending", len(entries))) + "\n"
}

func operationLabel(op domain.Operation) string {
	switch op {
	case domain.OpInsert:
		return StyleGreen.Render("+ insert")
	case domain.OpUpdate:
		return StyleBlue.Render("~ update")
	case domain.OpDelete:
		return StyleRed.Render("- delete")
	default:
		return string(op)
	}
}
