package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a progress bar like [████░░░░] 45%.
// The bar is green above 66%, yellow from 33% and red below.
func RenderProgress(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	width = max(width, 2)

	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}

// Elapsed is the fraction of the inclusive date range [start, end] that has
// passed at now. Invalid ranges report 0.
func Elapsed(start, end string, now time.Time) float64 {
	s, err := time.ParseInLocation(domain.DateLayout, start, now.Location())
	if err != nil {
		return 0
	}
	e, err := time.ParseInLocation(domain.DateLayout, end, now.Location())
	if err != nil || e.Before(s) {
		return 0
	}
	e = e.AddDate(0, 0, 1)
	switch {
	case !now.After(s):
		return 0
	case !now.Before(e):
		return 1
	}
	return float64(now.Sub(s)) / float64(e.Sub(s))
}
