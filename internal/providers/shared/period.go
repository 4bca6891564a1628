package shared

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

// Period is the display identity of a usage period type.
type Period struct {
	Key      string // canonical window id
	Label    string
	Title    string
	Fallback time.Duration // reset fallback when the payload has none; 0 if unknown
	Priority int
}

const unknownPeriodPriority = 4

var (
	periodFiveHour = Period{Key: "five_hour", Label: "H", Title: "5-hour", Fallback: 5 * time.Hour, Priority: 0}
	periodDaily    = Period{Key: "daily", Label: "D", Title: "Daily", Fallback: 24 * time.Hour, Priority: 1}
	periodWeekly   = Period{Key: "weekly", Label: "W", Title: "Weekly", Fallback: 7 * 24 * time.Hour, Priority: 2}
	periodMonthly  = Period{Key: "monthly", Label: "M", Title: "Monthly", Fallback: 30 * 24 * time.Hour, Priority: 3}
)

var periodTable = map[string]Period{
	"hour_5":    periodFiveHour,
	"five_hour": periodFiveHour,
	"5h":        periodFiveHour,
	"hour":      periodFiveHour,
	"day":       periodDaily,
	"daily":     periodDaily,
	"week":      periodWeekly,
	"weekly":    periodWeekly,
	"month":     periodMonthly,
	"monthly":   periodMonthly,
}

// PeriodIdentity maps a provider period-type string to its label. Empty
// means the 5-hour window; unknown values keep their lowercased name as key
// and use their uppercased first letter as label.
func PeriodIdentity(raw string) Period {
	trimmed := strings.TrimSpace(raw)
	key := strings.ToLower(trimmed)
	if key == "" {
		return periodFiveHour
	}
	if p, ok := periodTable[key]; ok {
		return p
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	return Period{
		Key:      key,
		Label:    string(unicode.ToUpper(r)),
		Title:    trimmed,
		Priority: unknownPeriodPriority,
	}
}

// PeriodWindow pairs a mapped window with the period it came from.
type PeriodWindow struct {
	Period Period
	Window core.QuotaWindow
}

// SortByPeriod orders windows 5-hour, daily, weekly, monthly, then unknown
// periods alphabetically by label. Equal keys keep payload order.
func SortByPeriod(entries []PeriodWindow) []core.QuotaWindow {
	sorted := make([]PeriodWindow, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Period, sorted[j].Period
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Priority == unknownPeriodPriority {
			return a.Label < b.Label
		}
		return false
	})
	out := make([]core.QuotaWindow, len(sorted))
	for i, e := range sorted {
		out[i] = e.Window
	}
	return out
}
