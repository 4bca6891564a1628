// Package display turns a snapshot into the two-line text shown in a status
// bar: weekly window on top, 5-hour window below.
package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

type State string

const (
	StateNormal   State = "normal"
	StateWarning  State = "warning"
	StateCritical State = "critical"
)

const (
	warningRatio  = 0.7
	criticalRatio = 0.9
)

// Model is what a renderer needs for one provider.
type Model struct {
	ProviderID string  `json:"provider_id"`
	TopLine    string  `json:"top_line"`
	BottomLine string  `json:"bottom_line"`
	Text       string  `json:"text"`
	Ratio      float64 `json:"ratio"`
	State      State   `json:"state"`
}

type slot struct {
	label string
	ids   []string
}

var (
	topSlot    = slot{label: "W", ids: []string{"weekly", "week", "7d", "seven_day"}}
	bottomSlot = slot{label: "H", ids: []string{"five_hour", "hour_5", "5h", "hour"}}
)

// Build formats snap. A nil snapshot yields the placeholder model.
func Build(snap *core.QuotaSnapshot) Model {
	if snap == nil {
		return Placeholder("")
	}
	top := formatSlot(snap, topSlot)
	bottom := formatSlot(snap, bottomSlot)
	ratio := snap.PrimaryUsedRatio()
	return Model{
		ProviderID: snap.ProviderID,
		TopLine:    top,
		BottomLine: bottom,
		Text:       top + " | " + bottom,
		Ratio:      ratio,
		State:      Classify(ratio),
	}
}

// Placeholder is shown while loading or after a failed fetch.
func Placeholder(providerID string) Model {
	top := emptyLine(topSlot.label)
	bottom := emptyLine(bottomSlot.label)
	return Model{
		ProviderID: providerID,
		TopLine:    top,
		BottomLine: bottom,
		Text:       top + " | " + bottom,
		State:      StateNormal,
	}
}

// Classify maps a used ratio to a severity. The ratio is clamped to [0,1].
func Classify(ratio float64) State {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	switch {
	case ratio < warningRatio:
		return StateNormal
	case ratio < criticalRatio:
		return StateWarning
	}
	return StateCritical
}

func emptyLine(label string) string {
	return label + ": -- --"
}

func findSlot(snap *core.QuotaSnapshot, s slot) (core.QuotaWindow, bool) {
	for _, id := range s.ids {
		if w, ok := snap.WindowByID(id); ok {
			return w, true
		}
	}
	for _, w := range snap.Windows {
		if w.Label == s.label {
			return w, true
		}
	}
	return core.QuotaWindow{}, false
}

func formatSlot(snap *core.QuotaSnapshot, s slot) string {
	w, ok := findSlot(snap, s)
	if !ok {
		return emptyLine(s.label)
	}
	return fmt.Sprintf("%s: %d%% %s", s.label, w.UsedPercent, FormatDuration(w.ResetAt.Sub(snap.FetchedAt)))
}

// FormatDuration renders time until reset: "2.1d", "2h", "45min".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return trimZeroDecimal(d.Hours()/24) + "d"
	case d >= time.Hour:
		return trimZeroDecimal(d.Hours()) + "h"
	}
	return strconv.Itoa(int(math.Round(d.Minutes()))) + "min"
}

func trimZeroDecimal(v float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0")
}
