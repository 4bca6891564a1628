package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/quotabar/internal/display"
)

// RenderUsageGauge fills left to right as usage grows. Color follows the
// same severity bands as the display model. A negative percent renders a
// dimmed track with "N/A".
func RenderUsageGauge(usedPercent, width int) string {
	if width < 5 {
		width = 5
	}
	if usedPercent < 0 {
		return dimStyle.Render(strings.Repeat("─", width)) + dimStyle.Render("  N/A")
	}
	if usedPercent > 100 {
		usedPercent = 100
	}

	filled := usedPercent * width / 100
	empty := width - filled
	color := stateColor(display.Classify(float64(usedPercent) / 100))

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(colorSurface1).Render(strings.Repeat("━", empty))
	pct := lipgloss.NewStyle().Foreground(color).Bold(true).Render(fmt.Sprintf("%3d%%", usedPercent))
	return bar + " " + pct
}
