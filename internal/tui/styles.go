package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/quotabar/internal/display"
)

// Catppuccin Mocha.
var (
	colorMantle   = lipgloss.Color("#181825")
	colorSurface0 = lipgloss.Color("#313244")
	colorSurface1 = lipgloss.Color("#45475A")
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorDim      = lipgloss.Color("#585B70")

	colorAccent   = lipgloss.Color("#CBA6F7")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorLavender = lipgloss.Color("#B4BEFE")

	colorOK   = colorGreen
	colorWarn = colorYellow
	colorCrit = colorRed
	colorAuth = colorPeach
)

var (
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorSapphire).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	nameStyle = lipgloss.NewStyle().
			Foreground(colorText)

	selectedNameStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorLavender)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(colorAccent).
				Background(colorSurface0)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorCrit)

	authStyle = lipgloss.NewStyle().
			Foreground(colorAuth)
)

func stateColor(s display.State) lipgloss.Color {
	switch s {
	case display.StateCritical:
		return colorCrit
	case display.StateWarning:
		return colorWarn
	default:
		return colorOK
	}
}

func statePill(s display.State) string {
	return lipgloss.NewStyle().
		Foreground(colorMantle).
		Background(stateColor(s)).
		Bold(true).
		Padding(0, 1).
		Render(string(s))
}
