// Package tui renders live quota windows for every configured provider.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/display"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ResultsMsg carries the engine's latest results after a refresh round.
type ResultsMsg []core.Result

// ProvidersMsg replaces the provider order, e.g. after a config reload.
type ProvidersMsg []string

const gaugeWidth = 24

type Model struct {
	order    []string
	results  map[string]core.Result
	lastGood map[string]*core.QuotaSnapshot // survives failed fetches

	cursor     int
	showHelp   bool
	width      int
	height     int
	animFrame  int
	refreshing bool
	hasData    bool
	lastUpdate time.Time

	now       func() time.Time
	onRefresh func()
}

func NewModel(providerIDs []string) Model {
	return Model{
		order:    append([]string(nil), providerIDs...),
		results:  make(map[string]core.Result),
		lastGood: make(map[string]*core.QuotaSnapshot),
		now:      time.Now,
	}
}

// SetOnRefresh sets the callback for a manual refresh ("r").
func (m *Model) SetOnRefresh(fn func()) {
	m.onRefresh = fn
}

func (m Model) Init() tea.Cmd { return tickCmd() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.animFrame++
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ResultsMsg:
		m = m.applyResults(msg)
		return m, nil

	case ProvidersMsg:
		m.order = append([]string(nil), msg...)
		m.cursor = clamp(m.cursor, 0, len(m.order)-1)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) applyResults(results []core.Result) Model {
	if m.results == nil {
		m.results = make(map[string]core.Result)
	}
	if m.lastGood == nil {
		m.lastGood = make(map[string]*core.QuotaSnapshot)
	}
	for _, r := range results {
		m.results[r.ProviderID] = r
		if r.Snapshot != nil {
			m.lastGood[r.ProviderID] = r.Snapshot
		}
	}
	m.refreshing = false
	m.hasData = true
	m.lastUpdate = m.clock()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "?" {
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.order)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.order)-1, 0)
	case "r":
		m = m.requestRefresh()
	}
	return m, nil
}

func (m Model) requestRefresh() Model {
	m.refreshing = true
	if m.onRefresh != nil {
		m.onRefresh()
	}
	return m
}

func (m Model) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m Model) View() string {
	if m.width > 0 && (m.width < 30 || m.height < 8) {
		return dimStyle.Render("\n  Terminal too small. Resize to at least 30×8.")
	}
	if m.showHelp {
		return m.renderHelp()
	}

	w := m.width
	if w <= 0 {
		w = 80
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(w))
	b.WriteString("\n")
	if len(m.order) == 0 {
		b.WriteString(dimStyle.Render("  No providers enabled. Edit the config to enable one."))
		b.WriteString("\n")
	}
	for i, id := range m.order {
		b.WriteString(m.renderCard(id, i == m.cursor, w))
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) displayModel(id string) display.Model {
	if snap := m.lastGood[id]; snap != nil {
		return display.Build(snap)
	}
	return display.Placeholder(id)
}

func (m Model) renderHeader(w int) string {
	left := brandStyle.Render("⚡ quotabar")
	if m.refreshing || !m.hasData {
		left += " " + lipgloss.NewStyle().Foreground(colorAccent).Render(spinnerFrames[m.animFrame%len(spinnerFrames)])
	}

	states := lo.CountValuesBy(m.order, func(id string) display.State {
		return m.displayModel(id).State
	})
	failed := lo.CountBy(m.order, func(id string) bool {
		r, ok := m.results[id]
		return ok && r.Err != nil
	})
	var counts []string
	for _, s := range []display.State{display.StateNormal, display.StateWarning, display.StateCritical} {
		if n := states[s]; n > 0 {
			counts = append(counts, lipgloss.NewStyle().Foreground(stateColor(s)).Render(fmt.Sprintf("%d %s", n, s)))
		}
	}
	if failed > 0 {
		counts = append(counts, errorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if len(counts) > 0 {
		left += "  " + strings.Join(counts, dimStyle.Render(" · "))
	}

	right := ""
	if !m.lastUpdate.IsZero() {
		right = dimStyle.Render("updated " + m.lastUpdate.Format("15:04:05"))
	}
	gap := max(w-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderCard(id string, selected bool, w int) string {
	dm := m.displayModel(id)
	name := nameStyle.Render(id)
	if selected {
		name = selectedNameStyle.Render(id)
	}

	lines := []string{name + "  " + statePill(dm.State) + "  " + valueStyle.Render(dm.Text)}

	if snap := m.lastGood[id]; snap != nil {
		now := m.clock()
		for _, win := range snap.Windows {
			label := win.Label
			if win.Title != "" {
				label = win.Title
			}
			line := labelStyle.Render(fmt.Sprintf("%-16s", lo.Ellipsis(label, 16))) + " " + RenderUsageGauge(win.UsedPercent, gaugeWidth)
			line += dimStyle.Render("  resets in " + display.FormatDuration(win.ResetAt.Sub(now)))
			if amount := formatAmount(win); amount != "" {
				line += dimStyle.Render("  " + amount)
			}
			lines = append(lines, line)
		}
	} else if _, ok := m.results[id]; !ok {
		lines = append(lines, dimStyle.Render("loading…"))
	}

	if r, ok := m.results[id]; ok && r.Err != nil {
		lines = append(lines, renderError(r.Err))
	}

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Width(max(w-2, 20)).Render(strings.Join(lines, "\n"))
}

func renderError(err error) string {
	msg := lo.Ellipsis(err.Error(), 100)
	switch {
	case core.NeedsReauth(err):
		return authStyle.Render("⚠ " + msg)
	case core.IsNoData(err):
		return dimStyle.Render("○ " + msg)
	default:
		return errorStyle.Render("✗ " + msg)
	}
}

func formatAmount(w core.QuotaWindow) string {
	if w.Used == nil || w.Limit == nil {
		return ""
	}
	out := fmt.Sprintf("%s/%s", compactNumber(*w.Used), compactNumber(*w.Limit))
	if w.Unit != "" && w.Unit != "%" {
		out += " " + w.Unit
	}
	return out
}

func compactNumber(v float64) string {
	switch {
	case v >= 1_000_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", v/1_000_000), ".0") + "M"
	case v >= 10_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", v/1_000), ".0") + "k"
	default:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
	}
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"↑/↓", "select"},
		{"r", "refresh"},
		{"?", "help"},
		{"q", "quit"},
	}
	parts := lo.Map(keys, func(k struct{ key, desc string }, _ int) string {
		return helpKeyStyle.Render(k.key) + " " + helpStyle.Render(k.desc)
	})
	return " " + strings.Join(parts, helpStyle.Render("  "))
}

func (m Model) renderHelp() string {
	rows := [][2]string{
		{"↑/k ↓/j", "move selection"},
		{"g / G", "first / last provider"},
		{"r", "refresh all providers now"},
		{"?", "toggle this help"},
		{"q / esc", "quit"},
	}
	var b strings.Builder
	b.WriteString(brandStyle.Render("quotabar keys"))
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(helpKeyStyle.Render(fmt.Sprintf("  %-10s", row[0])))
		b.WriteString(labelStyle.Render(row[1]))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("  W is the weekly window, H the 5-hour window. Severity follows the primary window."))
	return b.String()
}

func clamp(val, low, high int) int {
	if high < low {
		return low
	}
	if val < low {
		return low
	}
	if val > high {
		return high
	}
	return val
}
