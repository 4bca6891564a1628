package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

var fixedNow = time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

func testModel(ids ...string) Model {
	m := NewModel(ids)
	m.now = func() time.Time { return fixedNow }
	m.width, m.height = 120, 40
	return m
}

func codexResult() core.Result {
	snap := core.NewQuotaSnapshot("codex", []core.QuotaWindow{
		core.NewQuotaWindow(core.WindowInput{ID: "five_hour", Label: "H", UsedPercent: 13, ResetAt: fixedNow.Add(2 * time.Hour)}),
		core.NewQuotaWindow(core.WindowInput{ID: "weekly", Label: "W", UsedPercent: 20, ResetAt: fixedNow.Add(50 * time.Hour)}),
	}, fixedNow)
	return core.Result{ProviderID: "codex", Snapshot: &snap, FetchedAt: fixedNow}
}

func TestRequestRefreshInvokesCallback(t *testing.T) {
	m := Model{}

	refreshCalls := 0
	m.SetOnRefresh(func() {
		refreshCalls++
	})

	updated := m.requestRefresh()
	if !updated.refreshing {
		t.Fatal("refreshing = false, want true")
	}
	if refreshCalls != 1 {
		t.Fatalf("refresh callback calls = %d, want 1", refreshCalls)
	}
}

func TestResultsMsgRendersDisplayText(t *testing.T) {
	m := testModel("codex", "zenmux")

	next, _ := m.Update(ResultsMsg{
		codexResult(),
		{ProviderID: "zenmux", Err: core.MissingCredentials("zenmux", "no ZenMux cookie found")},
	})
	m = next.(Model)

	if !m.hasData {
		t.Fatal("hasData = false after ResultsMsg")
	}
	view := m.View()
	for _, want := range []string{"W: 20% 2.1d | H: 13% 2h", "no ZenMux cookie found", "W: -- -- | H: -- --", "updated 12:00:00"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestFailedFetchKeepsLastGoodSnapshot(t *testing.T) {
	m := testModel("codex")
	m = m.applyResults([]core.Result{codexResult()})
	m = m.applyResults([]core.Result{{ProviderID: "codex", Err: core.Timeout("codex", nil)}})

	view := m.View()
	if !strings.Contains(view, "W: 20%") {
		t.Fatalf("stale snapshot not shown:\n%s", view)
	}
	if !strings.Contains(view, "timeout") {
		t.Fatalf("error line not shown:\n%s", view)
	}
}

func TestKeyNavigationClamps(t *testing.T) {
	m := testModel("codex", "zenmux", "minimax")

	press := func(m Model, key string) Model {
		var msg tea.KeyMsg
		switch key {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		next, _ := m.Update(msg)
		return next.(Model)
	}

	m = press(m, "up")
	if m.cursor != 0 {
		t.Fatalf("cursor = %d after up at top, want 0", m.cursor)
	}
	m = press(press(press(m, "down"), "down"), "down")
	if m.cursor != 2 {
		t.Fatalf("cursor = %d after moving past end, want 2", m.cursor)
	}
	m = press(m, "g")
	if m.cursor != 0 {
		t.Fatalf("cursor = %d after g, want 0", m.cursor)
	}
	m = press(m, "?")
	if !m.showHelp {
		t.Fatal("help not shown after ?")
	}
	if !strings.Contains(m.View(), "quotabar keys") {
		t.Fatal("help view not rendered")
	}
}

func TestQuitKey(t *testing.T) {
	m := testModel("codex")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not produce tea.QuitMsg")
	}
}

func TestProvidersMsgClampsCursor(t *testing.T) {
	m := testModel("codex", "zenmux", "minimax")
	m.cursor = 2

	next, _ := m.Update(ProvidersMsg{"codex"})
	m = next.(Model)
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
	if len(m.order) != 1 {
		t.Fatalf("order = %v", m.order)
	}
}

func TestTooSmallTerminal(t *testing.T) {
	m := testModel("codex")
	m.width, m.height = 20, 5
	if !strings.Contains(m.View(), "Terminal too small") {
		t.Fatal("expected too-small notice")
	}
}

func TestFormatAmount(t *testing.T) {
	w := core.NewQuotaWindow(core.WindowInput{
		ID: "monthly", Label: "M", UsedPercent: 20,
		Used: core.Float64Ptr(4_000_000), Limit: core.Float64Ptr(20_000_000), Unit: "tokens",
	})
	if got := formatAmount(w); got != "4M/20M tokens" {
		t.Fatalf("formatAmount = %q", got)
	}
	if got := compactNumber(1500); got != "1500" {
		t.Fatalf("compactNumber(1500) = %q", got)
	}
	if got := compactNumber(12_500); got != "12.5k" {
		t.Fatalf("compactNumber(12500) = %q", got)
	}
}
