package tui

import (
	"strings"
	"testing"
)

func TestRenderUsageGauge_Percent(t *testing.T) {
	out := RenderUsageGauge(50, 20)
	if !strings.Contains(out, " 50%") {
		t.Fatalf("output should contain ' 50%%', got %q", out)
	}
}

func TestRenderUsageGauge_ClampsAbove100(t *testing.T) {
	out := RenderUsageGauge(140, 20)
	if !strings.Contains(out, "100%") {
		t.Fatalf("output should clamp to 100%%, got %q", out)
	}
}

func TestRenderUsageGauge_Unknown(t *testing.T) {
	out := RenderUsageGauge(-1, 10)
	if !strings.Contains(out, "N/A") {
		t.Fatalf("negative percent should render N/A, got %q", out)
	}
}

func TestRenderUsageGauge_MinWidth(t *testing.T) {
	out := RenderUsageGauge(100, 1)
	if strings.Count(out, "━") != 5 {
		t.Fatalf("width below 5 should render 5 cells, got %q", out)
	}
}
