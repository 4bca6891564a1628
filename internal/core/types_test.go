package core

import (
	"math"
	"testing"
	"time"
)

func TestNewQuotaWindow_ClampsPercent(t *testing.T) {
	for _, tc := range []struct {
		in, want int
	}{
		{120, 100},
		{-10, 0},
		{0, 0},
		{100, 100},
		{42, 42},
	} {
		w := NewQuotaWindow(WindowInput{ID: "x", UsedPercent: tc.in, ResetAt: time.Unix(1, 0)})
		if w.UsedPercent != tc.want {
			t.Errorf("UsedPercent(%d) = %d, want %d", tc.in, w.UsedPercent, tc.want)
		}
		again := NewQuotaWindow(WindowInput{UsedPercent: w.UsedPercent})
		if again.UsedPercent != w.UsedPercent {
			t.Errorf("clamping not idempotent for %d", tc.in)
		}
	}
}

func TestNewQuotaWindow_UsedNeverExceedsLimit(t *testing.T) {
	for _, used := range []float64{0, 10, 99.9, 100, 150, 1e9} {
		w := NewQuotaWindow(WindowInput{Used: Float64Ptr(used), Limit: Float64Ptr(100)})
		if w.Used == nil || *w.Used > *w.Limit {
			t.Errorf("used=%v: got %v with limit %v", used, w.Used, *w.Limit)
		}
	}
}

func TestNewQuotaWindow_LimitPositiveOnly(t *testing.T) {
	w := NewQuotaWindow(WindowInput{Limit: Float64Ptr(0), Used: Float64Ptr(5)})
	if w.Limit != nil {
		t.Fatalf("zero limit should be absent, got %v", *w.Limit)
	}
	if w.Used == nil || *w.Used != 5 {
		t.Fatalf("used without limit should pass through, got %v", w.Used)
	}
	if w.Remaining != nil {
		t.Fatalf("remaining cannot be inferred without limit, got %v", *w.Remaining)
	}

	w = NewQuotaWindow(WindowInput{Limit: Float64Ptr(-5)})
	if w.Limit != nil {
		t.Fatal("negative limit should be absent")
	}
}

func TestNewQuotaWindow_RemainingInference(t *testing.T) {
	w := NewQuotaWindow(WindowInput{Limit: Float64Ptr(100), Used: Float64Ptr(30)})
	if w.Remaining == nil || *w.Remaining != 70 {
		t.Fatalf("inferred remaining = %v, want 70", w.Remaining)
	}

	w = NewQuotaWindow(WindowInput{Limit: Float64Ptr(100), Used: Float64Ptr(30), Remaining: Float64Ptr(500)})
	if *w.Remaining != 100 {
		t.Fatalf("raw remaining should be clamped to limit, got %v", *w.Remaining)
	}

	// Inconsistent upstream data is kept as-is, not forced to sum to limit.
	w = NewQuotaWindow(WindowInput{Limit: Float64Ptr(100), Used: Float64Ptr(30), Remaining: Float64Ptr(50)})
	if *w.Used != 30 || *w.Remaining != 50 {
		t.Fatalf("used/remaining = %v/%v, want 30/50", *w.Used, *w.Remaining)
	}

	w = NewQuotaWindow(WindowInput{Limit: Float64Ptr(100), Used: Float64Ptr(30), Remaining: Float64Ptr(math.NaN())})
	if w.Remaining == nil || *w.Remaining != 70 {
		t.Fatalf("NaN remaining should fall back to inference, got %v", w.Remaining)
	}
}

func TestNewQuotaWindow_TextAndMetadata(t *testing.T) {
	w := NewQuotaWindow(WindowInput{
		ID:    " weekly ",
		Label: "W",
		Unit:  "   ",
		Title: " Weekly ",
		Metadata: map[string]string{
			"plan":  " pro ",
			"model": "   ",
			"  ":    "x",
		},
	})
	if w.ID != "weekly" || w.Title != "Weekly" {
		t.Errorf("ID/Title = %q/%q", w.ID, w.Title)
	}
	if w.Unit != "" {
		t.Errorf("blank unit should be absent, got %q", w.Unit)
	}
	if len(w.Metadata) != 1 || w.Metadata["plan"] != "pro" {
		t.Errorf("Metadata = %v", w.Metadata)
	}

	w = NewQuotaWindow(WindowInput{Metadata: map[string]string{"k": " "}})
	if w.Metadata != nil {
		t.Errorf("empty metadata should be nil, got %#v", w.Metadata)
	}
}

func TestNewQuotaWindow_DefaultsResetToNow(t *testing.T) {
	before := time.Now()
	w := NewQuotaWindow(WindowInput{ID: "x"})
	if w.ResetAt.Before(before) {
		t.Fatalf("ResetAt = %v, want >= %v", w.ResetAt, before)
	}
}

func TestQuotaSnapshot_Primary(t *testing.T) {
	empty := NewQuotaSnapshot("codex", nil, time.Now())
	if _, ok := empty.PrimaryWindow(); ok {
		t.Fatal("expected no primary window")
	}
	if empty.PrimaryUsedRatio() != 0 {
		t.Fatalf("PrimaryUsedRatio() = %v, want 0", empty.PrimaryUsedRatio())
	}

	snap := NewQuotaSnapshot("codex", []QuotaWindow{
		NewQuotaWindow(WindowInput{ID: "weekly", UsedPercent: 20}),
		NewQuotaWindow(WindowInput{ID: "five_hour", UsedPercent: 13}),
	}, time.Now())
	w, ok := snap.PrimaryWindow()
	if !ok || w.ID != "weekly" {
		t.Fatalf("PrimaryWindow() = %v, %v", w.ID, ok)
	}
	if math.Abs(snap.PrimaryUsedRatio()-0.2) > 1e-9 {
		t.Fatalf("PrimaryUsedRatio() = %v, want 0.2", snap.PrimaryUsedRatio())
	}
	if _, ok := snap.WindowByID("five_hour"); !ok {
		t.Fatal("WindowByID(five_hour) not found")
	}
}
