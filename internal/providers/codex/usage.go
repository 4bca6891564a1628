package codex

import (
	"errors"
	"fmt"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/jsonvalue"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

var (
	rateLimitKeys       = []string{"rate_limit", "rateLimit"}
	primaryWindowKeys   = []string{"primary_window", "primaryWindow"}
	secondaryWindowKeys = []string{"secondary_window", "secondaryWindow"}
	usedPercentKeys     = []string{"used_percent", "usedPercent"}
	resetAtKeys         = []string{"reset_at", "resetAt", "resets_at"}
	resetAfterKeys      = []string{"reset_after_seconds", "resetAfterSeconds"}
	windowSecondsKeys   = []string{"limit_window_seconds", "limitWindowSeconds", "window_seconds"}
	planTypeKeys        = []string{"plan_type", "planType"}
)

type usageWindow struct {
	UsedPercent       *float64
	ResetAt           *time.Time
	ResetAfterSeconds *float64
	WindowSeconds     *float64
}

type usageCredits struct {
	HasCredits bool
	Unlimited  bool
	Balance    *float64
}

type usagePayload struct {
	Primary   *usageWindow
	Secondary *usageWindow
	PlanType  string
	Email     string
	Credits   *usageCredits
}

func decodeUsage(body []byte) (usagePayload, error) {
	root, err := jsonvalue.Parse(body)
	if err != nil {
		return usagePayload{}, core.InvalidResponse(providerID, err)
	}
	if !root.IsObject() {
		return usagePayload{}, core.InvalidResponse(providerID, errors.New("usage payload is not an object"))
	}

	var payload usagePayload
	payload.PlanType, _ = root.FirstText(planTypeKeys...)
	payload.Email, _ = root.FirstText("email")

	if rl, ok := root.Lookup(rateLimitKeys...); ok {
		if w, ok := rl.Lookup(primaryWindowKeys...); ok {
			payload.Primary = decodeWindow(w)
		}
		if w, ok := rl.Lookup(secondaryWindowKeys...); ok {
			payload.Secondary = decodeWindow(w)
		}
	}

	if c, ok := root.Lookup("credits"); ok && c.IsObject() {
		credits := &usageCredits{Balance: c.FirstNumberPtr("balance")}
		credits.HasCredits, _ = c.FirstBool("has_credits", "hasCredits")
		credits.Unlimited, _ = c.FirstBool("unlimited")
		payload.Credits = credits
	}
	return payload, nil
}

func decodeWindow(v jsonvalue.Value) *usageWindow {
	if !v.IsObject() {
		return nil
	}
	w := &usageWindow{
		UsedPercent:       v.FirstNumberPtr(usedPercentKeys...),
		ResetAfterSeconds: v.FirstNumberPtr(resetAfterKeys...),
		WindowSeconds:     v.FirstNumberPtr(windowSecondsKeys...),
	}
	if t, ok := v.FirstTime(resetAtKeys...); ok {
		w.ResetAt = &t
	}
	return w
}

type slot struct {
	id       string
	label    string
	title    string
	fallback time.Duration
}

var (
	primarySlot   = slot{id: "five_hour", label: "H", title: "5-hour", fallback: 5 * time.Hour}
	secondarySlot = slot{id: "weekly", label: "W", title: "Weekly", fallback: 7 * 24 * time.Hour}
)

// mapSnapshot requires a primary window; the weekly window is optional.
func mapSnapshot(payload usagePayload, fetchedAt time.Time) (core.QuotaSnapshot, error) {
	primary, ok := mapWindow(payload.Primary, primarySlot, fetchedAt)
	if !ok {
		return core.QuotaSnapshot{}, core.MissingPrimaryWindow(providerID)
	}
	primary.Metadata = accountMetadata(payload)

	windows := []core.QuotaWindow{core.NewQuotaWindow(primary)}
	if secondary, ok := mapWindow(payload.Secondary, secondarySlot, fetchedAt); ok {
		windows = append(windows, core.NewQuotaWindow(secondary))
	}
	return core.NewQuotaSnapshot(providerID, windows, fetchedAt), nil
}

func mapWindow(w *usageWindow, s slot, fetchedAt time.Time) (core.WindowInput, bool) {
	if w == nil || w.UsedPercent == nil {
		return core.WindowInput{}, false
	}

	resetAfter := w.ResetAfterSeconds
	if w.ResetAt != nil || resetAfter == nil || *resetAfter <= 0 {
		resetAfter = w.WindowSeconds
	}
	in, ok := shared.InferWindow(shared.WindowFields{
		Percent:          w.UsedPercent,
		ResetAt:          w.ResetAt,
		WindowSeconds:    resetAfter,
		FallbackDuration: s.fallback,
	}, fetchedAt)
	if !ok {
		return core.WindowInput{}, false
	}
	in.ID = s.id
	in.Label = s.label
	in.Title = s.title
	in.Unit = "%"
	return in, true
}

func accountMetadata(payload usagePayload) map[string]string {
	md := map[string]string{
		"plan":  payload.PlanType,
		"email": payload.Email,
	}
	if c := payload.Credits; c != nil {
		switch {
		case c.Unlimited:
			md["credits"] = "unlimited"
		case c.HasCredits:
			md["credits"] = "available"
			if c.Balance != nil {
				md["credit_balance"] = formatCreditsBalance(*c.Balance)
			}
		default:
			md["credits"] = "none"
		}
	}
	return md
}

func formatCreditsBalance(balance float64) string {
	return fmt.Sprintf("$%.2f", balance)
}
