package zenmux

import (
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/jsonvalue"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

var (
	containerKeys = []string{"windows", "usage_windows", "periods", "items", "list"}

	periodKeys    = []string{"periodType", "period_type", "period", "type", "window"}
	percentKeys   = []string{"usedRate", "used_rate", "usage_rate", "usedPercent", "used_percent", "usage_percent", "percent"}
	usedKeys      = []string{"used", "usedAmount", "used_amount", "usage", "usedFlows", "used_flows"}
	limitKeys     = []string{"limit", "quota", "total", "totalAmount", "total_amount", "maxFlows", "max_flows"}
	remainingKeys = []string{"remaining", "remain", "remainingAmount", "remaining_amount", "left"}
	resetKeys     = []string{"cycleEndTime", "cycle_end_time", "resetAt", "reset_at", "resetTime", "reset_time", "endTime", "end_time"}
	secondsKeys   = []string{"windowSeconds", "window_seconds", "durationSeconds", "duration_seconds"}
	titleKeys     = []string{"title", "name", "label"}
	tierKeys      = []string{"tierCode", "tier_code", "tier"}
	statusKeys    = []string{"quotaStatus", "quota_status"}

	legacyPrefixes = []string{"monthly", "weekly"}
)

// usageWindow is one decoded period before inference.
type usageWindow struct {
	ID        string
	Period    string
	Percent   *float64 // 0..100
	Used      *float64
	Limit     *float64
	Remaining *float64
	ResetAt   *time.Time
	Seconds   *float64
	Unit      string
	Title     string
	Tier      string
	Status    string
}

type usagePayload struct {
	Windows []usageWindow
	Root    jsonvalue.Value
}

// decodeUsage unwraps the {success, data, message} envelope and collects
// windows from the first shape that yields any.
func decodeUsage(body []byte) (usagePayload, error) {
	root, err := jsonvalue.Parse(body)
	if err != nil {
		return usagePayload{}, core.InvalidResponse(providerID, err)
	}

	tree := root
	if root.IsObject() {
		if success, present := root.FirstBool("success"); present && !success {
			msg, _ := root.FirstText("message", "msg", "error")
			if msg == "" {
				msg = "request was not successful"
			}
			return usagePayload{}, core.APIFailure(providerID, msg)
		}
		if data, ok := root.Lookup("data"); ok {
			tree = data
		}
	}

	payload := usagePayload{Root: root}
	switch {
	case tree.IsArray():
		payload.Windows = decodeEntries(tree.Items())
	case tree.IsObject():
		if c, ok := firstContainer(tree); ok {
			payload.Windows = decodeEntries(c.Items())
		}
		if len(payload.Windows) == 0 && isFlatWindow(tree) {
			payload.Windows = []usageWindow{decodeEntry(tree)}
		}
		if len(payload.Windows) == 0 {
			payload.Windows = decodeLegacy(tree)
		}
	}
	return payload, nil
}

func firstContainer(v jsonvalue.Value) (jsonvalue.Value, bool) {
	for _, key := range containerKeys {
		if c, ok := v.Get(key); ok && c.IsArray() && len(c.Items()) > 0 {
			return c, true
		}
	}
	return jsonvalue.Value{}, false
}

func isFlatWindow(v jsonvalue.Value) bool {
	_, hasPercent := v.FirstNumber(percentKeys...)
	_, hasUsed := v.FirstNumber(usedKeys...)
	_, hasLimit := v.FirstNumber(limitKeys...)
	_, hasRemaining := v.FirstNumber(remainingKeys...)
	return hasPercent || hasUsed || hasLimit || hasRemaining
}

func decodeEntries(items []jsonvalue.Value) []usageWindow {
	objects := lo.Filter(items, func(v jsonvalue.Value, _ int) bool { return v.IsObject() })
	return lo.Map(objects, func(v jsonvalue.Value, _ int) usageWindow { return decodeEntry(v) })
}

func decodeEntry(v jsonvalue.Value) usageWindow {
	w := usageWindow{
		Used:      v.FirstNumberPtr(usedKeys...),
		Limit:     v.FirstNumberPtr(limitKeys...),
		Remaining: v.FirstNumberPtr(remainingKeys...),
		Seconds:   v.FirstNumberPtr(secondsKeys...),
	}
	w.Period, _ = v.FirstText(periodKeys...)
	w.ID = w.Period
	if pct, ok := v.FirstNumber(percentKeys...); ok {
		w.Percent = core.Float64Ptr(float64(core.PercentFromRatioOrPercent(pct)))
	}
	if t, ok := v.FirstTime(resetKeys...); ok {
		w.ResetAt = &t
	}
	w.Unit, _ = v.FirstText("unit")
	w.Title, _ = v.FirstText(titleKeys...)
	w.Tier, _ = v.FirstText(tierKeys...)
	w.Status, _ = v.FirstText(statusKeys...)
	return w
}

// decodeLegacy reads the older flat monthly_*/weekly_* layout.
func decodeLegacy(v jsonvalue.Value) []usageWindow {
	var out []usageWindow
	for _, prefix := range legacyPrefixes {
		w := usageWindow{
			ID:        prefix,
			Period:    prefix,
			Used:      v.FirstNumberPtr(prefixed(prefix, usedKeys)...),
			Limit:     v.FirstNumberPtr(prefixed(prefix, limitKeys)...),
			Remaining: v.FirstNumberPtr(prefixed(prefix, remainingKeys)...),
			Seconds:   v.FirstNumberPtr(prefixed(prefix, secondsKeys)...),
		}
		if pct, ok := v.FirstNumber(prefixed(prefix, percentKeys)...); ok {
			w.Percent = core.Float64Ptr(float64(core.PercentFromRatioOrPercent(pct)))
		}
		if w.Percent == nil && w.Used == nil && w.Limit == nil && w.Remaining == nil {
			continue
		}
		if t, ok := v.FirstTime(prefixed(prefix, resetKeys)...); ok {
			w.ResetAt = &t
		}
		w.Unit, _ = v.FirstText(prefixed(prefix, []string{"unit"})...)
		w.Tier, _ = v.FirstText(tierKeys...)
		w.Status, _ = v.FirstText(statusKeys...)
		out = append(out, w)
	}
	return out
}

// prefixed expands aliases to monthly_used and monthlyUsed forms.
func prefixed(prefix string, aliases []string) []string {
	out := make([]string, 0, len(aliases)*2)
	for _, alias := range aliases {
		out = append(out, prefix+"_"+alias)
		r := []rune(alias)
		r[0] = unicode.ToUpper(r[0])
		out = append(out, prefix+string(r))
	}
	return out
}

func mapSnapshot(payload usagePayload, fetchedAt time.Time) (core.QuotaSnapshot, error) {
	var entries []shared.PeriodWindow
	for _, w := range payload.Windows {
		period := shared.PeriodIdentity(w.Period)
		in, ok := shared.InferWindow(shared.WindowFields{
			Percent:          w.Percent,
			Used:             w.Used,
			Limit:            w.Limit,
			Remaining:        w.Remaining,
			ResetAt:          w.ResetAt,
			WindowSeconds:    w.Seconds,
			FallbackDuration: period.Fallback,
		}, fetchedAt)
		if !ok {
			continue
		}
		in.ID = lo.Ternary(strings.TrimSpace(w.ID) != "", w.ID, "hour_5")
		in.Label = period.Label
		in.Title = lo.Ternary(w.Title != "", w.Title, period.Title)
		in.Unit = w.Unit
		in.Metadata = map[string]string{"tier": w.Tier, "quota_status": w.Status}
		entries = append(entries, shared.PeriodWindow{Period: period, Window: core.NewQuotaWindow(in)})
	}

	if len(entries) == 0 {
		return core.QuotaSnapshot{}, core.MissingUsageData(providerID, payload.Root.Preview(core.MissingDataPreviewLimit))
	}
	return core.NewQuotaSnapshot(providerID, shared.SortByPeriod(entries), fetchedAt), nil
}
