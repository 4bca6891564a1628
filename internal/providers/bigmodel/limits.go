package bigmodel

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/jsonvalue"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

var (
	limitKeys     = []string{"usage", "limit", "quota", "total"}
	usedKeys      = []string{"currentValue", "current_value", "current", "used"}
	remainingKeys = []string{"remaining", "remain"}
	percentKeys   = []string{"percentage", "usedPercent", "used_percent"}
	resetKeys     = []string{"nextResetTime", "next_reset_time", "resetTime", "reset_at"}
)

type windowKind int

const (
	tokenWindow windowKind = iota
	timeWindow
)

type windowSpec struct {
	id       string
	label    string
	title    string
	unit     string
	fallback time.Duration
}

var windowSpecs = map[windowKind]windowSpec{
	tokenWindow: {id: "five_hour", label: "H", title: "5-hour tokens", unit: "tokens", fallback: 5 * time.Hour},
	timeWindow:  {id: "monthly", label: "M", title: "Monthly tool time", unit: "minutes", fallback: 30 * 24 * time.Hour},
}

type quotaLimit struct {
	Kind      windowKind
	Limit     *float64
	Used      *float64
	Remaining *float64
	Percent   *float64 // 0..100
	ResetAt   *time.Time
	Unit      string
}

type limitsPayload struct {
	Limits []quotaLimit
	Plan   string
	Root   jsonvalue.Value
}

func decodeLimits(body []byte) (limitsPayload, error) {
	root, err := jsonvalue.Parse(body)
	if err != nil {
		return limitsPayload{}, core.InvalidResponse(providerID, err)
	}
	if !root.IsObject() {
		return limitsPayload{}, core.InvalidResponse(providerID, errors.New("quota payload is not an object"))
	}

	success, hasSuccess := root.FirstBool("success")
	code, hasCode := root.FirstNumber("code")
	if (hasSuccess && !success) || (hasCode && code != 200) {
		msg, _ := root.FirstText("msg", "message")
		if msg == "" {
			msg = fmt.Sprintf("code %v", code)
		}
		return limitsPayload{}, core.APIFailure(providerID, msg)
	}

	payload := limitsPayload{Root: root}
	payload.Plan, _ = textAt(root, "data.level")

	limits, ok := root.Path("data.limits")
	if !ok {
		limits, ok = root.Get("limits")
	}
	if !ok || !limits.IsArray() {
		return payload, nil
	}

	if entry, ok := findByType(limits.Items(), "TOKEN"); ok {
		payload.Limits = append(payload.Limits, decodeLimit(entry, tokenWindow))
	}
	if entry, ok := findByType(limits.Items(), "TIME"); ok {
		payload.Limits = append(payload.Limits, decodeLimit(entry, timeWindow))
	}
	return payload, nil
}

func textAt(v jsonvalue.Value, path string) (string, bool) {
	got, ok := v.Path(path)
	if !ok {
		return "", false
	}
	return got.Text()
}

func findByType(items []jsonvalue.Value, marker string) (jsonvalue.Value, bool) {
	for _, item := range items {
		typ, _ := item.FirstText("type")
		if strings.Contains(strings.ToUpper(typ), marker) {
			return item, true
		}
	}
	return jsonvalue.Value{}, false
}

func decodeLimit(item jsonvalue.Value, kind windowKind) quotaLimit {
	l := quotaLimit{
		Kind:      kind,
		Limit:     item.FirstNumberPtr(limitKeys...),
		Used:      item.FirstNumberPtr(usedKeys...),
		Remaining: item.FirstNumberPtr(remainingKeys...),
		Unit:      decodeUnit(item, kind),
	}
	if pct, ok := item.FirstNumber(percentKeys...); ok {
		l.Percent = core.Float64Ptr(float64(core.PercentFromRatioOrPercent(pct)))
	}
	if t, ok := item.FirstTime(resetKeys...); ok {
		l.ResetAt = &t
	}
	return l
}

// decodeUnit maps numeric unit codes (3 tokens, 1 minutes) and falls back
// to unit names, then to the window kind.
func decodeUnit(item jsonvalue.Value, kind windowKind) string {
	if raw, ok := item.Get("unit"); ok {
		if code, ok := raw.Number(); ok && raw.Kind() == jsonvalue.Number {
			switch code {
			case 3:
				return "tokens"
			case 1:
				return "minutes"
			}
		} else if name, ok := raw.Text(); ok {
			name = strings.ToLower(name)
			switch {
			case strings.HasPrefix(name, "token"):
				return "tokens"
			case strings.HasPrefix(name, "min"), strings.HasPrefix(name, "time"):
				return "minutes"
			}
		}
	}
	return windowSpecs[kind].unit
}

func mapSnapshot(payload limitsPayload, fetchedAt time.Time) (core.QuotaSnapshot, error) {
	var windows []core.QuotaWindow
	for _, l := range payload.Limits {
		spec := windowSpecs[l.Kind]
		in, ok := shared.InferWindow(shared.WindowFields{
			Percent:          l.Percent,
			Used:             l.Used,
			Limit:            l.Limit,
			Remaining:        l.Remaining,
			ResetAt:          l.ResetAt,
			FallbackDuration: spec.fallback,
		}, fetchedAt)
		if !ok {
			continue
		}
		in.ID = spec.id
		in.Label = spec.label
		in.Title = spec.title
		in.Unit = l.Unit
		in.Metadata = map[string]string{"plan": payload.Plan}
		windows = append(windows, core.NewQuotaWindow(in))
	}

	if len(windows) == 0 {
		return core.QuotaSnapshot{}, core.MissingUsageData(providerID, payload.Root.Preview(core.MissingDataPreviewLimit))
	}
	return core.NewQuotaSnapshot(providerID, windows, fetchedAt), nil
}
