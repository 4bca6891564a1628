package core

import (
	"strings"
	"time"
)

// QuotaWindow is one usage-limited period (5-hour, weekly, monthly, ...) of
// one provider. Build it with NewQuotaWindow so the invariants hold.
type QuotaWindow struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	UsedPercent int               `json:"used_percent"`
	ResetAt     time.Time         `json:"reset_at"`
	Used        *float64          `json:"used,omitempty"`
	Limit       *float64          `json:"limit,omitempty"`
	Remaining   *float64          `json:"remaining,omitempty"`
	Unit        string            `json:"unit,omitempty"`
	Title       string            `json:"title,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// WindowInput carries raw, unnormalized window values.
type WindowInput struct {
	ID          string
	Label       string
	UsedPercent int
	ResetAt     time.Time
	Used        *float64
	Limit       *float64
	Remaining   *float64
	Unit        string
	Title       string
	Metadata    map[string]string
}

// NewQuotaWindow normalizes in a fixed order: percent, limit, used,
// remaining, text fields, metadata. Used and remaining are clamped to the
// limit independently and are not forced to add up to it.
func NewQuotaWindow(in WindowInput) QuotaWindow {
	w := QuotaWindow{
		UsedPercent: ClampPercent(float64(in.UsedPercent)),
		ResetAt:     in.ResetAt,
	}
	if w.ResetAt.IsZero() {
		w.ResetAt = time.Now()
	}

	if l := PositiveNumber(in.Limit); l != nil && *l > 0 {
		w.Limit = l
	}
	w.Used = Clamp(in.Used, w.Limit)
	w.Remaining = Clamp(in.Remaining, w.Limit)
	if w.Remaining == nil && w.Limit != nil && w.Used != nil {
		w.Remaining = PositiveNumber(Float64Ptr(*w.Limit - *w.Used))
	}

	w.ID = NormalizedText(in.ID)
	w.Label = NormalizedText(in.Label)
	w.Unit = NormalizedText(in.Unit)
	w.Title = NormalizedText(in.Title)
	w.Metadata = normalizeMetadata(in.Metadata)
	return w
}

func normalizeMetadata(in map[string]string) map[string]string {
	var out map[string]string
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(in))
		}
		out[k] = v
	}
	return out
}

// QuotaSnapshot is one fetch result for one provider. Window order is
// display-significant: the first window is the primary one.
type QuotaSnapshot struct {
	ProviderID string        `json:"provider_id"`
	Windows    []QuotaWindow `json:"windows"`
	FetchedAt  time.Time     `json:"fetched_at"`
}

func NewQuotaSnapshot(providerID string, windows []QuotaWindow, fetchedAt time.Time) QuotaSnapshot {
	return QuotaSnapshot{
		ProviderID: providerID,
		Windows:    windows,
		FetchedAt:  fetchedAt,
	}
}

func (s QuotaSnapshot) PrimaryWindow() (QuotaWindow, bool) {
	if len(s.Windows) == 0 {
		return QuotaWindow{}, false
	}
	return s.Windows[0], true
}

// PrimaryUsedRatio is the primary window's used percent as a 0..1 ratio.
func (s QuotaSnapshot) PrimaryUsedRatio() float64 {
	w, ok := s.PrimaryWindow()
	if !ok {
		return 0
	}
	return float64(w.UsedPercent) / 100
}

func (s QuotaSnapshot) WindowByID(id string) (QuotaWindow, bool) {
	for _, w := range s.Windows {
		if w.ID == id {
			return w, true
		}
	}
	return QuotaWindow{}, false
}
