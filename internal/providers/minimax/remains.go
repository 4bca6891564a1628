package minimax

import (
	"errors"
	"fmt"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/jsonvalue"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

var (
	statusCodeKeys = []string{"status_code", "statusCode"}
	statusMsgKeys  = []string{"status_msg", "statusMsg", "message", "msg"}
	entriesKeys    = []string{"model_remains", "modelRemains"}

	totalKeys       = []string{"current_interval_total_count", "currentIntervalTotalCount", "total_count", "total"}
	remainingKeys   = []string{"current_interval_remaining_count", "currentIntervalRemainingCount", "remaining_count", "remain", "remaining"}
	usedKeys        = []string{"current_interval_used_count", "currentIntervalUsedCount", "used_count", "used"}
	legacyUsageKeys = []string{"current_interval_usage_count", "currentIntervalUsageCount"}
	endTimeKeys     = []string{"end_time", "endTime"}
	remainsTimeKeys = []string{"remains_time", "remainsTime"}
	periodKeys      = []string{"period_type", "periodType", "interval_type", "window_type"}
	modelKeys       = []string{"model_name", "modelName", "model"}
)

type modelRemain struct {
	Model     string
	Period    string
	Total     float64
	Used      *float64
	Remaining *float64
	EndTime   *time.Time
	// RemainsMillis is the time left in the interval, relative to the fetch.
	RemainsMillis *float64
}

type remainsPayload struct {
	Entry *modelRemain
	Root  jsonvalue.Value
}

func decodeRemains(body []byte) (remainsPayload, error) {
	root, err := jsonvalue.Parse(body)
	if err != nil {
		return remainsPayload{}, core.InvalidResponse(providerID, err)
	}
	if !root.IsObject() {
		return remainsPayload{}, core.InvalidResponse(providerID, errors.New("remains payload is not an object"))
	}

	if err := checkStatus(root); err != nil {
		return remainsPayload{}, err
	}

	payload := remainsPayload{Root: root}
	entries, ok := root.Lookup(entriesKeys...)
	if !ok {
		entries, ok = root.Path("data.model_remains")
	}
	if !ok || !entries.IsArray() {
		return payload, nil
	}

	for _, item := range entries.Items() {
		if !item.IsObject() {
			continue
		}
		total, ok := item.FirstNumber(totalKeys...)
		if !ok || total <= 0 {
			continue
		}
		payload.Entry = decodeEntry(item, total)
		break
	}
	return payload, nil
}

// checkStatus fails on a non-zero base_resp status. A missing status block
// is treated as success.
func checkStatus(root jsonvalue.Value) error {
	status := root
	if base, ok := root.Get("base_resp"); ok && base.IsObject() {
		status = base
	}
	code, ok := status.FirstNumber(statusCodeKeys...)
	if !ok || code == 0 {
		return nil
	}
	msg, _ := status.FirstText(statusMsgKeys...)
	if msg == "" {
		msg = fmt.Sprintf("status code %v", code)
	}
	return core.APIFailure(providerID, msg)
}

// decodeEntry resolves used and remaining in tiers. The legacy
// current_interval_usage_count field counts what is left, not what was used.
func decodeEntry(item jsonvalue.Value, total float64) *modelRemain {
	e := &modelRemain{Total: total}
	e.Model, _ = item.FirstText(modelKeys...)
	e.Period, _ = item.FirstText(periodKeys...)

	switch {
	case item.FirstNumberPtr(remainingKeys...) != nil:
		e.Remaining = item.FirstNumberPtr(remainingKeys...)
		e.Used = item.FirstNumberPtr(usedKeys...)
	case item.FirstNumberPtr(usedKeys...) != nil:
		e.Used = item.FirstNumberPtr(usedKeys...)
	default:
		e.Remaining = item.FirstNumberPtr(legacyUsageKeys...)
	}

	if t, ok := item.FirstTime(endTimeKeys...); ok {
		e.EndTime = &t
	}
	e.RemainsMillis = item.FirstNumberPtr(remainsTimeKeys...)
	return e
}

func mapSnapshot(payload remainsPayload, fetchedAt time.Time) (core.QuotaSnapshot, error) {
	e := payload.Entry
	if e == nil {
		return core.QuotaSnapshot{}, core.MissingUsageData(providerID, payload.Root.Preview(core.MissingDataPreviewLimit))
	}

	period := shared.PeriodIdentity(e.Period)
	var windowSeconds *float64
	if e.RemainsMillis != nil && *e.RemainsMillis > 0 {
		windowSeconds = core.Float64Ptr(*e.RemainsMillis / 1000)
	}

	in, ok := shared.InferWindow(shared.WindowFields{
		Used:             e.Used,
		Limit:            core.Float64Ptr(e.Total),
		Remaining:        e.Remaining,
		ResetAt:          e.EndTime,
		WindowSeconds:    windowSeconds,
		FallbackDuration: period.Fallback,
	}, fetchedAt)
	if !ok {
		return core.QuotaSnapshot{}, core.MissingUsageData(providerID, payload.Root.Preview(core.MissingDataPreviewLimit))
	}

	in.ID = period.Key
	in.Label = period.Label
	in.Title = period.Title
	in.Unit = "requests"
	in.Metadata = map[string]string{"model": e.Model}
	return core.NewQuotaSnapshot(providerID, []core.QuotaWindow{core.NewQuotaWindow(in)}, fetchedAt), nil
}
