package shared

import (
	"math"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

// WindowFields are the raw values a provider could find for one window.
// Percent is already on the 0..100 scale.
type WindowFields struct {
	Percent          *float64
	Used             *float64
	Limit            *float64
	Remaining        *float64
	ResetAt          *time.Time
	WindowSeconds    *float64
	FallbackDuration time.Duration
}

// InferWindow runs the shared inference chain: limit, used, remaining,
// percent, reset. It reports false when no percent or no reset time can be
// derived; such windows are dropped by the caller.
func InferWindow(f WindowFields, fetchedAt time.Time) (core.WindowInput, bool) {
	used := core.PositiveNumber(f.Used)
	remaining := core.PositiveNumber(f.Remaining)

	limit := core.PositiveNumber(f.Limit)
	if limit != nil && *limit <= 0 {
		limit = nil
	}
	if limit == nil && used != nil && remaining != nil && *used+*remaining > 0 {
		limit = core.Float64Ptr(*used + *remaining)
	}

	var in core.WindowInput
	in.Limit = limit

	switch {
	case used != nil:
		in.Used = core.Clamp(used, limit)
	case limit != nil && remaining != nil:
		in.Used = core.Float64Ptr(math.Max(*limit-*remaining, 0))
	}

	switch {
	case remaining != nil:
		in.Remaining = core.Clamp(remaining, limit)
	case limit != nil && used != nil:
		in.Remaining = core.Float64Ptr(math.Max(*limit-*used, 0))
	}

	percent, ok := inferPercent(f.Percent, used, limit, remaining)
	if !ok {
		return core.WindowInput{}, false
	}
	in.UsedPercent = percent

	reset, ok := inferReset(f, fetchedAt)
	if !ok {
		return core.WindowInput{}, false
	}
	in.ResetAt = reset
	return in, true
}

func inferPercent(explicit, used, limit, remaining *float64) (int, bool) {
	if p := core.PositiveNumber(explicit); p != nil {
		return core.ClampPercent(*p), true
	}
	switch {
	case used != nil && limit != nil:
		return core.ClampPercent(*used / *limit * 100), true
	case limit != nil && remaining != nil:
		return core.ClampPercent((*limit - *remaining) / *limit * 100), true
	case used != nil && remaining != nil && *used+*remaining > 0:
		return core.ClampPercent(*used / (*used + *remaining) * 100), true
	}
	return 0, false
}

func inferReset(f WindowFields, fetchedAt time.Time) (time.Time, bool) {
	switch {
	case f.ResetAt != nil && !f.ResetAt.IsZero():
		return *f.ResetAt, true
	case f.WindowSeconds != nil && *f.WindowSeconds > 0 && !math.IsInf(*f.WindowSeconds, 0):
		return fetchedAt.Add(time.Duration(*f.WindowSeconds * float64(time.Second))), true
	case f.FallbackDuration > 0:
		return fetchedAt.Add(f.FallbackDuration), true
	}
	return time.Time{}, false
}
