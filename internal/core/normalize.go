package core

import (
	"math"
	"strings"
	"time"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// Thirteen-digit values are milliseconds.
const epochMillisThreshold = 1_000_000_000_000

func Float64Ptr(v float64) *float64 { return &v }

// PositiveNumber drops non-finite values and floors negatives at zero.
func PositiveNumber(x *float64) *float64 {
	if x == nil || math.IsNaN(*x) || math.IsInf(*x, 0) {
		return nil
	}
	if *x < 0 {
		return Float64Ptr(0)
	}
	return Float64Ptr(*x)
}

// Clamp is PositiveNumber capped at limit when limit is a positive number.
func Clamp(x, limit *float64) *float64 {
	v := PositiveNumber(x)
	if v == nil {
		return nil
	}
	if limit != nil && *limit > 0 && *v > *limit {
		return Float64Ptr(*limit)
	}
	return v
}

// NormalizedText trims s; the empty string stands for "absent".
func NormalizedText(s string) string {
	return strings.TrimSpace(s)
}

// ClampPercent rounds and bounds a percentage to [0,100].
func ClampPercent(p float64) int {
	if math.IsNaN(p) {
		return 0
	}
	r := math.Round(p)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	}
	return int(r)
}

// PercentFromRatioOrPercent treats values in [0,1] as ratios and anything
// else as an already-scaled percentage.
func PercentFromRatioOrPercent(x float64) int {
	if x >= 0 && x <= 1 {
		x *= 100
	}
	return ClampPercent(x)
}

// EpochToDate converts an epoch value that may be seconds or milliseconds.
func EpochToDate(x float64) time.Time {
	seconds := x
	if x > epochMillisThreshold {
		seconds = x / 1000
	}
	whole := math.Floor(seconds)
	nanos := math.Round((seconds - whole) * 1e9)
	return time.Unix(int64(whole), int64(nanos)).UTC()
}
