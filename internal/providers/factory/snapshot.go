package factory

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/jsonvalue"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

// DefaultMonthlyTokenLimit applies when the payload has usage but no
// allowance.
const DefaultMonthlyTokenLimit = 20_000_000

var (
	usedPaths      = []string{"usage.standard.orgTotalTokensUsed", "usage.standard.userTokens", "standard.orgTotalTokensUsed", "standard.userTokens"}
	limitPaths     = []string{"usage.standard.totalAllowance", "standard.totalAllowance"}
	remainingPaths = []string{"usage.standard.remainingTokens", "standard.remainingTokens"}
	ratioPaths     = []string{"usage.standard.usedRatio", "standard.usedRatio"}
	resetPaths     = []string{"usage.endDate", "endDate", "usage.standard.endDate"}

	usedKeys      = []string{"orgTotalTokensUsed", "totalTokensUsed", "tokensUsed", "usedTokens", "userTokens", "used"}
	limitKeys     = []string{"totalAllowance", "allowance", "tokenLimit", "tokensLimit", "limit"}
	remainingKeys = []string{"remainingTokens", "tokensRemaining", "remaining"}
	ratioKeys     = []string{"usedRatio", "usedPercent", "usagePercent", "percentUsed"}
	resetKeys     = []string{"endDate", "periodEnd", "resetAt", "resetDate", "billingPeriodEnd"}
)

type snapshotRow struct {
	Payload    jsonvalue.Value
	CapturedAt string
	TraceID    string
	DedupeKey  string
}

// decodeRow reads the newest row from the Supabase array response.
func decodeRow(body []byte) (snapshotRow, error) {
	if !gjson.ValidBytes(body) {
		return snapshotRow{}, core.InvalidResponse(providerID, errors.New("response is not valid JSON"))
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return snapshotRow{}, core.InvalidResponse(providerID, errors.New("expected an array of rows"))
	}
	if len(rows.Array()) == 0 {
		return snapshotRow{}, core.MissingUsageData(providerID, "no usage_snapshot rows for this connector")
	}

	payload := rows.Get("0.payload")
	raw := payload.Raw
	if payload.Type == gjson.String {
		// Some connectors store the payload as a JSON-encoded string.
		raw = payload.Str
	}
	tree, err := jsonvalue.Parse([]byte(raw))
	if err != nil {
		return snapshotRow{}, core.MissingUsageData(providerID, rows.Get("0").Raw)
	}

	return snapshotRow{
		Payload:    tree,
		CapturedAt: rows.Get("0.captured_at").String(),
		TraceID:    rows.Get("0.trace_id").String(),
		DedupeKey:  rows.Get("0.dedupe_key").String(),
	}, nil
}

func mapSnapshot(row snapshotRow, fetchedAt time.Time) (core.QuotaSnapshot, error) {
	tree := row.Payload

	used := numberAt(tree, usedPaths, usedKeys)
	limit := numberAt(tree, limitPaths, limitKeys)
	remaining := numberAt(tree, remainingPaths, remainingKeys)

	if limit != nil && *limit <= 0 {
		limit = nil
	}

	var percent *float64
	if ratio := numberAt(tree, ratioPaths, ratioKeys); ratio != nil {
		percent = core.Float64Ptr(float64(core.PercentFromRatioOrPercent(*ratio)))
	}

	if limit == nil && !(used != nil && remaining != nil) && (used != nil || percent != nil) {
		limit = core.Float64Ptr(DefaultMonthlyTokenLimit)
		if used == nil {
			used = core.Float64Ptr(*percent / 100 * DefaultMonthlyTokenLimit)
		}
	}

	var resetAt *time.Time
	if t, ok := timeAt(tree, resetPaths, resetKeys); ok {
		resetAt = &t
	}

	period := shared.PeriodIdentity("monthly")
	in, ok := shared.InferWindow(shared.WindowFields{
		Percent:          percent,
		Used:             used,
		Limit:            limit,
		Remaining:        remaining,
		ResetAt:          resetAt,
		FallbackDuration: period.Fallback,
	}, fetchedAt)
	if !ok {
		return core.QuotaSnapshot{}, core.MissingUsageData(providerID, tree.Preview(core.MissingDataPreviewLimit))
	}

	in.ID = "monthly"
	in.Label = period.Label
	in.Title = "Monthly tokens"
	in.Unit = "tokens"
	in.Metadata = map[string]string{
		"trace_id":    row.TraceID,
		"captured_at": row.CapturedAt,
		"dedupe_key":  row.DedupeKey,
	}
	return core.NewQuotaSnapshot(providerID, []core.QuotaWindow{core.NewQuotaWindow(in)}, fetchedAt), nil
}

// numberAt tries exact dotted paths before a fuzzy search of the whole tree.
func numberAt(tree jsonvalue.Value, paths, keys []string) *float64 {
	for _, path := range paths {
		if v, ok := tree.Path(path); ok {
			if f, ok := v.Number(); ok {
				return &f
			}
		}
	}
	if f, ok := tree.FindNumber(keys...); ok {
		return &f
	}
	return nil
}

func timeAt(tree jsonvalue.Value, paths, keys []string) (time.Time, bool) {
	for _, path := range paths {
		if v, ok := tree.Path(path); ok {
			if t, ok := v.Time(); ok {
				return t, true
			}
		}
	}
	return tree.FindTime(keys...)
}
