package minimax

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

var fetchedAt = time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

func decodeAndMap(t *testing.T, body string) (core.QuotaSnapshot, error) {
	t.Helper()
	payload, err := decodeRemains([]byte(body))
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(payload, fetchedAt)
}

func TestMapSnapshot_LegacyUsageCountIsRemaining(t *testing.T) {
	snap, err := decodeAndMap(t, `{
		"base_resp": {"status_code": 0, "status_msg": "success"},
		"model_remains": [{
			"model_name": "MiniMax-M2",
			"current_interval_total_count": 1500,
			"current_interval_usage_count": 1500,
			"end_time": 1771340400000
		}]
	}`)
	if err != nil {
		t.Fatalf("mapSnapshot() error = %v", err)
	}
	w := snap.Windows[0]
	if w.UsedPercent != 0 {
		t.Errorf("UsedPercent = %d, want 0 (usage_count means remaining)", w.UsedPercent)
	}
	if w.Used == nil || *w.Used != 0 || w.Remaining == nil || *w.Remaining != 1500 {
		t.Errorf("used = %v remaining = %v", w.Used, w.Remaining)
	}
	if w.ID != "five_hour" || w.Label != "H" || w.Unit != "requests" {
		t.Errorf("window = %+v", w)
	}
	if w.Metadata["model"] != "MiniMax-M2" {
		t.Errorf("metadata = %v", w.Metadata)
	}
	if !w.ResetAt.Equal(time.UnixMilli(1771340400000)) {
		t.Errorf("reset = %v", w.ResetAt)
	}
}

func TestMapSnapshot_ExplicitRemainingBeatsLegacy(t *testing.T) {
	snap, err := decodeAndMap(t, `{"model_remains":[{
		"current_interval_total_count": 200,
		"current_interval_remaining_count": 150,
		"current_interval_usage_count": 999,
		"remains_time": 7200000
	}]}`)
	if err != nil {
		t.Fatal(err)
	}
	w := snap.Windows[0]
	if w.UsedPercent != 25 || *w.Used != 50 {
		t.Errorf("window = %+v", w)
	}
	if !w.ResetAt.Equal(fetchedAt.Add(2 * time.Hour)) {
		t.Errorf("reset = %v, want fetchedAt+remains_time", w.ResetAt)
	}
}

func TestMapSnapshot_ExplicitUsed(t *testing.T) {
	snap, err := decodeAndMap(t, `{"data":{"model_remains":[
		{"modelName":"empty","currentIntervalTotalCount":0},
		{"modelName":"m","currentIntervalTotalCount":"400","currentIntervalUsedCount":"100","periodType":"week"}
	]}}`)
	if err != nil {
		t.Fatal(err)
	}
	w := snap.Windows[0]
	if w.UsedPercent != 25 || w.Metadata["model"] != "m" {
		t.Errorf("window = %+v", w)
	}
	if w.ID != "weekly" || w.Label != "W" || *w.Remaining != 300 {
		t.Errorf("window = %+v", w)
	}
	if !w.ResetAt.Equal(fetchedAt.Add(7 * 24 * time.Hour)) {
		t.Errorf("reset = %v, want weekly fallback", w.ResetAt)
	}
}

func TestMapSnapshot_CanonicalPeriodID(t *testing.T) {
	for _, tc := range []struct{ period, id string }{
		{"HOUR_5", "five_hour"},
		{"5h", "five_hour"},
		{"Day", "daily"},
		{"month", "monthly"},
		{"Quarter", "quarter"},
	} {
		snap, err := decodeAndMap(t, `{"model_remains":[{"current_interval_total_count":10,"current_interval_usage_count":4,"end_time":1771340400,"period_type":"`+tc.period+`"}]}`)
		if err != nil {
			t.Fatalf("%s: %v", tc.period, err)
		}
		if got := snap.Windows[0].ID; got != tc.id {
			t.Errorf("period %q: id = %q, want %q", tc.period, got, tc.id)
		}
	}
}

func TestDecodeRemains_StatusFailure(t *testing.T) {
	_, err := decodeRemains([]byte(`{"base_resp":{"status_code":1004,"status_msg":"cookie is missing, log in again"}}`))
	if !core.IsKind(err, core.KindAPIFailure) || !strings.Contains(err.Error(), "log in again") {
		t.Fatalf("expected api failure, got %v", err)
	}
}

func TestMapSnapshot_NoPositiveTotal(t *testing.T) {
	_, err := decodeAndMap(t, `{"base_resp":{"status_code":0},"model_remains":[{"current_interval_total_count":0}]}`)
	if !core.IsKind(err, core.KindMissingUsageData) {
		t.Fatalf("expected missing usage data, got %v", err)
	}
}

func TestFetchSnapshot_RequiresGroupID(t *testing.T) {
	t.Setenv("MINIMAX_GROUP_ID", "")
	p := New(Options{Cookie: core.StaticCredential("a=b"), APIKey: core.StaticCredential("")})
	_, err := p.FetchSnapshot(context.Background())
	if !core.IsKind(err, core.KindMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
}

func TestFetchSnapshot_Request(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("groupId"); got != "g-42" {
			t.Errorf("groupId = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer mm-key" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("Cookie") != "" {
			t.Error("cookie should be omitted when unavailable")
		}
		w.Write([]byte(`{"base_resp":{"status_code":0},"model_remains":[{"current_interval_total_count":100,"current_interval_used_count":90,"end_time":1771340400}]}`))
	}))
	defer server.Close()

	p := New(Options{
		BaseURL: server.URL + "/v1/api/openplatform/coding_plan/remains",
		GroupID: "g-42",
		Cookie:  core.StaticCredential(""),
		APIKey:  core.StaticCredential("mm-key"),
		Client:  server.Client(),
		Now:     func() time.Time { return fetchedAt },
	})
	snap, err := p.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if snap.PrimaryUsedRatio() != 0.9 {
		t.Errorf("PrimaryUsedRatio() = %v", snap.PrimaryUsedRatio())
	}
}
