package bigmodel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

var fetchedAt = time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

const quotaBody = `{
	"code": 200,
	"msg": "ok",
	"success": true,
	"data": {
		"level": "pro",
		"limits": [
			{"type": "TIME_LIMIT", "unit": 1, "usage": 4000, "currentValue": 1000, "remaining": 3000, "percentage": 25, "nextResetTime": 1773792000000},
			{"type": "TOKENS_LIMIT", "unit": 3, "percentage": 0.13, "nextResetTime": 1771347600000}
		]
	}
}`

func decodeAndMap(t *testing.T, body string) (core.QuotaSnapshot, error) {
	t.Helper()
	payload, err := decodeLimits([]byte(body))
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(payload, fetchedAt)
}

func TestMapSnapshot_TokenThenTimeWindow(t *testing.T) {
	snap, err := decodeAndMap(t, quotaBody)
	if err != nil {
		t.Fatalf("mapSnapshot() error = %v", err)
	}
	if len(snap.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(snap.Windows))
	}
	tok, tm := snap.Windows[0], snap.Windows[1]
	if tok.ID != "five_hour" || tok.Label != "H" || tok.UsedPercent != 13 || tok.Unit != "tokens" {
		t.Errorf("token window = %+v", tok)
	}
	if !tok.ResetAt.Equal(time.UnixMilli(1771347600000)) {
		t.Errorf("token reset = %v", tok.ResetAt)
	}
	if tm.ID != "monthly" || tm.Label != "M" || tm.UsedPercent != 25 || tm.Unit != "minutes" {
		t.Errorf("time window = %+v", tm)
	}
	if *tm.Limit != 4000 || *tm.Used != 1000 || *tm.Remaining != 3000 {
		t.Errorf("time amounts = %v/%v/%v", *tm.Used, *tm.Limit, *tm.Remaining)
	}
	if tok.Metadata["plan"] != "pro" {
		t.Errorf("metadata = %v", tok.Metadata)
	}
}

func TestMapSnapshot_UnitFallbacks(t *testing.T) {
	snap, err := decodeAndMap(t, `{"limits":[
		{"type":"tokens_limit","unit":"TOKEN","used":10,"limit":100},
		{"type":"time_limit","unit":7,"current":5,"total":50,"reset_at":"2026-03-01T00:00:00Z"}
	]}`)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Windows[0].Unit != "tokens" || snap.Windows[1].Unit != "minutes" {
		t.Errorf("units = %q, %q", snap.Windows[0].Unit, snap.Windows[1].Unit)
	}
	if !snap.Windows[0].ResetAt.Equal(fetchedAt.Add(5 * time.Hour)) {
		t.Errorf("token reset = %v, want 5h fallback", snap.Windows[0].ResetAt)
	}
	if snap.Windows[1].UsedPercent != 10 {
		t.Errorf("time percent = %d", snap.Windows[1].UsedPercent)
	}
}

func TestDecodeLimits_InvalidToken(t *testing.T) {
	_, err := decodeLimits([]byte(`{"code":401,"msg":"invalid token","success":false}`))
	if !core.IsKind(err, core.KindAPIFailure) {
		t.Fatalf("expected api failure, got %v", err)
	}
	if pe := err.(*core.ProviderError); pe.Message != "invalid token" {
		t.Errorf("message = %q", pe.Message)
	}
}

func TestMapSnapshot_NoKnownLimits(t *testing.T) {
	_, err := decodeAndMap(t, `{"code":200,"success":true,"data":{"limits":[{"type":"MCP_CALLS","usage":5}]}}`)
	if !core.IsKind(err, core.KindMissingUsageData) {
		t.Fatalf("expected missing usage data, got %v", err)
	}
}

func TestFetchSnapshot_MissingCookieMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	p := New(Options{BaseURL: server.URL, Cookie: core.StaticCredential("  "), Client: server.Client()})
	_, err := p.FetchSnapshot(context.Background())
	if !core.IsKind(err, core.KindMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestFetchSnapshot_BearerFromCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer jwt-value" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Cookie"); got != "theme=dark; Bigmodel_Token_Production=jwt-value" {
			t.Errorf("Cookie = %q", got)
		}
		w.Write([]byte(quotaBody))
	}))
	defer server.Close()

	p := New(Options{
		BaseURL: server.URL,
		Cookie:  core.StaticCredential("theme=dark; Bigmodel_Token_Production=jwt-value"),
		APIKey:  core.StaticCredential("unused"),
		Client:  server.Client(),
		Now:     func() time.Time { return fetchedAt },
	})
	snap, err := p.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if snap.ProviderID != "bigmodel" || len(snap.Windows) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestFetchSnapshot_BearerFromAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(quotaBody))
	}))
	defer server.Close()

	p := New(Options{
		BaseURL: server.URL,
		Cookie:  core.StaticCredential("session=s"),
		APIKey:  core.StaticCredential("key-1"),
		Client:  server.Client(),
	})
	if _, err := p.FetchSnapshot(context.Background()); err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
}
