package codex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

var fetchedAt = time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestProviderID(t *testing.T) {
	p := New(Options{})
	if p.ID() != "codex" {
		t.Errorf("expected ID 'codex', got %q", p.ID())
	}
	if len(p.Describe().Capabilities) == 0 {
		t.Error("expected at least one capability")
	}
}

func TestFetchSnapshot_LiveUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/backend-api/wham/usage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("ChatGPT-Account-Id"); got != "acct-123" {
			t.Errorf("ChatGPT-Account-Id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"plan_type": "plus",
			"email": "dev@example.com",
			"rate_limit": {
				"primary_window": {"used_percent": 13, "limit_window_seconds": 18000, "reset_at": 1771336800},
				"secondary_window": {"used_percent": 20.4, "limit_window_seconds": 604800, "reset_after_seconds": 181440}
			},
			"credits": {"has_credits": true, "unlimited": false, "balance": "12.5"}
		}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "auth.json"), `{"tokens":{"access_token":"test-token","account_id":"acct-123"}}`)
	writeFile(t, filepath.Join(dir, "config.toml"), "model = \"o4\"\nchatgpt_base_url = \""+server.URL+"/backend-api\" # local\n")

	p := New(Options{ConfigDir: dir, Client: server.Client(), Now: func() time.Time { return fetchedAt }})
	snap, err := p.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}

	if len(snap.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(snap.Windows))
	}
	h, w := snap.Windows[0], snap.Windows[1]
	if h.ID != "five_hour" || h.Label != "H" || h.UsedPercent != 13 {
		t.Errorf("primary = %+v", h)
	}
	if !h.ResetAt.Equal(time.Unix(1771336800, 0)) {
		t.Errorf("primary reset = %v", h.ResetAt)
	}
	if h.Metadata["plan"] != "plus" || h.Metadata["email"] != "dev@example.com" {
		t.Errorf("metadata = %v", h.Metadata)
	}
	if h.Metadata["credits"] != "available" || h.Metadata["credit_balance"] != "$12.50" {
		t.Errorf("credits metadata = %v", h.Metadata)
	}
	if w.ID != "weekly" || w.Label != "W" || w.UsedPercent != 20 {
		t.Errorf("secondary = %+v", w)
	}
	if !w.ResetAt.Equal(fetchedAt.Add(181440 * time.Second)) {
		t.Errorf("secondary reset = %v, want fetchedAt+reset_after_seconds", w.ResetAt)
	}
	if snap.PrimaryUsedRatio() != 0.13 {
		t.Errorf("PrimaryUsedRatio() = %v", snap.PrimaryUsedRatio())
	}
}

func TestFetchSnapshot_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "auth.json"), `{"tokens":{"access_token":"expired"}}`)

	p := New(Options{ConfigDir: dir, BaseURL: server.URL + "/backend-api", Client: server.Client()})
	_, err := p.FetchSnapshot(context.Background())
	if !core.NeedsReauth(err) {
		t.Fatalf("expected reauth error, got %v", err)
	}
}

func TestFetchSnapshot_APIKeyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/codex/usage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("ChatGPT-Account-Id") != "" {
			t.Error("account header should be omitted without an account id")
		}
		w.Write([]byte(`{"rate_limit":{"primary_window":{"used_percent":5,"reset_at":1771336800}}}`))
	}))
	defer server.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	p := New(Options{ConfigDir: t.TempDir(), BaseURL: server.URL, Client: server.Client()})
	snap, err := p.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot() error = %v", err)
	}
	if len(snap.Windows) != 1 || snap.Windows[0].UsedPercent != 5 {
		t.Fatalf("windows = %+v", snap.Windows)
	}
}

func TestFetchSnapshot_MissingCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p := New(Options{ConfigDir: t.TempDir(), BaseURL: "http://127.0.0.1:1"})
	_, err := p.FetchSnapshot(context.Background())
	if !core.IsKind(err, core.KindMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
}

func TestMapSnapshot_EmptyRateLimitIsMissingPrimary(t *testing.T) {
	for _, body := range []string{
		`{"rate_limit":{}}`,
		`{}`,
		`{"rate_limit":{"primary_window":{"limit_window_seconds":18000}}}`,
	} {
		payload, err := decodeUsage([]byte(body))
		if err != nil {
			t.Fatalf("decodeUsage(%s) error = %v", body, err)
		}
		_, err = mapSnapshot(payload, fetchedAt)
		if !core.IsKind(err, core.KindMissingPrimaryWindow) {
			t.Errorf("%s: expected missing primary window, got %v", body, err)
		}
	}
}

func TestMapSnapshot_CamelCaseAndClamping(t *testing.T) {
	payload, err := decodeUsage([]byte(`{"rateLimit":{
		"primaryWindow":{"usedPercent":"140","limitWindowSeconds":18000},
		"secondaryWindow":{"usedPercent":-3}
	}}`))
	if err != nil {
		t.Fatal(err)
	}
	snap, err := mapSnapshot(payload, fetchedAt)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Windows[0].UsedPercent != 100 {
		t.Errorf("primary percent = %d, want clamped 100", snap.Windows[0].UsedPercent)
	}
	if !snap.Windows[0].ResetAt.Equal(fetchedAt.Add(5 * time.Hour)) {
		t.Errorf("primary reset = %v, want fetchedAt+window", snap.Windows[0].ResetAt)
	}
	if len(snap.Windows) != 2 || snap.Windows[1].UsedPercent != 0 {
		t.Fatalf("secondary = %+v", snap.Windows)
	}
	if !snap.Windows[1].ResetAt.Equal(fetchedAt.Add(7 * 24 * time.Hour)) {
		t.Errorf("secondary reset = %v, want weekly fallback", snap.Windows[1].ResetAt)
	}
}

func TestMapSnapshot_MillisecondReset(t *testing.T) {
	a, _ := decodeUsage([]byte(`{"rate_limit":{"primary_window":{"used_percent":1,"reset_at":1771336800}}}`))
	b, _ := decodeUsage([]byte(`{"rate_limit":{"primary_window":{"used_percent":1,"reset_at":1771336800000}}}`))
	sa, _ := mapSnapshot(a, fetchedAt)
	sb, _ := mapSnapshot(b, fetchedAt)
	if !sa.Windows[0].ResetAt.Equal(sb.Windows[0].ResetAt) {
		t.Fatalf("seconds %v != millis %v", sa.Windows[0].ResetAt, sb.Windows[0].ResetAt)
	}
}

func TestDecodeUsage_InvalidJSON(t *testing.T) {
	if _, err := decodeUsage([]byte(`{"rate_limit":`)); !core.IsKind(err, core.KindInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
	if _, err := decodeUsage([]byte(`[1,2]`)); !core.IsKind(err, core.KindInvalidResponse) {
		t.Fatalf("expected invalid response for array, got %v", err)
	}
}

func TestNormalizeChatGPTBaseURL(t *testing.T) {
	for in, want := range map[string]string{
		"":                                 defaultChatGPTBaseURL,
		"https://chatgpt.com":              "https://chatgpt.com/backend-api",
		"https://chat.openai.com/":         "https://chat.openai.com/backend-api",
		"https://chatgpt.com/backend-api/": "https://chatgpt.com/backend-api",
		"https://proxy.internal/codex":     "https://proxy.internal/codex",
	} {
		if got := normalizeChatGPTBaseURL(in); got != want {
			t.Errorf("normalizeChatGPTBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
	if got := usageURLForBase("https://proxy.internal/codex"); got != "https://proxy.internal/codex/api/codex/usage" {
		t.Errorf("usageURLForBase() = %q", got)
	}
}

func TestReadChatGPTBaseURLFromConfig_SkipsComments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), "# chatgpt_base_url = \"https://ignored\"\nchatgpt_base_url='https://example.test'\n")
	if got := readChatGPTBaseURLFromConfig(dir); got != "https://example.test" {
		t.Fatalf("got %q", got)
	}
}
