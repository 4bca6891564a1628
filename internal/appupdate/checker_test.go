package appupdate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStableVersion(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "valid with prefix", input: "v1.2.3", want: "v1.2.3"},
		{name: "valid without prefix", input: "1.2.3", want: "v1.2.3"},
		{name: "pre-release skipped", input: "v1.2.3-rc.1", want: ""},
		{name: "dev skipped", input: "dev", want: ""},
		{name: "empty skipped", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stableVersion(tt.input); got != tt.want {
				t.Fatalf("stableVersion(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectInstall(t *testing.T) {
	t.Setenv("GOBIN", "")
	tests := []struct {
		name string
		path string
		want InstallMethod
	}{
		{name: "homebrew cellar", path: "/opt/homebrew/Cellar/quotabar/1.2.3/bin/quotabar", want: InstallMethodHomebrew},
		{name: "go install default", path: "/Users/test/go/bin/quotabar", want: InstallMethodGoInstall},
		{name: "other binary in go bin", path: "/Users/test/go/bin/gopls", want: InstallMethodUnknown},
		{name: "unknown", path: "/tmp/quotabar", want: InstallMethodUnknown},
		{name: "empty", path: "", want: InstallMethodUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectInstall(tt.path).method; got != tt.want {
				t.Fatalf("detectInstall(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "quotabar/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckUpdateAvailable(t *testing.T) {
	server := releaseServer(t, http.StatusOK, `{"tag_name":"v1.4.0","html_url":"https://github.com/janekbaraniewski/quotabar/releases/tag/v1.4.0","published_at":"2026-09-01T10:00:00Z"}`)

	res, err := Check(context.Background(), CheckOptions{
		CurrentVersion:   "1.3.2",
		ExecutablePath:   "/Users/test/go/bin/quotabar",
		LatestReleaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.UpdateAvailable {
		t.Fatal("UpdateAvailable = false, want true")
	}
	if res.LatestVersion != "v1.4.0" {
		t.Fatalf("LatestVersion = %q", res.LatestVersion)
	}
	if !strings.Contains(res.UpgradeHint, "go install") {
		t.Fatalf("UpgradeHint = %q", res.UpgradeHint)
	}
	if !strings.HasSuffix(res.ReleaseURL, "/tag/v1.4.0") || res.PublishedAt.Year() != 2026 {
		t.Fatalf("release = %q published %v", res.ReleaseURL, res.PublishedAt)
	}
}

func TestParseReleaseDefaultsURL(t *testing.T) {
	rel, err := parseRelease([]byte(`{"tag_name":"1.5.0"}`))
	if err != nil {
		t.Fatalf("parseRelease() error = %v", err)
	}
	if rel.Version != "v1.5.0" || rel.URL != releasesPage+"/tag/1.5.0" || !rel.PublishedAt.IsZero() {
		t.Fatalf("release = %+v", rel)
	}
}

func TestCheckUpToDate(t *testing.T) {
	server := releaseServer(t, http.StatusOK, `{"tag_name":"1.3.2"}`)

	res, err := Check(context.Background(), CheckOptions{CurrentVersion: "v1.3.2", LatestReleaseURL: server.URL})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.UpdateAvailable {
		t.Fatal("UpdateAvailable = true for same version")
	}
}

func TestCheckSkipsDevBuild(t *testing.T) {
	res, err := Check(context.Background(), CheckOptions{CurrentVersion: "dev", LatestReleaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.UpdateAvailable || res.LatestVersion != "" {
		t.Fatalf("dev build should not check, got %+v", res)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusInternalServerError, body: `{}`},
		{name: "invalid json", status: http.StatusOK, body: `{`},
		{name: "pre-release tag", status: http.StatusOK, body: `{"tag_name":"v2.0.0-beta"}`},
		{name: "flagged pre-release", status: http.StatusOK, body: `{"tag_name":"v2.0.0","prerelease":true}`},
		{name: "draft", status: http.StatusOK, body: `{"tag_name":"v2.0.0","draft":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := releaseServer(t, tt.status, tt.body)
			if _, err := Check(context.Background(), CheckOptions{CurrentVersion: "1.0.0", LatestReleaseURL: server.URL}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
