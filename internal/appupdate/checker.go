// Package appupdate compares the running build with the latest GitHub
// release and suggests an upgrade command.
package appupdate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"

	"github.com/janekbaraniewski/quotabar/internal/version"
)

const (
	releasesPage     = "https://github.com/janekbaraniewski/quotabar/releases"
	latestReleaseAPI = "https://api.github.com/repos/janekbaraniewski/quotabar/releases/latest"
	checkTimeout     = 1500 * time.Millisecond
	maxReleaseBody   = 1 << 20
)

type InstallMethod string

const (
	InstallMethodUnknown   InstallMethod = "unknown"
	InstallMethodHomebrew  InstallMethod = "homebrew"
	InstallMethodGoInstall InstallMethod = "go_install"
)

// installRule recognises one way quotabar gets onto a machine. Paths are
// lowercased and slash-separated before matching.
type installRule struct {
	method  InstallMethod
	matches func(path string) bool
	hint    string
}

var installRules = []installRule{
	{
		method:  InstallMethodHomebrew,
		matches: func(p string) bool { return strings.Contains(p, "/cellar/quotabar/") },
		hint:    "brew upgrade janekbaraniewski/tap/quotabar",
	},
	{
		method:  InstallMethodGoInstall,
		matches: inGoBin,
		hint:    "go install github.com/janekbaraniewski/quotabar/cmd/quotabar@latest",
	},
}

func inGoBin(p string) bool {
	dir, file := filepath.Dir(p), strings.TrimSuffix(filepath.Base(p), ".exe")
	if file != "quotabar" {
		return false
	}
	if strings.HasSuffix(dir, "/go/bin") {
		return true
	}
	gobin := cleanPath(os.Getenv("GOBIN"))
	return gobin != "" && dir == gobin
}

// Release is the subset of a GitHub release quotabar reports.
type Release struct {
	Version     string
	URL         string
	PublishedAt time.Time
}

type CheckOptions struct {
	CurrentVersion   string
	ExecutablePath   string
	LatestReleaseURL string
	Timeout          time.Duration
	HTTPClient       *http.Client
}

type Result struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
	ReleaseURL      string
	PublishedAt     time.Time
	InstallMethod   InstallMethod
	UpgradeHint     string
}

// Check never reports an update for dev or pre-release builds.
func Check(ctx context.Context, opts CheckOptions) (Result, error) {
	rule := detectInstall(executablePath(opts.ExecutablePath))
	res := Result{
		CurrentVersion: stableVersion(opts.CurrentVersion),
		InstallMethod:  rule.method,
		UpgradeHint:    rule.hint,
	}
	if res.CurrentVersion == "" {
		return res, nil
	}

	rel, err := latestRelease(ctx, opts)
	if err != nil {
		return res, err
	}
	res.LatestVersion = rel.Version
	res.ReleaseURL = rel.URL
	res.PublishedAt = rel.PublishedAt
	res.UpdateAvailable = semver.Compare(rel.Version, res.CurrentVersion) > 0
	return res, nil
}

func latestRelease(ctx context.Context, opts CheckOptions) (Release, error) {
	endpoint := strings.TrimSpace(opts.LatestReleaseURL)
	if endpoint == "" {
		endpoint = latestReleaseAPI
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = checkTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Release{}, fmt.Errorf("appupdate: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("appupdate: fetching release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("appupdate: fetching release: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReleaseBody))
	if err != nil {
		return Release{}, fmt.Errorf("appupdate: reading release: %w", err)
	}
	return parseRelease(body)
}

func parseRelease(body []byte) (Release, error) {
	if !gjson.ValidBytes(body) {
		return Release{}, errors.New("appupdate: release payload is not JSON")
	}
	fields := gjson.GetManyBytes(body, "tag_name", "html_url", "published_at", "draft", "prerelease")
	if fields[3].Bool() || fields[4].Bool() {
		return Release{}, fmt.Errorf("appupdate: latest release %q is not published as stable", fields[0].String())
	}
	v := stableVersion(fields[0].String())
	if v == "" {
		return Release{}, fmt.Errorf("appupdate: release tag %q is not a stable semver", fields[0].String())
	}
	rel := Release{Version: v, URL: fields[1].String()}
	if rel.URL == "" {
		rel.URL = releasesPage + "/tag/" + fields[0].String()
	}
	if t, err := time.Parse(time.RFC3339, fields[2].String()); err == nil {
		rel.PublishedAt = t
	}
	return rel, nil
}

func executablePath(explicit string) string {
	if p := cleanPath(explicit); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return cleanPath(exe)
}

func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return strings.ToLower(filepath.ToSlash(filepath.Clean(p)))
}

func detectInstall(path string) installRule {
	path = cleanPath(path)
	if path != "" {
		for _, r := range installRules {
			if r.matches(path) {
				return r
			}
		}
	}
	return installRule{
		method: InstallMethodUnknown,
		hint:   "download the latest release from " + releasesPage,
	}
}

// stableVersion returns the canonical vX.Y.Z form, or "" for dev builds
// and pre-releases.
func stableVersion(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return semver.Canonical(v)
}
