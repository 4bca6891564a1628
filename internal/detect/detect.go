// Package detect looks for local signs that a provider can be polled:
// CLI auth files, environment variables and saved credentials. It never
// makes network calls or reads browser cookie stores.
package detect

import (
	"cmp"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Finding is one piece of evidence for a provider.
type Finding struct {
	ProviderID string
	Source     string // "env", "file", "binary", "saved"
	Detail     string // variable name, path or account email
}

type Options struct {
	Getenv    func(string) string
	Home      string
	LookPath  func(string) (string, error)
	SavedKeys map[string]string // provider ID -> saved credential
}

// Scan runs every detector and returns findings in provider order.
func Scan(opts Options) []Finding {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}

	var out []Finding
	out = append(out, detectCodex(opts)...)
	for _, d := range envDetectors {
		for _, name := range d.vars {
			if strings.TrimSpace(opts.Getenv(name)) != "" {
				out = append(out, Finding{ProviderID: d.providerID, Source: "env", Detail: name})
			}
		}
	}
	for id, secret := range opts.SavedKeys {
		if strings.TrimSpace(secret) != "" {
			out = append(out, Finding{ProviderID: id, Source: "saved", Detail: "credentials.json"})
		}
	}

	order := map[string]int{"codex": 0, "zenmux": 1, "minimax": 2, "bigmodel": 3, "factory": 4}
	return lo.UniqBy(sortFindings(out, order), func(f Finding) string {
		return f.ProviderID + "|" + f.Source + "|" + f.Detail
	})
}

// ByProvider groups findings by provider ID.
func ByProvider(findings []Finding) map[string][]Finding {
	return lo.GroupBy(findings, func(f Finding) string { return f.ProviderID })
}

type envDetector struct {
	providerID string
	vars       []string
}

var envDetectors = []envDetector{
	{providerID: "zenmux", vars: []string{"ZENMUX_COOKIE", "ZENMUX_CTOKEN"}},
	{providerID: "minimax", vars: []string{"MINIMAX_GROUP_ID", "MINIMAX_COOKIE", "MINIMAX_API_KEY"}},
	{providerID: "bigmodel", vars: []string{"BIGMODEL_COOKIE", "BIGMODEL_API_KEY"}},
	{providerID: "factory", vars: []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "QUOTABAR_CONNECTOR_ID"}},
}

func sortFindings(in []Finding, order map[string]int) []Finding {
	rank := func(id string) int {
		if r, ok := order[id]; ok {
			return r
		}
		return len(order)
	}
	out := append([]Finding(nil), in...)
	slices.SortStableFunc(out, func(a, b Finding) int {
		return cmp.Compare(rank(a.ProviderID), rank(b.ProviderID))
	})
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func codexHome(opts Options) string {
	if dir := strings.TrimSpace(opts.Getenv("CODEX_HOME")); dir != "" {
		return dir
	}
	if opts.Home == "" {
		return ""
	}
	return filepath.Join(opts.Home, ".codex")
}

func debugf(format string, args ...any) {
	log.Debug().Msgf("[detect] "+format, args...)
}
