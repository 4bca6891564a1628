package providers

import (
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/cookies"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/providers/bigmodel"
	"github.com/janekbaraniewski/quotabar/internal/providers/codex"
	"github.com/janekbaraniewski/quotabar/internal/providers/factory"
	"github.com/janekbaraniewski/quotabar/internal/providers/minimax"
	"github.com/janekbaraniewski/quotabar/internal/providers/zenmux"
)

// Deps are the shared collaborators handed to every constructor.
type Deps struct {
	Config          config.Config
	Client          *http.Client
	Jar             http.CookieJar
	CredentialsPath string
}

type Constructor func(Deps) core.QuotaProvider

// Entry binds a provider ID to its constructor.
type Entry struct {
	ID  string
	New Constructor
}

// registry order is display order.
var registry = []Entry{
	{ID: "codex", New: newCodex},
	{ID: "zenmux", New: newZenMux},
	{ID: "minimax", New: newMiniMax},
	{ID: "bigmodel", New: newBigModel},
	{ID: "factory", New: newFactory},
}

func Entries() []Entry {
	return append([]Entry(nil), registry...)
}

func IDs() []string {
	return lo.Map(registry, func(e Entry, _ int) string { return e.ID })
}

// Build constructs the enabled providers in registry order. A non-empty
// only list further restricts the result to those IDs.
func Build(deps Deps, only ...string) []core.QuotaProvider {
	wanted := lo.SliceToMap(only, func(id string) (string, bool) { return strings.ToLower(strings.TrimSpace(id)), true })
	return lo.FilterMap(registry, func(e Entry, _ int) (core.QuotaProvider, bool) {
		if len(wanted) > 0 && !wanted[e.ID] {
			return nil, false
		}
		if len(wanted) == 0 && !deps.Config.Provider(e.ID).IsEnabled() {
			return nil, false
		}
		return e.New(deps), true
	})
}

func ByID(deps Deps, id string) (core.QuotaProvider, bool) {
	e, ok := lo.Find(registry, func(e Entry) bool { return strings.EqualFold(e.ID, strings.TrimSpace(id)) })
	if !ok {
		return nil, false
	}
	return e.New(deps), true
}

// cookieChain is env override, saved credential, browser import, then jar.
func cookieChain(deps Deps, providerID, envVar, domain string) core.CredentialSource {
	sources := []core.CredentialSource{
		core.EnvCredential(envVar),
		config.StoredCredential{Path: deps.CredentialsPath, ProviderID: providerID},
		cookies.Browser(domain),
	}
	if deps.Jar != nil {
		sources = append(sources, cookies.JarSource{Jar: deps.Jar, Domain: domain})
	}
	return cookies.Chain(sources...)
}

func newCodex(deps Deps) core.QuotaProvider {
	s := deps.Config.Provider("codex")
	return codex.New(codex.Options{
		BaseURL:   s.BaseURL,
		ConfigDir: s.ConfigDir,
		Client:    deps.Client,
	})
}

func newZenMux(deps Deps) core.QuotaProvider {
	return zenmux.New(zenmux.Options{
		BaseURL: deps.Config.Provider("zenmux").BaseURL,
		Cookie:  cookieChain(deps, "zenmux", "ZENMUX_COOKIE", "zenmux.ai"),
		Client:  deps.Client,
	})
}

func newMiniMax(deps Deps) core.QuotaProvider {
	s := deps.Config.Provider("minimax")
	return minimax.New(minimax.Options{
		BaseURL: s.BaseURL,
		GroupID: s.GroupID,
		Cookie:  cookieChain(deps, "minimax", "MINIMAX_COOKIE", "minimaxi.com"),
		Client:  deps.Client,
	})
}

func newBigModel(deps Deps) core.QuotaProvider {
	return bigmodel.New(bigmodel.Options{
		BaseURL: deps.Config.Provider("bigmodel").BaseURL,
		Cookie:  cookieChain(deps, "bigmodel", "BIGMODEL_COOKIE", "bigmodel.cn"),
		Client:  deps.Client,
	})
}

func newFactory(deps Deps) core.QuotaProvider {
	return factory.New(factory.Options{Client: deps.Client})
}
