package zenmux

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/cookies"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/providers/providerbase"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

const (
	providerID = "zenmux"

	cookieDomain   = "zenmux.ai"
	defaultBaseURL = "https://zenmux.ai/api/subscription/get_current_usage"
)

type Options struct {
	BaseURL string
	// Cookie yields the Cookie header; defaults to ZENMUX_COOKIE, then
	// browser import, then Jar.
	Cookie core.CredentialSource
	// CToken defaults to ZENMUX_CTOKEN, then the ctoken cookie.
	CToken core.CredentialSource
	Jar    http.CookieJar
	Client *http.Client
	Now    func() time.Time
}

type Provider struct {
	providerbase.Base
	opts Options
}

func New(opts Options) *Provider {
	if opts.Cookie == nil {
		opts.Cookie = cookies.ForDomain("ZENMUX_COOKIE", cookieDomain, opts.Jar)
	}
	if opts.CToken == nil {
		opts.CToken = cookies.Chain(core.EnvCredential("ZENMUX_CTOKEN"), cookies.Named(opts.Cookie, "ctoken"))
	}
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: providerID,
			Info: core.ProviderInfo{
				Name:         "ZenMux",
				Capabilities: []string{"usage_endpoint", "browser_cookies"},
				DocURL:       "https://zenmux.ai",
			},
			Auth: core.ProviderAuthSpec{
				Type:   core.ProviderAuthTypeCookie,
				EnvVar: "ZENMUX_COOKIE",
				Domain: cookieDomain,
			},
			Setup: core.ProviderSetupSpec{
				Quickstart: []string{"Sign in to zenmux.ai in a local browser, or export ZENMUX_COOKIE and ZENMUX_CTOKEN."},
			},
		}),
		opts: opts,
	}
}

func (p *Provider) FetchSnapshot(ctx context.Context) (core.QuotaSnapshot, error) {
	cookie, err := p.opts.Cookie.Credential(ctx)
	if err != nil {
		return core.QuotaSnapshot{}, core.MissingCredentials(providerID, "no zenmux.ai session cookie found")
	}
	ctoken, err := p.opts.CToken.Credential(ctx)
	if err != nil {
		return core.QuotaSnapshot{}, core.MissingCredentials(providerID, "no ctoken cookie or ZENMUX_CTOKEN")
	}

	req, err := shared.NewGetRequest(ctx, p.usageURL(ctoken), map[string]string{"Cookie": cookie})
	if err != nil {
		return core.QuotaSnapshot{}, core.InvalidResponse(providerID, err)
	}
	body, err := shared.FetchBody(ctx, p.opts.Client, providerID, req)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}

	payload, err := decodeUsage(body)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(payload, p.now())
}

func (p *Provider) usageURL(ctoken string) string {
	base := strings.TrimSpace(p.opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "ctoken=" + url.QueryEscape(ctoken)
}

func (p *Provider) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}
