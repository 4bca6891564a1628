package bigmodel

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/cookies"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/parsers"
	"github.com/janekbaraniewski/quotabar/internal/providers/providerbase"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

const (
	providerID = "bigmodel"

	cookieDomain   = "bigmodel.cn"
	defaultBaseURL = "https://open.bigmodel.cn/api/monitor/usage/quota/limit"
)

// tokenCookieNames are checked in order for the bearer token.
var tokenCookieNames = []string{"bigmodel_token_production", "access_token", "token", "auth_token", "jwt"}

type Options struct {
	BaseURL string
	Cookie  core.CredentialSource
	APIKey  core.CredentialSource
	Jar     http.CookieJar
	Client  *http.Client
	Now     func() time.Time
}

type Provider struct {
	providerbase.Base
	opts Options
}

func New(opts Options) *Provider {
	if opts.Cookie == nil {
		opts.Cookie = cookies.ForDomain("BIGMODEL_COOKIE", cookieDomain, opts.Jar)
	}
	if opts.APIKey == nil {
		opts.APIKey = core.EnvCredential("BIGMODEL_API_KEY")
	}
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: providerID,
			Info: core.ProviderInfo{
				Name:         "BigModel (Zhipu)",
				Capabilities: []string{"usage_endpoint", "browser_cookies"},
				DocURL:       "https://open.bigmodel.cn",
			},
			Auth: core.ProviderAuthSpec{
				Type:   core.ProviderAuthTypeCookie,
				EnvVar: "BIGMODEL_COOKIE",
				Domain: cookieDomain,
			},
			Setup: core.ProviderSetupSpec{
				Quickstart: []string{"Sign in to open.bigmodel.cn in a local browser, or export BIGMODEL_COOKIE."},
			},
		}),
		opts: opts,
	}
}

func (p *Provider) FetchSnapshot(ctx context.Context) (core.QuotaSnapshot, error) {
	cookie, err := p.opts.Cookie.Credential(ctx)
	if err != nil || strings.TrimSpace(cookie) == "" {
		return core.QuotaSnapshot{}, core.MissingCredentials(providerID, "no bigmodel.cn session cookie found")
	}

	headers := map[string]string{"Cookie": cookie}
	if token := p.bearerToken(ctx, cookie); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	base := strings.TrimSpace(p.opts.BaseURL)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("BIGMODEL_BASE_URL"))
	}
	if base == "" {
		base = defaultBaseURL
	}

	req, err := shared.NewGetRequest(ctx, base, headers)
	if err != nil {
		return core.QuotaSnapshot{}, core.InvalidResponse(providerID, err)
	}
	body, err := shared.FetchBody(ctx, p.opts.Client, providerID, req)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}

	payload, err := decodeLimits(body)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(payload, p.now())
}

func (p *Provider) bearerToken(ctx context.Context, cookie string) string {
	for _, name := range tokenCookieNames {
		if v := parsers.CookieValue(cookie, name); v != "" {
			return v
		}
	}
	key, _ := p.opts.APIKey.Credential(ctx)
	return key
}

func (p *Provider) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}
