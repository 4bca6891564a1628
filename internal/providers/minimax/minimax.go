package minimax

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/cookies"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/providers/providerbase"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

const (
	providerID = "minimax"

	cookieDomain   = "minimaxi.com"
	defaultBaseURL = "https://www.minimaxi.com/v1/api/openplatform/coding_plan/remains"
)

type Options struct {
	BaseURL string
	GroupID string
	// Cookie is best effort; the endpoint also accepts an API key.
	Cookie core.CredentialSource
	APIKey core.CredentialSource
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
		opts.Cookie = cookies.ForDomain("MINIMAX_COOKIE", cookieDomain, opts.Jar)
	}
	if opts.APIKey == nil {
		opts.APIKey = core.EnvCredential("MINIMAX_API_KEY")
	}
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: providerID,
			Info: core.ProviderInfo{
				Name:         "MiniMax",
				Capabilities: []string{"usage_endpoint", "browser_cookies"},
				DocURL:       "https://platform.minimaxi.com",
			},
			Auth: core.ProviderAuthSpec{
				Type:   core.ProviderAuthTypeCookie,
				EnvVar: "MINIMAX_COOKIE",
				Domain: cookieDomain,
			},
			Setup: core.ProviderSetupSpec{
				Quickstart: []string{"Set MINIMAX_GROUP_ID and either MINIMAX_API_KEY or a minimaxi.com browser session."},
			},
		}),
		opts: opts,
	}
}

func (p *Provider) FetchSnapshot(ctx context.Context) (core.QuotaSnapshot, error) {
	groupID := firstNonEmpty(p.opts.GroupID, os.Getenv("MINIMAX_GROUP_ID"))
	if groupID == "" {
		return core.QuotaSnapshot{}, core.MissingCredentials(providerID, "MINIMAX_GROUP_ID is not set")
	}

	headers := map[string]string{}
	if cookie, err := p.opts.Cookie.Credential(ctx); err == nil {
		headers["Cookie"] = cookie
	}
	if key, err := p.opts.APIKey.Credential(ctx); err == nil {
		headers["Authorization"] = "Bearer " + key
	}

	req, err := shared.NewGetRequest(ctx, p.remainsURL(groupID), headers)
	if err != nil {
		return core.QuotaSnapshot{}, core.InvalidResponse(providerID, err)
	}
	body, err := shared.FetchBody(ctx, p.opts.Client, providerID, req)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}

	payload, err := decodeRemains(body)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(payload, p.now())
}

func (p *Provider) remainsURL(groupID string) string {
	base := firstNonEmpty(p.opts.BaseURL, os.Getenv("MINIMAX_BASE_URL"), defaultBaseURL)
	u, err := url.Parse(base)
	if err != nil {
		return base + "?groupId=" + url.QueryEscape(groupID)
	}
	q := u.Query()
	q.Set("groupId", groupID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *Provider) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
