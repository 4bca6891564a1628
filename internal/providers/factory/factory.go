// Package factory reads Factory.ai usage snapshots that a browser connector
// published to a Supabase table.
package factory

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/providers/providerbase"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

const (
	providerID = "factory"

	rowSelect = "id,captured_at,payload,trace_id,dedupe_key"
)

type Options struct {
	// Resolve locates the connector table; defaults to config.ResolveConnector.
	Resolve func() (config.Connector, error)
	Client  *http.Client
	Now     func() time.Time
}

type Provider struct {
	providerbase.Base
	opts Options
}

func New(opts Options) *Provider {
	if opts.Resolve == nil {
		opts.Resolve = func() (config.Connector, error) {
			return config.ResolveConnector(config.ConnectorOptions{})
		}
	}
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: providerID,
			Info: core.ProviderInfo{
				Name:         "Factory",
				Capabilities: []string{"connector_readback"},
				DocURL:       "https://factory.ai",
			},
			Auth: core.ProviderAuthSpec{
				Type:   core.ProviderAuthTypeConnector,
				EnvVar: "SUPABASE_ANON_KEY",
			},
			Setup: core.ProviderSetupSpec{
				Quickstart: []string{
					"Copy connector.example.json to ~/.config/quotabar/connector.json and fill in the Supabase project.",
					"Or export SUPABASE_URL, SUPABASE_ANON_KEY and QUOTABAR_CONNECTOR_ID.",
				},
			},
		}),
		opts: opts,
	}
}

func (p *Provider) FetchSnapshot(ctx context.Context) (core.QuotaSnapshot, error) {
	conn, err := p.opts.Resolve()
	if err != nil {
		return core.QuotaSnapshot{}, core.MissingCredentials(providerID, err.Error())
	}

	req, err := shared.NewGetRequest(ctx, readbackURL(conn), map[string]string{
		"apikey":        conn.AnonKey,
		"Authorization": "Bearer " + conn.AnonKey,
	})
	if err != nil {
		return core.QuotaSnapshot{}, core.InvalidResponse(providerID, err)
	}
	body, err := shared.FetchBody(ctx, p.opts.Client, providerID, req)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}

	row, err := decodeRow(body)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}
	return mapSnapshot(row, p.now())
}

// readbackURL selects the newest usage_snapshot row for the connector.
func readbackURL(c config.Connector) string {
	return c.URL + "/rest/v1/" + url.PathEscape(c.Table) +
		"?select=" + rowSelect +
		"&connector=eq." + url.QueryEscape(c.ConnectorID) +
		"&provider=eq." + providerID +
		"&event=eq.usage_snapshot" +
		"&order=captured_at.desc" +
		"&limit=1"
}

func (p *Provider) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}
