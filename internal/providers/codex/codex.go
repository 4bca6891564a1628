package codex

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/providers/providerbase"
	"github.com/janekbaraniewski/quotabar/internal/providers/shared"
)

const (
	providerID = "codex"

	defaultCodexConfigDir = ".codex"
	defaultChatGPTBaseURL = "https://chatgpt.com/backend-api"
)

// Options override the on-disk Codex CLI configuration.
type Options struct {
	BaseURL   string
	ConfigDir string
	AccountID string
	Client    *http.Client
	Now       func() time.Time
}

type Provider struct {
	providerbase.Base
	opts Options
}

func New(opts Options) *Provider {
	return &Provider{
		Base: providerbase.New(core.ProviderSpec{
			ID: providerID,
			Info: core.ProviderInfo{
				Name:         "OpenAI Codex",
				Capabilities: []string{"usage_endpoint", "rate_limits", "credits"},
				DocURL:       "https://github.com/openai/codex",
			},
			Auth: core.ProviderAuthSpec{
				Type:   core.ProviderAuthTypeToken,
				EnvVar: "OPENAI_API_KEY",
			},
			Setup: core.ProviderSetupSpec{
				Quickstart: []string{"Run `codex login` so ~/.codex/auth.json holds a ChatGPT token."},
			},
		}),
		opts: opts,
	}
}

type authFile struct {
	AccountID string     `json:"account_id,omitempty"`
	Tokens    authTokens `json:"tokens"`
}

type authTokens struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id,omitempty"`
}

type credentials struct {
	token     string
	accountID string
}

func (p *Provider) FetchSnapshot(ctx context.Context) (core.QuotaSnapshot, error) {
	configDir := p.configDir()
	creds, err := p.loadCredentials(configDir)
	if err != nil {
		return core.QuotaSnapshot{}, err
	}

	usageURL := usageURLForBase(resolveChatGPTBaseURL(p.opts.BaseURL, configDir))
	req, err := shared.NewGetRequest(ctx, usageURL, map[string]string{
		"Authorization":      "Bearer " + creds.token,
		"ChatGPT-Account-Id": creds.accountID,
	})
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

func (p *Provider) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}
	return time.Now()
}

func (p *Provider) configDir() string {
	if dir := strings.TrimSpace(p.opts.ConfigDir); dir != "" {
		return dir
	}
	if dir := strings.TrimSpace(os.Getenv("CODEX_HOME")); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, defaultCodexConfigDir)
}

// loadCredentials prefers the CLI's auth.json ChatGPT token and falls back to
// OPENAI_API_KEY.
func (p *Provider) loadCredentials(configDir string) (credentials, error) {
	if configDir != "" {
		if data, err := os.ReadFile(filepath.Join(configDir, "auth.json")); err == nil {
			var auth authFile
			if json.Unmarshal(data, &auth) == nil && strings.TrimSpace(auth.Tokens.AccessToken) != "" {
				return credentials{
					token:     strings.TrimSpace(auth.Tokens.AccessToken),
					accountID: firstNonEmpty(p.opts.AccountID, auth.Tokens.AccountID, auth.AccountID),
				}, nil
			}
		}
	}

	if key, err := core.EnvCredential("OPENAI_API_KEY").Credential(context.Background()); err == nil {
		return credentials{token: key, accountID: strings.TrimSpace(p.opts.AccountID)}, nil
	}
	return credentials{}, core.MissingCredentials(providerID, "no access token in auth.json and OPENAI_API_KEY is not set")
}

func resolveChatGPTBaseURL(override, configDir string) string {
	if strings.TrimSpace(override) != "" {
		return normalizeChatGPTBaseURL(override)
	}
	if fromConfig := readChatGPTBaseURLFromConfig(configDir); fromConfig != "" {
		return normalizeChatGPTBaseURL(fromConfig)
	}
	return normalizeChatGPTBaseURL(defaultChatGPTBaseURL)
}

// readChatGPTBaseURLFromConfig pulls chatgpt_base_url out of config.toml
// without a TOML parser; only the single top-level key is needed.
func readChatGPTBaseURLFromConfig(configDir string) string {
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(configDir, "config.toml"))
	if err != nil {
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "chatgpt_base_url" {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), "\"'")
		if val != "" {
			return val
		}
	}
	return ""
}

func normalizeChatGPTBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return defaultChatGPTBaseURL
	}
	if (strings.HasPrefix(baseURL, "https://chatgpt.com") || strings.HasPrefix(baseURL, "https://chat.openai.com")) &&
		!strings.Contains(baseURL, "/backend-api") {
		baseURL += "/backend-api"
	}
	return baseURL
}

func usageURLForBase(baseURL string) string {
	if strings.Contains(baseURL, "/backend-api") {
		return baseURL + "/wham/usage"
	}
	return baseURL + "/api/codex/usage"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
