package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running daemon, e.g. so `show` can reuse its cache
// instead of hitting every provider again.
type Client struct {
	BaseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL: baseURL,
		http:    &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) HealthInfo(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	if err := c.get(ctx, "/healthz", &out); err != nil {
		return HealthResponse{}, err
	}
	return out, nil
}

func (c *Client) Snapshots(ctx context.Context) ([]ProviderStatus, error) {
	var out SnapshotsResponse
	if err := c.get(ctx, "/v1/snapshots", &out); err != nil {
		return nil, err
	}
	return out.Providers, nil
}

func (c *Client) History(ctx context.Context, providerID string, limit int) (HistoryResponse, error) {
	path := "/v1/history/" + url.PathEscape(providerID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out HistoryResponse
	if err := c.get(ctx, path, &out); err != nil {
		return HistoryResponse{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	if c == nil || c.BaseURL == "" {
		return fmt.Errorf("daemon client is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon %s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("daemon %s: %s", path, resp.Status)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
