package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/parsers"
	"github.com/janekbaraniewski/quotabar/internal/version"
)

const (
	DefaultTimeout = 30 * time.Second

	maxResponseBodySize = 4 << 20
)

// NewGetRequest builds a JSON GET request with the standard headers.
func NewGetRequest(ctx context.Context, rawURL string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for key, value := range headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	return req, nil
}

// FetchBody performs req and returns the complete body of a 2xx response.
// Nothing is returned until the body is fully read, so a timeout never
// leaks a partial payload. 401/403 map to unauthorized, other non-2xx
// statuses to server errors with a body preview.
func FetchBody(ctx context.Context, client *http.Client, providerID string, req *http.Request) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}
	req = req.WithContext(ctx)

	logger := zerolog.Ctx(ctx)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, classifyTransportError(ctx, providerID, err)
	}

	logger.Debug().
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Interface("headers", parsers.RedactHeaders(resp.Header)).
		Msg("provider response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, core.Unauthorized(providerID, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, core.ServerError(providerID, resp.StatusCode, parsers.Truncate(string(body), core.ServerErrorPreviewLimit))
	}
	return body, nil
}

func classifyTransportError(ctx context.Context, providerID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.Timeout(providerID, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.Timeout(providerID, err)
	}
	return core.InvalidResponse(providerID, err)
}
