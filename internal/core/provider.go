package core

import (
	"context"
	"errors"
	"os"
	"strings"
)

type ProviderInfo struct {
	Name         string   // e.g. "Codex", "ZenMux"
	Capabilities []string // "usage_endpoint", "browser_cookies", "connector_readback"
	DocURL       string
}

// QuotaProvider fetches and normalizes one provider's quota windows.
type QuotaProvider interface {
	ID() string

	Describe() ProviderInfo

	FetchSnapshot(ctx context.Context) (QuotaSnapshot, error)
}

// CredentialSource hands out an opaque credential (token, cookie header).
// How it is obtained is not the caller's concern.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

var ErrNoCredential = errors.New("credential not available")

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) { return f(ctx) }

// StaticCredential always returns the same value; blank means unavailable.
type StaticCredential string

func (s StaticCredential) Credential(context.Context) (string, error) {
	v := strings.TrimSpace(string(s))
	if v == "" {
		return "", ErrNoCredential
	}
	return v, nil
}

// EnvCredential reads a credential from an environment variable.
type EnvCredential string

func (e EnvCredential) Credential(context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return "", ErrNoCredential
	}
	return v, nil
}

// FirstCredential tries sources in order and returns the first non-blank
// value. Individual source failures are not reported unless all fail.
func FirstCredential(ctx context.Context, sources ...CredentialSource) (string, error) {
	var errs []error
	for _, src := range sources {
		if src == nil {
			continue
		}
		v, err := src.Credential(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	if len(errs) == 0 {
		return "", ErrNoCredential
	}
	return "", errors.Join(append([]error{ErrNoCredential}, errs...)...)
}
