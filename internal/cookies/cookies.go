// Package cookies provides core.CredentialSource implementations that yield
// a Cookie header value for a domain.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register browser cookie stores
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/parsers"
)

// Header joins cookies into a Cookie header value. The first cookie with a
// given name wins.
func Header(cookies []*http.Cookie) string {
	unique := lo.UniqBy(lo.Filter(cookies, func(c *http.Cookie, _ int) bool {
		return c != nil && strings.TrimSpace(c.Name) != ""
	}), func(c *http.Cookie) string { return c.Name })

	parts := lo.Map(unique, func(c *http.Cookie, _ int) string {
		return c.Name + "=" + c.Value
	})
	return strings.Join(parts, "; ")
}

// BrowserReader loads cookies for a domain suffix from local browsers.
type BrowserReader func(ctx context.Context, domain string) ([]*http.Cookie, error)

// ReadBrowserCookies reads unexpired cookies from every browser store kooky
// knows about. Partial results are kept when some stores fail.
func ReadBrowserCookies(ctx context.Context, domain string) ([]*http.Cookie, error) {
	found, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	out := make([]*http.Cookie, 0, len(found))
	for _, c := range found {
		if c == nil {
			continue
		}
		hc := c.Cookie
		out = append(out, &hc)
	}
	if len(out) == 0 && err != nil {
		return nil, fmt.Errorf("reading browser cookies for %s: %w", domain, err)
	}
	return out, nil
}

// BrowserSource imports the cookies of a site from the user's browsers.
type BrowserSource struct {
	Domain string
	Read   BrowserReader
}

func Browser(domain string) *BrowserSource {
	return &BrowserSource{Domain: domain, Read: ReadBrowserCookies}
}

func (b *BrowserSource) Credential(ctx context.Context) (string, error) {
	read := b.Read
	if read == nil {
		read = ReadBrowserCookies
	}
	found, err := read(ctx, b.Domain)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("domain", b.Domain).Msg("browser cookie import failed")
		return "", err
	}
	header := Header(found)
	if header == "" {
		return "", core.ErrNoCredential
	}
	return header, nil
}

// JarSource reads cookies a previous session stored in an http.CookieJar.
type JarSource struct {
	Jar    http.CookieJar
	Domain string
}

func (j JarSource) Credential(context.Context) (string, error) {
	if j.Jar == nil || strings.TrimSpace(j.Domain) == "" {
		return "", core.ErrNoCredential
	}
	header := Header(j.Jar.Cookies(&url.URL{Scheme: "https", Host: j.Domain, Path: "/"}))
	if header == "" {
		return "", core.ErrNoCredential
	}
	return header, nil
}

// Chain tries sources in order; the first non-blank header wins.
func Chain(sources ...core.CredentialSource) core.CredentialSource {
	return core.CredentialFunc(func(ctx context.Context) (string, error) {
		return core.FirstCredential(ctx, sources...)
	})
}

// ForDomain is the standard chain: environment override, browser import,
// then an optional cookie jar.
func ForDomain(envVar, domain string, jar http.CookieJar) core.CredentialSource {
	sources := []core.CredentialSource{core.EnvCredential(envVar), Browser(domain)}
	if jar != nil {
		sources = append(sources, JarSource{Jar: jar, Domain: domain})
	}
	return Chain(sources...)
}

// Named extracts one cookie value from the header src yields.
func Named(src core.CredentialSource, name string) core.CredentialSource {
	return core.CredentialFunc(func(ctx context.Context) (string, error) {
		if src == nil {
			return "", core.ErrNoCredential
		}
		header, err := src.Credential(ctx)
		if err != nil {
			return "", err
		}
		if v := parsers.CookieValue(header, name); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("cookie %q: %w", name, core.ErrNoCredential)
	})
}

// IsUnavailable reports whether err only means "no credential found".
func IsUnavailable(err error) bool {
	return errors.Is(err, core.ErrNoCredential)
}
