package cookies

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

func TestHeader_DedupesByName(t *testing.T) {
	got := Header([]*http.Cookie{
		{Name: "ctoken", Value: "a"},
		nil,
		{Name: "session", Value: "s"},
		{Name: "ctoken", Value: "b"},
		{Name: " ", Value: "x"},
	})
	if got != "ctoken=a; session=s" {
		t.Fatalf("Header() = %q", got)
	}
}

func TestBrowserSource_UsesReader(t *testing.T) {
	src := &BrowserSource{Domain: "zenmux.ai", Read: func(_ context.Context, domain string) ([]*http.Cookie, error) {
		if domain != "zenmux.ai" {
			t.Errorf("domain = %q", domain)
		}
		return []*http.Cookie{{Name: "ctoken", Value: "tok"}}, nil
	}}
	got, err := src.Credential(context.Background())
	if err != nil || got != "ctoken=tok" {
		t.Fatalf("Credential() = %q, %v", got, err)
	}

	empty := &BrowserSource{Domain: "zenmux.ai", Read: func(context.Context, string) ([]*http.Cookie, error) { return nil, nil }}
	if _, err := empty.Credential(context.Background()); !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestJarSource(t *testing.T) {
	jar, _ := cookiejar.New(nil)
	u, _ := url.Parse("https://bigmodel.cn/")
	jar.SetCookies(u, []*http.Cookie{{Name: "bigmodel_token_production", Value: "jwt"}})

	got, err := JarSource{Jar: jar, Domain: "bigmodel.cn"}.Credential(context.Background())
	if err != nil || got != "bigmodel_token_production=jwt" {
		t.Fatalf("Credential() = %q, %v", got, err)
	}
	if _, err := (JarSource{Jar: jar, Domain: "zenmux.ai"}).Credential(context.Background()); !IsUnavailable(err) {
		t.Fatalf("expected unavailable for foreign domain, got %v", err)
	}
}

func TestChain_FirstNonBlankWins(t *testing.T) {
	failing := core.CredentialFunc(func(context.Context) (string, error) { return "", errors.New("keychain locked") })
	t.Setenv("TEST_COOKIE", "")
	src := Chain(core.EnvCredential("TEST_COOKIE"), failing, core.StaticCredential("a=b"))
	got, err := src.Credential(context.Background())
	if err != nil || got != "a=b" {
		t.Fatalf("Credential() = %q, %v", got, err)
	}

	_, err = Chain(failing).Credential(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestForDomain_EnvOverride(t *testing.T) {
	t.Setenv("TEST_COOKIE", "session=from-env")
	got, err := ForDomain("TEST_COOKIE", "example.invalid", nil).Credential(context.Background())
	if err != nil || got != "session=from-env" {
		t.Fatalf("Credential() = %q, %v", got, err)
	}
}

func TestNamed(t *testing.T) {
	src := Named(core.StaticCredential("a=1; CToken=tok"), "ctoken")
	got, err := src.Credential(context.Background())
	if err != nil || got != "tok" {
		t.Fatalf("Credential() = %q, %v", got, err)
	}
	if _, err := Named(core.StaticCredential("a=1"), "ctoken").Credential(context.Background()); !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
