package providerbase

import (
	"testing"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

func TestNew_AppliesDefaults(t *testing.T) {
	base := New(core.ProviderSpec{
		ID: "sample",
		Info: core.ProviderInfo{
			DocURL: "https://example.com/docs",
		},
		Auth: core.ProviderAuthSpec{
			Type:   core.ProviderAuthTypeCookie,
			EnvVar: "SAMPLE_COOKIE",
		},
	})

	spec := base.Spec()
	if spec.Setup.DocsURL != "https://example.com/docs" {
		t.Fatalf("setup docs = %q, want %q", spec.Setup.DocsURL, "https://example.com/docs")
	}
	if got := base.Describe().Name; got != "sample" {
		t.Fatalf("name = %q, want id fallback", got)
	}
	if got := spec.Auth.EnvVar; got != "SAMPLE_COOKIE" {
		t.Fatalf("spec auth EnvVar = %q, want %q", got, "SAMPLE_COOKIE")
	}
}

func TestNew_EmptyIDFallsBackToUnknown(t *testing.T) {
	if got := New(core.ProviderSpec{}).ID(); got != "unknown" {
		t.Fatalf("ID() = %q, want unknown", got)
	}
}
