package providerbase

import "github.com/janekbaraniewski/quotabar/internal/core"

// Base centralizes provider metadata. Provider-specific packages embed this
// and implement only FetchSnapshot().
type Base struct {
	spec core.ProviderSpec
}

func New(spec core.ProviderSpec) Base {
	normalized := spec
	if normalized.ID == "" {
		normalized.ID = "unknown"
	}
	if normalized.Info.Name == "" {
		normalized.Info.Name = normalized.ID
	}
	if normalized.Setup.DocsURL == "" {
		normalized.Setup.DocsURL = normalized.Info.DocURL
	}

	return Base{spec: normalized}
}

func (b Base) ID() string {
	return b.spec.ID
}

func (b Base) Describe() core.ProviderInfo {
	return b.spec.Info
}

func (b Base) Spec() core.ProviderSpec {
	return b.spec
}
