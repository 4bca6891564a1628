package core

type ProviderAuthType string

const (
	ProviderAuthTypeUnknown   ProviderAuthType = ""
	ProviderAuthTypeToken     ProviderAuthType = "token"
	ProviderAuthTypeCookie    ProviderAuthType = "cookie"
	ProviderAuthTypeConnector ProviderAuthType = "connector"
)

// ProviderAuthSpec defines how a provider authenticates and how users configure it.
type ProviderAuthSpec struct {
	Type   ProviderAuthType
	EnvVar string // environment override for the credential
	Domain string // cookie domain for browser import
}

// ProviderSetupSpec describes setup entry points and quickstart instructions.
type ProviderSetupSpec struct {
	DocsURL    string
	Quickstart []string
}

// ProviderSpec is the canonical provider definition used for registration and UI metadata.
type ProviderSpec struct {
	ID    string
	Info  ProviderInfo
	Auth  ProviderAuthSpec
	Setup ProviderSetupSpec
}
