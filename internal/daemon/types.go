package daemon

import (
	"time"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/display"
	"github.com/janekbaraniewski/quotabar/internal/store"
)

const APIVersion = "v1"

type HealthResponse struct {
	Status        string   `json:"status"`
	DaemonVersion string   `json:"daemon_version,omitempty"`
	APIVersion    string   `json:"api_version,omitempty"`
	Providers     []string `json:"providers,omitempty"`
}

// ProviderStatus is the latest engine result for one provider in wire form.
// Pending is true until the first fetch finishes.
type ProviderStatus struct {
	ProviderID string              `json:"provider_id"`
	Pending    bool                `json:"pending,omitempty"`
	FetchID    string              `json:"fetch_id,omitempty"`
	FetchedAt  *time.Time          `json:"fetched_at,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	Error      string              `json:"error,omitempty"`
	Snapshot   *core.QuotaSnapshot `json:"snapshot,omitempty"`
	Display    display.Model       `json:"display"`
}

type SnapshotsResponse struct {
	Providers []ProviderStatus `json:"providers"`
}

type HistoryResponse struct {
	ProviderID string         `json:"provider_id"`
	Records    []store.Record `json:"records"`
}

// StatusFromResult converts an engine result to its wire form.
func StatusFromResult(r core.Result) ProviderStatus {
	st := ProviderStatus{
		ProviderID: r.ProviderID,
		FetchID:    r.FetchID,
		Snapshot:   r.Snapshot,
		Display:    display.Placeholder(r.ProviderID),
	}
	if !r.FetchedAt.IsZero() {
		at := r.FetchedAt
		st.FetchedAt = &at
	}
	if r.Err != nil {
		st.ErrorKind = string(core.KindOf(r.Err))
		st.Error = r.Err.Error()
	}
	if r.Snapshot != nil {
		st.Display = display.Build(r.Snapshot)
	}
	return st
}

func PendingStatus(providerID string) ProviderStatus {
	return ProviderStatus{
		ProviderID: providerID,
		Pending:    true,
		Display:    display.Placeholder(providerID),
	}
}
