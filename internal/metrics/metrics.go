// Package metrics exposes poll outcomes and quota windows as Prometheus
// series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/janekbaraniewski/quotabar/internal/core"
)

const namespace = "quotabar"

type Metrics struct {
	fetchTotal       *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	windowUsed       *prometheus.GaugeVec
	windowResetAt    *prometheus.GaugeVec
	lastSuccess      *prometheus.GaugeVec
	primaryUsedRatio *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Provider fetches by outcome kind (ok or an error kind).",
		}, []string{"provider", "outcome"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of provider fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		windowUsed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_used_percent",
			Help:      "Used percent of each quota window.",
		}, []string{"provider", "window", "label"}),

		windowResetAt: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_reset_timestamp_seconds",
			Help:      "Unix time at which each quota window resets.",
		}, []string{"provider", "window"}),

		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch.",
		}, []string{"provider"}),

		primaryUsedRatio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "primary_used_ratio",
			Help:      "Primary window used ratio (0..1) driving severity.",
		}, []string{"provider"}),
	}
}

// Observe records one engine result. Window gauges keep their last values
// when a fetch fails.
func (m *Metrics) Observe(r core.Result) {
	outcome := "ok"
	if r.Err != nil {
		outcome = string(core.KindOf(r.Err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.fetchTotal.WithLabelValues(r.ProviderID, outcome).Inc()
	m.fetchDuration.WithLabelValues(r.ProviderID).Observe(r.Elapsed.Seconds())

	if r.Snapshot == nil {
		return
	}
	snap := r.Snapshot
	m.lastSuccess.WithLabelValues(r.ProviderID).Set(float64(snap.FetchedAt.Unix()))
	m.primaryUsedRatio.WithLabelValues(r.ProviderID).Set(snap.PrimaryUsedRatio())
	for _, w := range snap.Windows {
		m.windowUsed.WithLabelValues(r.ProviderID, w.ID, w.Label).Set(float64(w.UsedPercent))
		m.windowResetAt.WithLabelValues(r.ProviderID, w.ID).Set(float64(w.ResetAt.Unix()))
	}
}
