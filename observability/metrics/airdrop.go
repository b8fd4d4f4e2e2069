package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AirdropMetrics tracks claim outcomes per proof path plus the kill-switch
// state.
type AirdropMetrics struct {
	claims             *prometheus.CounterVec
	signaturesDisabled prometheus.Gauge
}

var (
	airdropOnce     sync.Once
	airdropRegistry *AirdropMetrics
)

// Airdrop returns the process-wide airdrop metrics, registering them on first
// use.
func Airdrop() *AirdropMetrics {
	airdropOnce.Do(func() {
		airdropRegistry = &AirdropMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airdrop_claims_total",
				Help: "Count of claim attempts by proof path and result.",
			}, []string{"path", "result"}),
			signaturesDisabled: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "airdrop_signatures_disabled",
				Help: "1 when the signature verification path has been revoked.",
			}),
		}
		prometheus.MustRegister(
			airdropRegistry.claims,
			airdropRegistry.signaturesDisabled,
		)
	})
	return airdropRegistry
}

// ObserveClaim records a claim attempt outcome for the given proof path.
func (m *AirdropMetrics) ObserveClaim(path, result string) {
	if m == nil {
		return
	}
	if path == "" {
		path = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	m.claims.WithLabelValues(path, result).Inc()
}

// SetSignaturesDisabled mirrors the kill-switch flag.
func (m *AirdropMetrics) SetSignaturesDisabled(disabled bool) {
	if m == nil {
		return
	}
	if disabled {
		m.signaturesDisabled.Set(1)
		return
	}
	m.signaturesDisabled.Set(0)
}

// InitPath pre-registers label combinations so dashboards show zeroes before
// the first claim.
func (m *AirdropMetrics) InitPath(path string) {
	if m == nil {
		return
	}
	for _, result := range []string{"ok", "rejected", "error"} {
		m.claims.WithLabelValues(path, result).Add(0)
	}
}
