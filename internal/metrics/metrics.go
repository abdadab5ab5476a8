// Package metrics exposes the protocol counters as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics mirrors the protocol-wide aggregates for scraping. The ledger's
// persisted counters stay authoritative; these are observational only.
type Metrics struct {
	Contributions      prometheus.Counter
	Verified           prometheus.Counter
	CertificatesMinted prometheus.Counter
	RewardsDistributed prometheus.Counter
	Paused             prometheus.Gauge
}

// New creates and registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Contributions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nwu_contributions_total",
			Help: "Contributions submitted",
		}),
		Verified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nwu_contributions_verified_total",
			Help: "Contributions that passed verification",
		}),
		CertificatesMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nwu_certificates_minted_total",
			Help: "Certificates minted",
		}),
		RewardsDistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nwu_rewards_distributed_total",
			Help: "Reward tokens distributed, in base units",
		}),
		Paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nwu_protocol_paused",
			Help: "1 while the protocol pause flag is set",
		}),
	}

	reg.MustRegister(
		m.Contributions,
		m.Verified,
		m.CertificatesMinted,
		m.RewardsDistributed,
		m.Paused,
	)

	return m
}

// Nop returns metrics registered nowhere, for tests and tools.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
