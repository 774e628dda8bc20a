// Package metrics wires a prometheus.Registry through the components that
// the teacher instruments the same way: snow/engine/snowman/block/
// meter_vm.go wraps every blocking VM call with a prometheus histogram
// before dispatching it, and consensus/snowball.Parameters in the
// teacher's benchmark carries a registry reference alongside K/Alpha/Beta.
// This package collapses that pattern into one small registry every
// long-lived component takes a reference to, instead of each package
// reaching for the global prometheus.DefaultRegisterer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the counters, gauges and histograms this module's
// components report against. All metrics are registered on a private
// prometheus.Registry so tests can construct throwaway instances without
// colliding on the global default registerer.
type Registry struct {
	reg *prometheus.Registry

	AvalancheRounds          *prometheus.CounterVec
	AvalancheOutcomes        *prometheus.CounterVec
	AvalancheDecisionSeconds prometheus.Histogram
	BlockValidationSeconds   prometheus.Histogram
	ForkResolutions          *prometheus.CounterVec
	MempoolSize              prometheus.Gauge
	PeerConnections          *prometheus.GaugeVec
}

// NewRegistry builds and registers every metric on a fresh
// prometheus.Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		AvalancheRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timecoin",
			Subsystem: "avalanche",
			Name:      "rounds_total",
			Help:      "Avalanche query rounds run, labeled by whether the round's quorum agreed.",
		}, []string{"result"}),
		AvalancheOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timecoin",
			Subsystem: "avalanche",
			Name:      "outcomes_total",
			Help:      "Terminal Avalanche decisions, labeled finalized or rejected.",
		}, []string{"outcome"}),
		AvalancheDecisionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timecoin",
			Subsystem: "avalanche",
			Name:      "decision_seconds",
			Help:      "Wall-clock time from Run() entry to a terminal Avalanche decision.",
			Buckets:   prometheus.DefBuckets,
		}),
		BlockValidationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timecoin",
			Subsystem: "blockstore",
			Name:      "validation_seconds",
			Help:      "CPU-bound block validation time (merkle, replay, signature checks).",
			Buckets:   prometheus.DefBuckets,
		}),
		ForkResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timecoin",
			Subsystem: "forkresolver",
			Name:      "resolutions_total",
			Help:      "resolve_fork invocations, labeled by terminal disposition.",
		}, []string{"disposition"}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "timecoin",
			Subsystem: "mempool",
			Name:      "entries",
			Help:      "Current number of pool entries across all states.",
		}),
		PeerConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "timecoin",
			Subsystem: "network",
			Name:      "connections",
			Help:      "Live peer connections, labeled Regular or Whitelisted.",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.AvalancheRounds,
		m.AvalancheOutcomes,
		m.AvalancheDecisionSeconds,
		m.BlockValidationSeconds,
		m.ForkResolutions,
		m.MempoolSize,
		m.PeerConnections,
	)
	return m
}

// Gatherer exposes the underlying registry for an external HTTP/RPC
// surface to scrape; this module owns no such surface itself (spec.md §1
// scopes the RPC surface out), so Gatherer is the whole of this
// package's externally consumed API.
func (m *Registry) Gatherer() prometheus.Gatherer { return m.reg }

// Timer starts a stopwatch that records into h when stopped, used around
// the CPU-bound sections timed in blockstore and consensus/avalanche.
func Timer(h prometheus.Histogram) func() {
	start := time.Now()
	return func() { h.Observe(time.Since(start).Seconds()) }
}
