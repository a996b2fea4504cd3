package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sportsmeet"

// Metrics owns a private Prometheus registry and the engine's collectors
type Metrics struct {
	registry  *prometheus.Registry
	results   *prometheus.CounterVec
	votes     *prometheus.CounterVec
	repairs   *prometheus.CounterVec
	standings prometheus.Histogram
}

// New creates the registry and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recorded_total",
			Help:      "Result ledger writes by kind (insert, correction, removal, rescore).",
		}, []string{"kind"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Ballot submissions by outcome (accepted or denial reason).",
		}, []string{"outcome"}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_repairs_total",
			Help:      "Derived rows corrected by reconciliation, by aggregate.",
		}, []string{"aggregate"}),
		standings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "standings_compute_seconds",
			Help:      "Time spent computing the leaderboard.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.results,
		m.votes,
		m.repairs,
		m.standings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ResultRecorded counts one ledger write
func (m *Metrics) ResultRecorded(kind string) {
	m.results.WithLabelValues(kind).Inc()
}

// VoteCast counts one ballot submission outcome
func (m *Metrics) VoteCast(outcome string) {
	m.votes.WithLabelValues(outcome).Inc()
}

// ReconcileRepaired counts rows repaired for an aggregate
func (m *Metrics) ReconcileRepaired(aggregate string, n int) {
	if n <= 0 {
		return
	}
	m.repairs.WithLabelValues(aggregate).Add(float64(n))
}

// ObserveStandings records how long a leaderboard computation took
func (m *Metrics) ObserveStandings(d time.Duration) {
	m.standings.Observe(d.Seconds())
}
