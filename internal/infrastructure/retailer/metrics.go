package retailer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for retailer automation.
type Metrics struct {
	Registry        *prometheus.Registry
	SearchesTotal   prometheus.Counter
	SearchDuration  prometheus.Histogram
	AddsTotal       *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	CandidatesFound prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	searches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "retailer_searches_total",
			Help: "Total product searches issued against the retailer.",
		},
	)
	searchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retailer_search_duration_seconds",
			Help:    "Latency of retailer product searches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	adds := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retailer_cart_adds_total",
			Help: "Total add-to-cart attempts by outcome.",
		},
		[]string{"outcome"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retailer_errors_total",
			Help: "Total retailer automation errors by type.",
		},
		[]string{"error_type"},
	)
	candidates := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retailer_search_candidates",
			Help:    "Number of candidates returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	registry.MustRegister(searches, searchDuration, adds, errorsTotal, candidates)

	return &Metrics{
		Registry:        registry,
		SearchesTotal:   searches,
		SearchDuration:  searchDuration,
		AddsTotal:       adds,
		ErrorsTotal:     errorsTotal,
		CandidatesFound: candidates,
	}
}

// IncSearch increments the searches counter.
func (m *Metrics) IncSearch() {
	if m == nil {
		return
	}
	m.SearchesTotal.Inc()
}

// ObserveSearch records a search duration and its candidate count.
func (m *Metrics) ObserveSearch(d time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.CandidatesFound.Observe(float64(candidates))
}

// IncAdd increments the add-to-cart counter for an outcome label.
func (m *Metrics) IncAdd(outcome string) {
	if m == nil {
		return
	}
	m.AddsTotal.WithLabelValues(outcome).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
