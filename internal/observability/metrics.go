package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition and scoring pipeline.
type Metrics struct {
	// Upstream acquisition metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: kind, outcome={success,no_data,error}
	UpstreamRetries  *prometheus.CounterVec   // labels: kind
	UpstreamDuration *prometheus.HistogramVec // labels: kind
	CacheLookups     *prometheus.CounterVec   // labels: result={hit,miss}

	// Risk assessment metrics.
	AssessmentsTotal   prometheus.Counter
	AssessmentsFailed  prometheus.Counter
	AssessmentDuration prometheus.Histogram
	LastOverallScore   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.UpstreamDuration,
		m.CacheLookups,
		m.AssessmentsTotal,
		m.AssessmentsFailed,
		m.AssessmentDuration,
		m.LastOverallScore,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avwx",
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by data kind and outcome.",
		}, []string{"kind", "outcome"}),
		UpstreamRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avwx",
			Name:      "upstream_retries_total",
			Help:      "Retry attempts after transient upstream failures.",
		}, []string{"kind"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "avwx",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds, per data kind.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "avwx",
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		AssessmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avwx",
			Name:      "assessments_total",
			Help:      "Total risk assessments computed.",
		}),
		AssessmentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "avwx",
			Name:      "assessments_failed_total",
			Help:      "Risk assessments that degraded to a zero-score result.",
		}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "avwx",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-score cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		LastOverallScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "avwx",
			Name:      "last_overall_risk_score",
			Help:      "Overall score of the most recent risk assessment.",
		}),
	}
}
