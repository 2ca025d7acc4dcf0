package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded during a gate run
type Metrics struct {
	// Fetch metrics, labelled by alert source
	AlertsFetched *prometheus.GaugeVec
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec

	// Alerts at or above the threshold, labelled by source and threshold
	AlertsRetained *prometheus.GaugeVec

	// Gate outcomes, labelled by outcome kind and whether it failed the run
	Outcomes *prometheus.CounterVec

	// Unix time of the last completed run
	LastRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		AlertsFetched: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alertgate_alerts_fetched",
				Help: "Open alerts returned by each source",
			},
			[]string{"repository", "source"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertgate_fetch_duration_seconds",
				Help:    "Alert fetch latency in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"source"},
		),
		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertgate_fetch_errors_total",
				Help: "Total number of failed alert fetches",
			},
			[]string{"source", "error_code"},
		),
		AlertsRetained: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alertgate_alerts_retained",
				Help: "Alerts at or above the severity threshold",
			},
			[]string{"repository", "source", "threshold"},
		),
		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertgate_outcomes_total",
				Help: "Gate outcomes by kind",
			},
			[]string{"outcome", "fatal"},
		),
		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alertgate_last_run_timestamp_seconds",
				Help: "Unix time of the last completed gate run",
			},
		),
	}
}

// ObserveFetch records a completed fetch for a source
func (m *Metrics) ObserveFetch(repository, source string, count int, took time.Duration) {
	if m == nil {
		return
	}
	m.AlertsFetched.WithLabelValues(repository, source).Set(float64(count))
	m.FetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

// ObserveFetchError records a failed fetch
func (m *Metrics) ObserveFetchError(source, errorCode string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(source, errorCode).Inc()
}

// ObserveRetained records how many alerts passed the threshold filter
func (m *Metrics) ObserveRetained(repository, source, threshold string, count int) {
	if m == nil {
		return
	}
	m.AlertsRetained.WithLabelValues(repository, source, threshold).Set(float64(count))
}

// ObserveOutcome records a gate outcome
func (m *Metrics) ObserveOutcome(outcome string, fatal bool) {
	if m == nil {
		return
	}
	f := "false"
	if fatal {
		f = "true"
	}
	m.Outcomes.WithLabelValues(outcome, f).Inc()
}

// MarkRun sets the last run timestamp
func (m *Metrics) MarkRun(at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(at.Unix()))
}
