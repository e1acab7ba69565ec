package report

import "github.com/prometheus/client_golang/prometheus"

// Metrics are labelled by report slug so they can be served per report.
type Metrics struct {
	refreshes   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	fetchErrors *prometheus.CounterVec
	entries     *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timereport",
				Name:      "refresh_total",
				Help:      "Report refresh attempts by result.",
			},
			[]string{"report", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "timereport",
				Name:      "refresh_duration_seconds",
				Help:      "Histogram of report generation durations in seconds.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"report"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "timereport",
				Name:      "account_fetch_errors_total",
				Help:      "Accounts left out of a snapshot, by error kind.",
			},
			[]string{"report", "kind"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "timereport",
				Name:      "snapshot_entries",
				Help:      "Number of entries in the current snapshot.",
			},
			[]string{"report"},
		),
	}
	reg.MustRegister(m.refreshes, m.duration, m.fetchErrors, m.entries)
	return m
}
