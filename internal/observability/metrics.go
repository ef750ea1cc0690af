package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// archive ingest pipeline and the API client.
type Metrics struct {
	DaysExtracted   prometheus.Counter
	RowsExtracted   prometheus.Counter
	ReadingsLoaded  prometheus.Counter
	TransformErrors prometheus.Counter
	IngestRunning   prometheus.Gauge

	// Day processing metrics.
	DayProcessingDuration prometheus.Histogram

	// API client metrics.
	APIRequests        *prometheus.CounterVec   // labels: endpoint, status
	APIRequestDuration *prometheus.HistogramVec // labels: endpoint
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DaysExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodgauge",
			Name:      "days_extracted_total",
			Help:      "Total archive days fetched from the flood-monitoring API.",
		}),
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodgauge",
			Name:      "rows_extracted_total",
			Help:      "Total raw archive rows extracted.",
		}),
		ReadingsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodgauge",
			Name:      "readings_loaded_total",
			Help:      "Total readings written to the archive store.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodgauge",
			Name:      "transform_errors_total",
			Help:      "Total archive rows dropped for failing to parse.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodgauge",
			Name:      "ingest_running",
			Help:      "1 while an archive ingest is active, 0 otherwise.",
		}),
		DayProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodgauge",
			Name:      "day_processing_duration_seconds",
			Help:      "Duration of a complete fetch-parse-store cycle for one archive day.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodgauge",
			Name:      "api_requests_total",
			Help:      "Flood-monitoring API requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "floodgauge",
			Name:      "api_request_duration_seconds",
			Help:      "Flood-monitoring API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
	}

	prometheus.MustRegister(
		m.DaysExtracted,
		m.RowsExtracted,
		m.ReadingsLoaded,
		m.TransformErrors,
		m.IngestRunning,
		m.DayProcessingDuration,
		m.APIRequests,
		m.APIRequestDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DaysExtracted:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "floodgauge", Name: "days_extracted_total"}),
		RowsExtracted:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "floodgauge", Name: "rows_extracted_total"}),
		ReadingsLoaded:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "floodgauge", Name: "readings_loaded_total"}),
		TransformErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "floodgauge", Name: "transform_errors_total"}),
		IngestRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "floodgauge", Name: "ingest_running"}),
		DayProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "floodgauge", Name: "day_processing_duration_seconds"}),
		APIRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "floodgauge", Name: "api_requests_total"}, []string{"endpoint", "status"}),
		APIRequestDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "floodgauge", Name: "api_request_duration_seconds"}, []string{"endpoint"}),
	}
}
