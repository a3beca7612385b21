// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderRequestErrors   *prometheus.CounterVec

	// Ingestion metrics
	PricePointsInserted *prometheus.CounterVec
	AssetIngestErrors   *prometheus.CounterVec

	// Grouping metrics
	MembershipEvents *prometheus.CounterVec

	// Job metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coin_tracker"
	}

	return &Metrics{
		ProviderRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Provider API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ProviderRequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_errors_total",
			Help:      "Total number of failed provider API requests",
		}, []string{"endpoint"}),

		PricePointsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_points_inserted_total",
			Help:      "Total number of price points inserted by grain",
		}, []string{"grain"}),
		AssetIngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "asset_errors_total",
			Help:      "Total number of per-asset ingestion errors by grain",
		}, []string{"grain"}),

		MembershipEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grouping",
			Name:      "membership_events_total",
			Help:      "Total number of membership events emitted by group and type",
		}, []string{"group", "event_type"}),

		JobRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Total number of job runs by job and status",
		}, []string{"job", "status"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordProviderRequest records one provider API call.
func RecordProviderRequest(endpoint string, seconds float64, err error) {
	DefaultMetrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderRequestErrors.WithLabelValues(endpoint).Inc()
	}
}

// RecordPricePointsInserted adds to the inserted-points counter for a grain.
func RecordPricePointsInserted(grain string, n int) {
	DefaultMetrics.PricePointsInserted.WithLabelValues(grain).Add(float64(n))
}

// RecordAssetIngestError increments the per-asset error counter for a grain.
func RecordAssetIngestError(grain string) {
	DefaultMetrics.AssetIngestErrors.WithLabelValues(grain).Inc()
}

// RecordMembershipEvent increments the membership event counter.
func RecordMembershipEvent(group, eventType string) {
	DefaultMetrics.MembershipEvents.WithLabelValues(group, eventType).Inc()
}

// RecordJobRun records a completed job run.
func RecordJobRun(job, status string, durationSeconds float64) {
	DefaultMetrics.JobRuns.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(durationSeconds)
}
