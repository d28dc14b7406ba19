// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnomalyPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_predictions_total",
			Help: "Total number of invoice anomaly predictions by result",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_side_effect_failures_total",
			Help: "Total number of failed prediction recordings and alerts",
		},
		[]string{"kind"},
	)

	MigrationChecksums = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_checksums_total",
			Help: "Total number of migration files verified by drift status",
		},
		[]string{"status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// ResultLabel maps a classification to the result label value.
func ResultLabel(anomalous bool) string {
	if anomalous {
		return "anomalous"
	}
	return "normal"
}
