// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheDisabled = "disabled"
)

// Gateway call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeRemote    = "remote_error"
	OutcomeTransport = "transport_error"
	OutcomeFailed    = "failed"
)

var (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ReportCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_cache_lookups_total",
			Help: "Artifact cache lookups by result",
		},
		[]string{"result"},
	)

	ReportGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_generation_duration_seconds",
			Help:    "Time spent aggregating and rendering one report",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ReportGenerationsCollapsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_generations_collapsed_total",
			Help: "Requests that waited on an in-flight generation of the same key",
		},
	)

	GatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Remote gateway calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_call_duration_seconds",
			Help: "Remote gateway call latency",
		},
		[]string{"endpoint"},
	)

	EmailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_total",
			Help: "Email dispatch attempts by provider and result",
		},
		[]string{"provider", "result"},
	)
)
