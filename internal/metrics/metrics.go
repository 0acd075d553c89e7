// Package metrics defines the Prometheus collectors exposed by both
// processes: HTTP-facing request counters/histograms/gauges, plus
// job-domain collectors for the orchestrator, worker, finalizer, and key
// rotator.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge

	JobsProcessedTotal  *prometheus.CounterVec
	JobDuration         prometheus.Histogram
	RunsFinalizedTotal  prometheus.Counter
	KeyCooldownsTotal   prometheus.Counter
	KeysLiveGauge       prometheus.Gauge
	ThrottleWaitSeconds prometheus.Histogram
	RetryAttemptsTotal  *prometheus.CounterVec
}

// New registers and returns the metric collectors on the default registry.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytresolver_http_requests_total",
			Help: "Total HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ytresolver_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ytresolver_http_active_requests",
			Help: "In-flight HTTP requests.",
		}),
		JobsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytresolver_jobs_processed_total",
			Help: "Total Jobs processed by terminal status.",
		}, []string{"status"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytresolver_job_duration_seconds",
			Help:    "Time from PROCESSING to terminal status for a Job.",
			Buckets: prometheus.DefBuckets,
		}),
		RunsFinalizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ytresolver_runs_finalized_total",
			Help: "Total Runs transitioned to FINISHED.",
		}),
		KeyCooldownsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ytresolver_key_cooldowns_total",
			Help: "Total times an API key was placed on cooldown.",
		}),
		KeysLiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ytresolver_keys_live",
			Help: "Current number of API keys in the live pool.",
		}),
		ThrottleWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ytresolver_throttle_wait_seconds",
			Help:    "Time spent blocked in the per-tenant rate limiter.",
			Buckets: prometheus.DefBuckets,
		}),
		RetryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytresolver_retry_attempts_total",
			Help: "Total retry attempts by classification.",
		}, []string{"kind"}),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPActiveRequests,
		m.JobsProcessedTotal,
		m.JobDuration,
		m.RunsFinalizedTotal,
		m.KeyCooldownsTotal,
		m.KeysLiveGauge,
		m.ThrottleWaitSeconds,
		m.RetryAttemptsTotal,
	)

	return m
}
