// File: internal/infra/metrics/jobs.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobsTotal,
		jobRetries,
		jobDeadLetters,
		jobQueueDepth,
	)
}

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_jobs_total",
			Help: "Background jobs by kind and final outcome (ok/dead).",
		},
		[]string{"kind", "outcome"},
	)

	jobRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_job_retries_total",
			Help: "Retried job attempts by kind.",
		},
		[]string{"kind"},
	)

	jobDeadLetters = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_job_dead_letters_total",
			Help: "Jobs moved to the dead-letter log after exhausting retries.",
		},
	)

	jobQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "billing_job_queue_depth",
			Help: "Jobs currently waiting in the worker queue.",
		},
	)
)

func IncJob(kind, outcome string) {
	jobsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncJobRetry(kind string) {
	jobRetries.WithLabelValues(norm(kind)).Inc()
}

func IncJobDeadLetter() {
	jobDeadLetters.Inc()
}

func SetJobQueueDepth(n int) {
	jobQueueDepth.Set(float64(n))
}
