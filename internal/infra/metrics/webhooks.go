// File: internal/infra/metrics/webhooks.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookVerifyFailures,
		webhookLatencyMs,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhooks_total",
			Help: "Received webhooks by gateway and reconciliation result (applied/replayed/ignored).",
		},
		[]string{"gateway", "result"},
	)

	webhookVerifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_verify_failures_total",
			Help: "Webhooks rejected for a bad signature, by gateway.",
		},
		[]string{"gateway"},
	)

	webhookLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_webhook_latency_ms",
			Help:    "Webhook processing latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
		[]string{"gateway"},
	)
)

func IncWebhook(gateway, result string) {
	webhooksTotal.WithLabelValues(norm(gateway), norm(result)).Inc()
}

func IncWebhookVerifyFailure(gateway string) {
	webhookVerifyFailures.WithLabelValues(norm(gateway)).Inc()
}

func ObserveWebhookLatency(gateway string, ms float64) {
	webhookLatencyMs.WithLabelValues(norm(gateway)).Observe(ms)
}
