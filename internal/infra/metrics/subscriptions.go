// File: internal/infra/metrics/subscriptions.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionTransitions,
		subscriptionsActive,
		subscriptionsExpiredBySweep,
	)
}

var (
	subscriptionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_subscription_transitions_total",
			Help: "Subscription state transitions (activated/renewed/past_due/cancelled/expired).",
		},
		[]string{"transition"},
	)

	subscriptionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_subscriptions_active",
			Help: "Currently active or in-grace subscriptions per package family.",
		},
		[]string{"package_type"},
	)

	subscriptionsExpiredBySweep = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_expired_by_sweep_total",
			Help: "Subscriptions expired by the scheduled sweep.",
		},
	)
)

func IncSubscriptionTransition(transition string) {
	subscriptionTransitions.WithLabelValues(norm(transition)).Inc()
}

func SetActiveSubscriptions(pkgType string, count int) {
	subscriptionsActive.WithLabelValues(norm(pkgType)).Set(float64(count))
}

func AddExpiredBySweep(n int) {
	subscriptionsExpiredBySweep.Add(float64(n))
}
