package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"autopay-billing/internal/domain/model"
)

func init() {
	register(
		chargeAttemptsTotal,
		chargeVolumeTotal,
		chargeLatency,
		subscriptionsTotal,
		tasksDispatchedTotal,
	)
}

var (
	chargeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charge_attempts_total",
			Help: "Charge attempts by outcome (ok/max_retries/not_active/mismatch/error).",
		},
		[]string{"outcome"},
	)

	chargeVolumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charge_volume_total",
			Help: "Total monetary value of successful charges, labeled by currency.",
		},
		[]string{"currency"},
	)

	chargeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_charge_duration_ms",
			Help:    "Charge invocation latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billing_subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'failed', 'canceled'
	)

	tasksDispatchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_tasks_dispatched_total",
			Help: "Due charge tasks handed to the worker pool by the dispatcher.",
		},
	)
)

func IncChargeAttempt(outcome string) {
	chargeAttemptsTotal.WithLabelValues(outcome).Inc()
}

func AddChargeVolume(currency string, amount int64) {
	chargeVolumeTotal.WithLabelValues(currency).Add(float64(amount))
}

func ObserveChargeLatency(ms float64) {
	chargeLatency.Observe(ms)
}

func IncTasksDispatched(n int) {
	tasksDispatchedTotal.Add(float64(n))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusFailed,
		model.SubscriptionStatusCanceled,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
