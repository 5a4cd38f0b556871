package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stripe API call latency (seconds)
	StripeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hallmail_stripe_call_duration_seconds",
			Help:    "Stripe API call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"operation", "status"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hallmail_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hallmail_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"method", "path", "status"},
	)

	// Subscription sync passes by trigger and outcome
	SyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hallmail_subscription_sync_total",
			Help: "Total number of subscription sync passes",
		},
		[]string{"trigger", "outcome"},
	)

	// Seat rows created or retired by the slot reconciler
	SlotRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hallmail_slot_rows_total",
			Help: "Total number of seat rows changed by reconciliation",
		},
		[]string{"action"}, // created, retired, linked
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hallmail_webhook_events_total",
			Help: "Total number of Stripe webhook events received",
		},
		[]string{"event_type", "outcome"}, // processed, ignored, duplicate, failed
	)
)

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordStripeCall records a Stripe API call duration
func RecordStripeCall(operation string, start time.Time, err error) {
	StripeCallDuration.WithLabelValues(operation, statusLabel(err)).Observe(time.Since(start).Seconds())
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, statusLabel(err)).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request duration
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordSync counts a sync pass
func RecordSync(trigger string, err error) {
	SyncTotal.WithLabelValues(trigger, statusLabel(err)).Inc()
}

// RecordSlotRows counts seat rows changed by reconciliation
func RecordSlotRows(action string, n int) {
	if n <= 0 {
		return
	}
	SlotRowsTotal.WithLabelValues(action).Add(float64(n))
}

// RecordWebhookEvent counts a webhook delivery by outcome
func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
