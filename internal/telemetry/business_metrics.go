package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the subscription engine.
// Every metric carries the payment mode where it is known so live and
// test traffic can be separated on dashboards.
type BusinessMetrics struct {
	// Webhooks
	WebhookReceived   *prometheus.CounterVec
	WebhookProcessed  *prometheus.CounterVec
	WebhookFailed     *prometheus.CounterVec
	WebhookDuplicates *prometheus.CounterVec
	WebhookLatency    *prometheus.HistogramVec

	// Subscriptions
	SubscriptionsCreated    *prometheus.CounterVec
	SubscriptionTransitions *prometheus.CounterVec
	SubscriptionRenewals    *prometheus.CounterVec
	Commands                *prometheus.CounterVec

	// Refunds
	RefundsIssued *prometheus.CounterVec
	RefundAmount  *prometheus.CounterVec

	// External API performance
	StripeAPILatency *prometheus.HistogramVec
}

// NewBusinessMetrics creates and registers all business metrics on reg.
// A nil reg uses the default registerer.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "subscriptions"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_received_total",
				Help:      "Total gateway webhooks received with a valid signature",
			},
			[]string{"event_type", "mode"},
		),
		WebhookProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_processed_total",
				Help:      "Total webhooks processed by outcome",
			},
			[]string{"event_type", "source_type", "request_status"},
		),
		WebhookFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_failed_total",
				Help:      "Total webhooks rejected or failed",
			},
			[]string{"event_type", "reason"}, // reason: signature, payload, claim, processing
		),
		WebhookDuplicates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duplicates_total",
				Help:      "Total redelivered webhooks acknowledged without processing",
			},
			[]string{"event_type"},
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook processing time",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"event_type"},
		),

		// =======================================================================
		// Subscriptions
		// =======================================================================
		SubscriptionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscriptions_created_total",
				Help:      "Total subscriptions created from paid orders",
			},
			[]string{"mode", "bounded"},
		),
		SubscriptionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscription_transitions_total",
				Help:      "Total subscription status changes",
			},
			[]string{"from", "to", "actor"},
		),
		SubscriptionRenewals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscription_renewals_total",
				Help:      "Total recurring charges by outcome",
			},
			[]string{"mode", "outcome"}, // outcome: paid, failed, duplicate
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "subscription_commands_total",
				Help:      "Total subscription commands by outcome",
			},
			[]string{"command", "outcome"},
		),

		// =======================================================================
		// Refunds
		// =======================================================================
		RefundsIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refunds_total",
				Help:      "Total refunds recorded",
			},
			[]string{"type", "path"}, // path: command, webhook
		),
		RefundAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refund_amount_total",
				Help:      "Total refunded amount in major currency units",
			},
			[]string{"currency"},
		),

		// =======================================================================
		// External API Performance
		// =======================================================================
		StripeAPILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stripe_api_duration_seconds",
				Help:      "Stripe API call duration",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation", "outcome"},
		),
	}
}

// ObserveStripeCall records the latency of one gateway call. Its signature
// matches billing.CallObserver.
func (m *BusinessMetrics) ObserveStripeCall(op string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.StripeAPILatency.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// RecordCommand counts one subscription command.
func (m *BusinessMetrics) RecordCommand(command string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}
