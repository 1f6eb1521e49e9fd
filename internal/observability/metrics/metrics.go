package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments for the storefront core.
type Metrics struct {
	ordersCreated    *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
	creditsGranted   prometheus.Counter
	creditsDebited   prometheus.Counter
	creditsRefunded  prometheus.Counter
	webhookEvents    *prometheus.CounterVec
	emailsSent       *prometheus.CounterVec
	rateLimited      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turuturu_orders_created_total",
			Help: "Orders created, labeled by initial status.",
		}, []string{"status"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turuturu_order_transitions_total",
			Help: "Order status transitions.",
		}, []string{"from", "to"}),
		creditsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turuturu_credits_granted_total",
			Help: "Credits granted through webhook reconciliation.",
		}),
		creditsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turuturu_credits_debited_total",
			Help: "Credits debited for orders.",
		}),
		creditsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "turuturu_credits_refunded_total",
			Help: "Credit debits reversed.",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turuturu_webhook_events_total",
			Help: "Webhook events by outcome (applied, ignored, rejected, duplicate).",
		}, []string{"outcome"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turuturu_emails_total",
			Help: "Notification dispatch results by kind and result.",
		}, []string{"kind", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turuturu_rate_limited_total",
			Help: "Requests rejected by rate limiting, by bucket.",
		}, []string{"bucket"}),
	}

	prometheus.MustRegister(
		m.ordersCreated,
		m.orderTransitions,
		m.creditsGranted,
		m.creditsDebited,
		m.creditsRefunded,
		m.webhookEvents,
		m.emailsSent,
		m.rateLimited,
	)
	return m
}

func (m *Metrics) RecordOrderCreated(status string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordOrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordCreditsGranted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.creditsGranted.Add(float64(n))
}

func (m *Metrics) RecordCreditDebited() {
	if m == nil {
		return
	}
	m.creditsDebited.Inc()
}

func (m *Metrics) RecordCreditRefunded() {
	if m == nil {
		return
	}
	m.creditsRefunded.Inc()
}

func (m *Metrics) RecordWebhookEvent(outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEmail(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.emailsSent.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordRateLimited(bucket string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(bucket).Inc()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)
