// Package metrics registers the Prometheus instruments the engine and
// gateway report into.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every instrument the service exports.
type Metrics struct {
	WebhooksReceived  prometheus.Counter
	WebhooksRejected  prometheus.Counter
	TurnsStarted      prometheus.Counter
	TurnsFailed       prometheus.Counter
	TurnDuration      prometheus.Histogram
	DuplicateDrops    prometheus.Counter
	IntentsResolved   *prometheus.CounterVec
	ActionsDispatched *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	SendFailures      prometheus.Counter
	RateLimitOverruns prometheus.Counter
}

// New registers all instruments on reg and returns them. Pass a fresh
// registry in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhooksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_webhooks_received_total",
			Help: "Webhook deliveries accepted by the gateway.",
		}),
		WebhooksRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_webhooks_rejected_total",
			Help: "Webhook deliveries rejected before processing (bad signature or payload).",
		}),
		TurnsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_turns_started_total",
			Help: "Conversation turns handed to the engine.",
		}),
		TurnsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_turns_failed_total",
			Help: "Turns that ended in the apology path.",
		}),
		TurnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "djula_turn_duration_seconds",
			Help:    "Wall time of one conversation turn.",
			Buckets: prometheus.DefBuckets,
		}),
		DuplicateDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_duplicate_deliveries_total",
			Help: "Webhook deliveries dropped as replays.",
		}),
		IntentsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "djula_intents_resolved_total",
			Help: "Resolved intents by type.",
		}, []string{"type"}),
		ActionsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "djula_actions_dispatched_total",
			Help: "Dispatched actions by tag.",
		}, []string{"action"}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_messages_sent_total",
			Help: "Outbound messages accepted by the channel.",
		}),
		SendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_message_send_failures_total",
			Help: "Outbound messages the channel rejected.",
		}),
		RateLimitOverruns: f.NewCounter(prometheus.CounterOpts{
			Name: "djula_rate_limit_overruns_total",
			Help: "Sends past the per-customer soft limit.",
		}),
	}
}
