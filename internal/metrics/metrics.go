package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcwebhooks_webhooks_received_total",
		Help: "Total number of webhook requests, labelled by response status.",
	}, []string{"status"})

	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcwebhooks_events_dispatched_total",
		Help: "Total number of dispatch attempts, labelled by event type and outcome.",
	}, []string{"event_type", "outcome"})

	ProcessorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcwebhooks_processor_duration_seconds",
		Help:    "Time spent inside a processor, labelled by processor name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"processor"})

	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mcwebhooks_dispatch_queue_depth",
		Help: "Events waiting for a dispatch worker.",
	})

	DispatchQueueOverflow = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcwebhooks_dispatch_queue_overflow_total",
		Help: "Events dispatched inline because the queue was full or closed.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcwebhooks_notifications_sent_total",
		Help: "Notifications delivered to providers, labelled by provider and status.",
	}, []string{"provider", "status"})

	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcwebhooks_pubsub_messages_published_total",
		Help: "Pub/sub messages published, labelled by channel and status.",
	}, []string{"channel", "status"})
)

// Outcome labels for EventsDispatched.
const (
	OutcomeProcessed = "processed"
	OutcomeFailed    = "failed"
	OutcomeUnhandled = "unhandled"
	OutcomeUntagged  = "untagged"
)

// Status returns the status label for an error result.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
