package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics exposed on the local /metrics surface.
var (
	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "feed",
		Name:      "reconcile_outcomes_total",
		Help:      "Reconciliation outcomes by delta kind (appended, replaced, retired, removed, none).",
	}, []string{"kind"})

	FeedEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "feed",
		Name:      "events_dropped_total",
		Help:      "Feed events dropped because a serialized queue was full.",
	})

	FeedQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chatsync",
		Subsystem: "feed",
		Name:      "queue_depth",
		Help:      "Current depth of each feed's serialized event queue.",
	}, []string{"group"})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "feed",
		Name:      "send_failures_total",
		Help:      "Drafts that transitioned to failed after the confirmation timeout.",
	})

	RESTFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "transport",
		Name:      "rest_failures_total",
		Help:      "REST calls mapped to a taxonomy kind at the adapter boundary.",
	}, []string{"kind"})

	PushReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "transport",
		Name:      "push_reconnects_total",
		Help:      "Push stream reconnect attempts.",
	})

	ReactionGuardRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chatsync",
		Subsystem: "reactions",
		Name:      "guard_rejections_total",
		Help:      "Reaction toggles rejected locally by the in-flight guard.",
	})

	CacheDiskBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatsync",
		Subsystem: "cache",
		Name:      "disk_bytes",
		Help:      "On-disk size of the local durable cache.",
	})

	CacheConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatsync",
		Subsystem: "cache",
		Name:      "conversations",
		Help:      "Number of conversation records in the local cache.",
	})
)
