// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsConsumed counts records whose processing completed, labelled by
	// outcome.
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of records processed per topic and outcome",
		},
		[]string{"topic", "status"},
	)

	// EventsDropped counts records acknowledged without effect: duplicates
	// and unknown event types.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of records dropped per topic and error code",
		},
		[]string{"topic", "error_code"},
	)

	// EventsDeadLettered counts records parked on a dead-letter topic after
	// their retry budget ran out.
	EventsDeadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dead_lettered_total",
			Help: "Total number of records moved to a dead-letter topic",
		},
		[]string{"topic", "error_code"},
	)

	// DuplicateEvents counts idempotency-guard hits.
	DuplicateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_events_total",
			Help: "Total number of redelivered events absorbed by the idempotency guard",
		},
		[]string{"event_type"},
	)

	// TransitionsRejected counts lifecycle transitions refused by the status
	// graph.
	TransitionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_rejected_total",
			Help: "Total number of status transitions rejected as invalid",
		},
		[]string{"event_type"},
	)

	// ConcurrencyConflicts counts optimistic-version mismatches, including
	// those resolved by a successful retry.
	ConcurrencyConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concurrency_conflicts_total",
			Help: "Total number of optimistic version conflicts observed",
		},
		[]string{"entity"},
	)

	// AllocationNoCapacity counts intake submissions re-queued because no
	// batch had room.
	AllocationNoCapacity = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_no_capacity_total",
			Help: "Total number of submissions re-queued to the verification backlog",
		},
	)

	// HandlerDuration observes end-to-end handler latency per topic and event
	// type.
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "handler_duration_seconds",
			Help:    "Time spent handling one record",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "event_type"},
	)

	// NotificationsSent counts outbound notifications per channel and outcome.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications attempted per channel and outcome",
		},
		[]string{"channel", "status"},
	)
)
