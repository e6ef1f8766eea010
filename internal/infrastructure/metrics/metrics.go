package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// ActiveSessions tracks live transport sessions by connection type (sse, websocket)
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "push_active_sessions",
			Help: "Number of live push sessions by connection type",
		},
		[]string{"type"},
	)

	// SessionEventsTotal counts session lifecycle events (connect, disconnect, rejected)
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_session_events_total",
			Help: "Session lifecycle events by event",
		},
		[]string{"event"},
	)

	// ConnectionsRateLimited counts session attempts refused by the connect rate limiter
	ConnectionsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "push_connections_rate_limited_total",
			Help: "Connection attempts rejected by the per-IP rate limiter",
		},
	)
)

// Group Metrics
var (
	// GroupMembers tracks current membership per group
	GroupMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "push_group_members",
			Help: "Current number of connections in a broadcast group",
		},
		[]string{"group"},
	)

	// GroupSendFailures counts per-connection delivery failures during group sends
	GroupSendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_group_send_failures_total",
			Help: "Per-connection delivery failures during group sends",
		},
		[]string{"group"},
	)
)

// Publisher Metrics
var (
	// PublisherTicksTotal counts publisher ticks by outcome (ok, error, panic)
	PublisherTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_publisher_ticks_total",
			Help: "Publisher ticks by outcome",
		},
		[]string{"status"},
	)

	// PublisherTickDuration tracks how long a tick's delivery request takes
	PublisherTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_publisher_tick_duration_seconds",
			Help:    "Publisher tick duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)
)
