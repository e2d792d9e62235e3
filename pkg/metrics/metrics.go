package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks currently open realtime connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sharesync_active_connections",
			Help: "Number of open realtime connections",
		},
	)

	// EventsEmitted counts realtime events pushed to rooms, labelled by event kind.
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharesync_events_emitted_total",
			Help: "Total number of realtime events emitted to rooms",
		},
		[]string{"event"},
	)

	// DroppedDeliveries counts per-connection deliveries abandoned due to backpressure.
	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sharesync_dropped_deliveries_total",
			Help: "Total number of deliveries dropped because a client could not keep up",
		},
	)

	// NotificationsCreated counts persisted notification records by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharesync_notifications_created_total",
			Help: "Total number of notification records written",
		},
		[]string{"type"},
	)

	// PointsAwarded counts point-earning ledger appends by action tag.
	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sharesync_points_awarded_total",
			Help: "Total number of point events appended to the ledger",
		},
		[]string{"action"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sharesync_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
