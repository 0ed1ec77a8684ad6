package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkroom_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Room lifecycle
	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkroom_rooms_created_total",
			Help: "Total rooms created",
		},
	)

	RoomsSoftDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkroom_rooms_soft_deleted_total",
			Help: "Total rooms moved into the grace period",
		},
	)

	RoomsDisbanded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkroom_rooms_disbanded_total",
			Help: "Total rooms disbanded",
		},
	)

	// Delivery
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkroom_messages_sent_total",
			Help: "Total messages accepted by the broker",
		},
	)

	FanoutDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darkroom_fanout_dropped_total",
			Help: "Deliveries dropped because a connection queue was full",
		},
	)

	RejectedOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkroom_rejected_ops_total",
			Help: "Operations rejected, by event and code",
		},
		[]string{"op", "code"},
	)

	// Presence
	Connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "darkroom_connections",
			Help: "Currently bound signal connections",
		},
	)

	PresenceCorrections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darkroom_presence_corrections_total",
			Help: "Presence entries fixed by the reconciliation sweep",
		},
		[]string{"kind"}, // "stale" or "orphan"
	)

	// Infrastructure
	StoreLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "darkroom_store_latency_seconds",
			Help:    "Store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
