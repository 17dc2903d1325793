package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CollabConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	CollabSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collab_sessions_active",
			Help: "Number of collaboration sessions with at least one member",
		},
	)

	CollabMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_websocket_messages_total",
			Help: "Total number of WebSocket messages routed by type",
		},
		[]string{"message_type"},
	)

	CollabErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_websocket_errors_total",
			Help: "Total number of WebSocket error frames sent by code",
		},
		[]string{"error_code"},
	)

	CollabAuthTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_websocket_auth_total",
			Help: "Total number of authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	CollabBroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_websocket_broadcast_drops_total",
			Help: "Total number of broadcast deliveries skipped because the recipient was not writable",
		},
	)

	CollabDisconnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_websocket_disconnections_total",
			Help: "Total number of WebSocket disconnections by reason",
		},
		[]string{"reason"},
	)

	CollabStoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_store_failures_total",
			Help: "Total number of best-effort storage collaborator failures by operation",
		},
		[]string{"operation"},
	)
)
