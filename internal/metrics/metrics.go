// Package metrics holds the console's Prometheus self-monitoring series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsconsole_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsconsole_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, simulated latency included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Automation
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsconsole_automation_executions_total",
			Help: "Total number of finished playbook executions",
		},
		[]string{"status", "trigger"},
	)

	ExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opsconsole_automation_execution_duration_seconds",
			Help:    "Simulated playbook execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	// Alert ingestion
	AlertsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsconsole_alerts_received_total",
			Help: "Total number of alerts received by webhook source and outcome",
		},
		[]string{"source", "outcome"},
	)

	// Notifications
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsconsole_notifications_sent_total",
			Help: "Total number of notification deliveries by channel type and status",
		},
		[]string{"channel_type", "status"},
	)

	// Realtime
	ActiveWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsconsole_websocket_connections_active",
			Help: "Number of active /ws/events connections",
		},
	)

	// Cache
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsconsole_cache_requests_total",
			Help: "Total number of analytics cache lookups",
		},
		[]string{"result"}, // hit/miss
	)
)
