// Package metrics holds the prometheus collectors exported at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agora_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Notification fan-out
	FanOutTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_fanout_ticks_total",
			Help: "Fan-out ticks by outcome (run, skipped)",
		},
		[]string{"outcome"},
	)

	FanOutDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_fanout_deliveries_total",
			Help: "Per-user merged notification deliveries by result (delivered, skipped, failed)",
		},
		[]string{"result"},
	)

	FanOutTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agora_fanout_tick_duration_seconds",
			Help:    "Duration of one fan-out tick over all users",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
	)

	// Streams
	OpenStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_notification_streams_open",
			Help: "Currently open notification streams",
		},
	)

	StreamsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agora_notification_streams_dropped_total",
			Help: "Streams closed because their buffer was full",
		},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_ws_clients",
			Help: "Currently connected websocket clients",
		},
	)

	// Object storage
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agora_storage_operations_total",
			Help: "Object storage operations by kind and result",
		},
		[]string{"operation", "result"},
	)

	StorageBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agora_storage_breaker_state",
			Help: "Storage circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
	)
)

func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordStorageOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	StorageOperations.WithLabelValues(operation, result).Inc()
}
