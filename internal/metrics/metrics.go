package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Live Update Metrics
var (
	// LiveUpdateActiveTopics tracks topics that currently own a recurring update timer
	LiveUpdateActiveTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_updates_active_topics",
			Help: "Number of patient topics with an active live update timer",
		},
	)

	// LiveUpdateSubscriptions tracks (connection, topic) subscription pairs
	LiveUpdateSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_updates_subscriptions",
			Help: "Number of active (connection, patient) live update subscriptions",
		},
	)

	// LiveUpdateTicksTotal tracks timer ticks by outcome
	LiveUpdateTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_updates_ticks_total",
			Help: "Total live update ticks by result (sent/empty/error/discarded)",
		},
		[]string{"result"},
	)

	// LiveUpdateTickDuration tracks time spent inside a single tick
	LiveUpdateTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "live_updates_tick_duration_seconds",
			Help:    "Live update tick duration in seconds (metric lookup + fan-out)",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks total WebSocket connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error/rejected)",
		},
		[]string{"result"},
	)

	// WebSocketMessagesReceived tracks inbound client frames by event name
	WebSocketMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total client messages received by event (start_live_updates/stop_live_updates/invalid)",
		},
		[]string{"event"},
	)

	// WebSocketMessageSendDuration tracks WebSocket message send duration
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketSlowClientsEvicted tracks clients disconnected because their buffer was full
	WebSocketSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_evicted_total",
			Help: "Total number of slow WebSocket clients evicted due to buffer full",
		},
	)

	// WebSocketPingFailures tracks WebSocket ping failures
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total WebSocket ping failures (client not responding)",
		},
	)
)

// Analysis Metrics
var (
	// AnalysisRequestsTotal tracks calls to the analysis tool service
	AnalysisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_requests_total",
			Help: "Total analysis tool calls by tool and status (success/error/circuit_open)",
		},
		[]string{"tool", "status"},
	)

	// AnalysisRequestDuration tracks analysis tool call latency
	AnalysisRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_request_duration_seconds",
			Help:    "Analysis tool call duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"tool"},
	)
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// Circuit Breaker Metrics
var (
	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)
