package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// OrderTransitions counts order status requests by outcome
	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by target status and result",
		},
		[]string{"to", "result"},
	)

	// CascadeItems counts item rows moved as part of an order transition
	CascadeItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_cascade_items_total",
			Help: "Items moved by cascades, by item status",
		},
		[]string{"status"},
	)

	// Conflicts counts optimistic-concurrency collisions seen by the order service
	Conflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_conflicts_total",
			Help: "Version conflicts by operation",
		},
		[]string{"operation"},
	)

	// OverdueOrders is the number of overdue orders per restaurant at the last scan
	OverdueOrders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orders_overdue",
			Help: "Orders past their preparation budget",
		},
		[]string{"restaurant"},
	)

	// EventsPublished counts order events handed to the hub
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Order events published, by type and source",
		},
		[]string{"type", "source"},
	)

	// Subscribers is the number of live order-stream subscribers
	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "order_stream_subscribers",
			Help: "Connected order stream subscribers",
		},
	)

	// SubscribersDropped counts subscribers disconnected for falling behind
	SubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_stream_subscribers_dropped_total",
			Help: "Subscribers dropped because their queue was full",
		},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"circuit_name"},
	)
)

// PrometheusMiddleware records request count and latency per route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(duration)
	}
}
