package metrics

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payments_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})

	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Payments accepted and persisted in PENDING status",
	})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_transitions_total",
		Help: "Persisted lifecycle transitions by target status",
	}, []string{"status"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_events_published_total",
		Help: "Lifecycle events handed to the event channel, by outcome",
	}, []string{"event_type", "outcome"})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_notifications_total",
		Help: "Consumed lifecycle events by dispatch outcome",
	}, []string{"event_type", "outcome"})

	PoolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "payments_lifecycle_queue_depth",
		Help: "Progressions waiting for a free lifecycle worker",
	})
)

// EchoMiddleware records request counts and latency per route
func EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			timer := prometheus.NewTimer(httpLatency.WithLabelValues(method, c.Path()))
			err := next(c)
			timer.ObserveDuration()

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			httpReqTotal.WithLabelValues(method, c.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}
