package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	pushSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_sends_total",
			Help: "Push deliveries attempted, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	pushSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "push_send_duration_seconds",
			Help:    "Latency of a single push service request",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	eventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "push_events_subscribers",
			Help: "Live dashboard stream subscribers",
		},
	)
)

// ObserveHTTPRequest records one served request. route is the matched route template.
func ObserveHTTPRequest(method, route string, status int, latency time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	httpRequestsTotal.With(labels).Inc()
	httpRequestDuration.With(labels).Observe(latency.Seconds())
}

// ObservePushSend records the outcome (success, expired, error) of one push request.
func ObservePushSend(outcome string, latency time.Duration) {
	pushSendsTotal.WithLabelValues(outcome).Inc()
	pushSendDuration.Observe(latency.Seconds())
}

// SetEventSubscribers reports the current number of live stream subscribers.
func SetEventSubscribers(n int) {
	eventSubscribers.Set(float64(n))
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
