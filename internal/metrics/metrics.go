package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resize results
const (
	ResizeApplied = "applied"
	ResizeSkipped = "skipped"
	ResizeFailed  = "failed"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catnip_pty_sessions_active",
		Help: "Number of registered PTY sessions",
	})
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catnip_pty_sessions_created_total",
		Help: "Total number of PTY sessions created",
	})
	OutputBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catnip_pty_output_bytes_total",
		Help: "Bytes read from PTY masters",
	})
	OutputChunks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catnip_pty_output_chunks_total",
		Help: "Coalesced output chunks delivered to consumers",
	})
	InputBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catnip_pty_input_bytes_total",
		Help: "Bytes written into PTYs",
	})
	Resizes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catnip_pty_resizes_total",
		Help: "Resize requests by result",
	}, []string{"result"})

	StreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catnip_pty_stream_connections",
		Help: "Open output stream websocket connections",
	})
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catnip_pty_event_subscribers",
		Help: "Connected lifecycle event (SSE) clients",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catnip_pty_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catnip_pty_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per matched route. Long
// lived websocket and SSE routes are counted once when they end.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}
