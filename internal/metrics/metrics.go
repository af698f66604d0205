// Package metrics exposes the Prometheus collectors of the exam server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exstem_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exstem_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	LiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exstem_live_exam_sessions",
		Help: "Exam sessions currently held in memory",
	})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exstem_ws_connections",
		Help: "Open exam WebSocket connections",
	})

	Violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exstem_focus_violations_total",
			Help: "Focus-loss violations recorded, by signal",
		},
		[]string{"signal"},
	)

	FreezeSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exstem_freeze_seconds_total",
		Help: "Total freeze penalty issued, in seconds",
	})

	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exstem_submissions_total",
			Help: "Result submissions by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	QueueFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exstem_queue_flushed_items_total",
			Help: "Items persisted by the queue workers, by queue and path",
		},
		[]string{"queue", "path"},
	)
)

// Registry holds every collector above.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		RequestCounter,
		RequestDuration,
		LiveSessions,
		WSConnections,
		Violations,
		FreezeSeconds,
		Submissions,
		QueueFlushes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Middleware records count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
