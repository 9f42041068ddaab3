package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "learning_sessions_started_total",
			Help: "Total number of learning sessions started",
		},
	)

	// reason: report / auto_close / lesson_complete
	SessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "learning_sessions_ended_total",
			Help: "Total number of learning sessions closed",
		},
		[]string{"reason"},
	)

	SessionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learning_sessions_open",
			Help: "Learning sessions without an end time",
		},
	)

	SessionsOverdue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "learning_sessions_overdue",
			Help: "Open learning sessions older than 24 hours",
		},
	)
)

const (
	EndReasonReport         = "report"
	EndReasonAutoClose      = "auto_close"
	EndReasonLessonComplete = "lesson_complete"
)

var registerOnce sync.Once

// Init 注册指标，重复调用无副作用
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SessionsStarted)
		prometheus.MustRegister(SessionsEnded)
		prometheus.MustRegister(SessionsOpen)
		prometheus.MustRegister(SessionsOverdue)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
