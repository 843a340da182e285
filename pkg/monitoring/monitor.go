package monitoring

import (
	"strconv"
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
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 观看进度上报，result: accepted | rejected | failed
	ProgressFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_flushes_total",
			Help: "Progress flushes received, by result",
		},
		[]string{"result"},
	)

	EvaluationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_attempts_total",
			Help: "Graded evaluation attempts, by pass/fail",
		},
		[]string{"passed"},
	)

	ModuleCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_completions_total",
			Help: "Modules transitioned to completed, by source",
		},
		[]string{"source"},
	)

	AttemptNumberConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attempt_number_conflicts_total",
			Help: "Attempt inserts that collided on the attempt number and were retried",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ProgressFlushes)
	prometheus.MustRegister(EvaluationAttempts)
	prometheus.MustRegister(ModuleCompletions)
	prometheus.MustRegister(AttemptNumberConflicts)
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
