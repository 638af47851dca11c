package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	pageCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_lookups_total",
			Help: "Page cache lookups by result",
		},
		[]string{"result"},
	)

	blogOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blog_operations_total",
			Help: "Total number of write operations (posts, comments, follows)",
		},
		[]string{"operation", "status"},
	)

	blogOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blog_operation_duration_seconds",
			Help:    "Duration of write operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
			serviceName,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			serviceName,
		).Observe(duration)
	}
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	pageCacheLookups.WithLabelValues(result).Inc()
}

func RecordOperation(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	blogOperationsTotal.WithLabelValues(operation, status).Inc()
	blogOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
