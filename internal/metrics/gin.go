// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the print-job workflow.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campusprint",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campusprint",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "campusprint",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests currently being handled.",
		},
	)

	jobsSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campusprint",
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Print jobs accepted for fulfillment.",
		},
	)

	jobsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campusprint",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Print jobs marked completed by an administrator.",
		},
	)
)

// GinMiddleware registers the collectors and instruments every request.
func GinMiddleware() gin.HandlerFunc {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestDuration, requestTotal, requestsInFlight, jobsSubmitted, jobsCompleted)
	})

	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := strconv.Itoa(c.Writer.Status())
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": status,
		}

		requestDuration.With(labels).Observe(time.Since(start).Seconds())
		requestTotal.With(labels).Inc()
	}
}

// JobSubmitted counts one accepted print job.
func JobSubmitted() { jobsSubmitted.Inc() }

// JobCompleted counts one fulfilled print job.
func JobCompleted() { jobsCompleted.Inc() }
