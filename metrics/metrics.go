// Package metrics exposes Prometheus collectors for the bookstore.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bookstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "model",
			Name:      "actions_total",
			Help:      "Model actions by outcome code.",
		},
		[]string{"action", "code"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "ui",
			Name:      "form_submissions_total",
			Help:      "Form submissions by form action and result.",
		},
		[]string{"action", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		actions,
		submissions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by the matched
// echo route, so path parameters do not explode label cardinality.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().URL.Path == "/metrics" {
			return next(c)
		}
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := next(c)

		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
			status = he.Code
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(c.Request().Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveAction counts a model action; code is "OK" or the first error code.
func ObserveAction(action, code string) {
	if code == "" {
		code = "OK"
	}
	actions.WithLabelValues(action, code).Inc()
}

// ObserveSubmission counts a UI form submission.
func ObserveSubmission(action string, failed bool) {
	if action == "" {
		action = "none"
	}
	result := "ok"
	if failed {
		result = "failed"
	}
	submissions.WithLabelValues(action, result).Inc()
}
