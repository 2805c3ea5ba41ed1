package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors for report builds and the HTTP API.
// It implements port.ReportMetrics.
type Metrics struct {
	ReportsTotal           *prometheus.CounterVec
	ReportBuildDurationSec prometheus.Histogram
	MeasurementsEvaluated  *prometheus.CounterVec
	ViolationsTotal        *prometheus.CounterVec
	RequestsTotal          *prometheus.CounterVec
	RequestDurationSec     *prometheus.HistogramVec
	AuthFailures           prometheus.Counter
	RateLimitDropped       prometheus.Counter

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry, namespace string) *Metrics {
	if namespace == "" {
		namespace = "limitmon"
	}

	m := &Metrics{
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Total number of violation report builds by status.",
		}, []string{"status"}),
		ReportBuildDurationSec: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Violation report build duration in seconds.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		MeasurementsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurements_evaluated_total",
			Help:      "Total number of checklist measurements evaluated by outcome.",
		}, []string{"outcome"}),
		ViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of consolidated violation records by category.",
		}, []string{"category"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected bearer tokens.",
		}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_dropped_total",
			Help:      "Total number of requests dropped by the rate limiter.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.ReportsTotal,
		m.ReportBuildDurationSec,
		m.MeasurementsEvaluated,
		m.ViolationsTotal,
		m.RequestsTotal,
		m.RequestDurationSec,
		m.AuthFailures,
		m.RateLimitDropped,
	)

	return m
}

// ObserveReport records one finished report build.
func (m *Metrics) ObserveReport(status string, duration time.Duration) {
	m.ReportsTotal.WithLabelValues(status).Inc()
	m.ReportBuildDurationSec.Observe(duration.Seconds())
}

// IncMeasurement counts one evaluated checklist measurement.
func (m *Metrics) IncMeasurement(outcome string) {
	m.MeasurementsEvaluated.WithLabelValues(outcome).Inc()
}

// AddViolations adds consolidated violation records for a category.
func (m *Metrics) AddViolations(category string, count int) {
	if count <= 0 {
		return
	}
	m.ViolationsTotal.WithLabelValues(category).Add(float64(count))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// normalizeRoute keeps label cardinality bounded.
func normalizeRoute(path string) string {
	switch {
	case path == "/ws", path == "/healthz", path == "/readyz", path == "/metrics":
		return path
	case path == "/api/v1/reports" || path == "/api/v1/reports/index":
		return path
	case path == "/api/v1/limit-changes":
		return path
	case strings.HasPrefix(path, "/api/v1/runner/"):
		return "/api/v1/runner/*"
	case strings.HasPrefix(path, "/api/"):
		return "/api/*"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
