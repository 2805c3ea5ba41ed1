package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReportMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry(), "")

	m.ObserveReport("ok", 2*time.Second)
	m.ObserveReport("ok", time.Second)
	m.ObserveReport("failed", time.Second)
	m.IncMeasurement("violations")
	m.IncMeasurement("missing")
	m.IncMeasurement("missing")
	m.AddViolations("caution_high", 3)
	m.AddViolations("warning_low", 0)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"reports ok", testutil.ToFloat64(m.ReportsTotal.WithLabelValues("ok")), 2},
		{"reports failed", testutil.ToFloat64(m.ReportsTotal.WithLabelValues("failed")), 1},
		{"missing", testutil.ToFloat64(m.MeasurementsEvaluated.WithLabelValues("missing")), 2},
		{"caution_high", testutil.ToFloat64(m.ViolationsTotal.WithLabelValues("caution_high")), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.ViolationsTotal); n != 1 {
		t.Errorf("violation series = %d, want 1 (zero counts are skipped)", n)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry(), "limitmon")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/runner/summary", nil))

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/api/v1/runner/*", "GET", "418")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "limitmon_http_requests_total") {
		t.Error("exposition is missing limitmon_http_requests_total")
	}
}

func TestNormalizeRoute(t *testing.T) {
	tests := map[string]string{
		"/ws":                   "/ws",
		"/api/v1/reports":       "/api/v1/reports",
		"/api/v1/reports/index": "/api/v1/reports/index",
		"/api/v1/limit-changes": "/api/v1/limit-changes",
		"/api/v1/runner/run":    "/api/v1/runner/*",
		"/api/v2/anything":      "/api/*",
		"/favicon.ico":          "other",
	}
	for path, want := range tests {
		if got := normalizeRoute(path); got != want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", path, got, want)
		}
	}
}
