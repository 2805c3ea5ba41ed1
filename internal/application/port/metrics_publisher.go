package port

import (
	"context"
	"time"
)

// MetricDatum is a single numeric observation destined for an external metrics platform.
type MetricDatum struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time
}

// MetricsPublisher defines the interface for publishing metrics to external observability platforms.
// This port allows the application layer to publish metrics without coupling to specific implementations.
type MetricsPublisher interface {
	// PublishBatch publishes multiple metrics in a single operation.
	// Implementations should handle batching constraints (e.g., CloudWatch's 1000 metrics/request limit).
	PublishBatch(ctx context.Context, metrics []MetricDatum) error

	// PublishSingle publishes a single metric immediately.
	PublishSingle(ctx context.Context, metric MetricDatum) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}

// ReportMetrics records in-process counters for report builds (scraped by Prometheus).
type ReportMetrics interface {
	ObserveReport(status string, duration time.Duration)
	IncMeasurement(outcome string)
	AddViolations(category string, count int)
}
