package reportrunner

import (
	"context"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// ReportGenerator builds and persists the report for a window.
type ReportGenerator interface {
	Execute(ctx context.Context, window valueobject.TimeRange) (*dto.ReportDTO, error)
}

type CycleSummary struct {
	CheckedAt      time.Time     `json:"checked_at"`
	DayRange       string        `json:"day_range"`
	Start          time.Time     `json:"start"`
	Stop           time.Time     `json:"stop"`
	Generated      bool          `json:"generated"`
	ReportID       string        `json:"report_id,omitempty"`
	ViolationCount int           `json:"violation_count"`
	MissingCount   int           `json:"missing_count"`
	FailedCount    int           `json:"failed_count"`
	Duration       time.Duration `json:"duration"`
}

type Snapshot struct {
	StartedAt   time.Time     `json:"started_at"`
	Interval    time.Duration `json:"interval"`
	WeekStart   string        `json:"week_start"`
	LastRunAt   time.Time     `json:"last_run_at"`
	LastError   string        `json:"last_error,omitempty"`
	Runs        int           `json:"runs"`
	Generated   int           `json:"generated"`
	LastSummary *CycleSummary `json:"last_summary,omitempty"`
}
