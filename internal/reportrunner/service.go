package reportrunner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// Service decides whether the last completed week still needs a report.
type Service struct {
	index     port.ReportIndexRepository
	generator ReportGenerator
	weekStart time.Weekday
	now       func() time.Time
}

// NewService creates the weekly report service. A nil index makes every
// cycle regenerate the report.
func NewService(index port.ReportIndexRepository, generator ReportGenerator, weekStart time.Weekday) *Service {
	return &Service{
		index:     index,
		generator: generator,
		weekStart: weekStart,
		now:       time.Now,
	}
}

// EnsureLatest generates the report for the last completed week unless it
// is already indexed.
func (s *Service) EnsureLatest(ctx context.Context) (*CycleSummary, error) {
	startedAt := s.now().UTC()
	window := valueobject.LastCompletedWeek(startedAt, s.weekStart)

	summary := &CycleSummary{
		CheckedAt: startedAt,
		DayRange:  window.DayRange(),
		Start:     window.Start(),
		Stop:      window.End(),
	}

	if s.index != nil {
		entry, err := s.index.Get(ctx, summary.DayRange)
		switch {
		case err == nil:
			summary.ReportID = entry.ReportID
			summary.ViolationCount = entry.ViolationCount
			summary.MissingCount = entry.MissingCount
			summary.FailedCount = entry.FailedCount
			summary.Duration = s.now().Sub(startedAt)
			return summary, nil
		case errors.Is(err, port.ErrReportNotIndexed):
		default:
			return nil, fmt.Errorf("failed to check report index for %s: %w", summary.DayRange, err)
		}
	}

	report, err := s.generator.Execute(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report for %s: %w", summary.DayRange, err)
	}

	brief := report.Summary()
	summary.Generated = true
	summary.ReportID = brief.ID
	summary.ViolationCount = brief.ViolationCount
	summary.MissingCount = brief.MissingCount
	summary.FailedCount = brief.FailedCount
	summary.Duration = s.now().Sub(startedAt)

	return summary, nil
}
