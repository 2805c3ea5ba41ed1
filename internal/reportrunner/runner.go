package reportrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/limit-monitor/pkg/logger"
)

type Runner struct {
	service   *Service
	log       *logger.Logger
	interval  time.Duration
	timeout   time.Duration
	weekStart time.Weekday

	runMu sync.Mutex

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	lastError   string
	runs        int
	generated   int
	lastSummary *CycleSummary
}

func NewRunner(service *Service, log *logger.Logger, interval, timeout time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Runner{
		service:   service,
		log:       log,
		interval:  interval,
		timeout:   timeout,
		weekStart: service.weekStart,
		startedAt: time.Now(),
	}
}

// Start runs one cycle immediately, then one per interval until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	_, _ = r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			// RunOnce already stores error state and logs context.
			_, _ = r.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce serializes cycles; a manual run waits for a scheduled one.
func (r *Runner) RunOnce(ctx context.Context) (*CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	cycleCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	summary, err := r.service.EnsureLatest(cycleCtx)
	runAt := time.Now()

	if err != nil {
		wrappedErr := fmt.Errorf("report cycle failed: %w", err)
		r.updateFailure(runAt, wrappedErr)
		r.log.Error("Report cycle failed", wrappedErr)
		return nil, wrappedErr
	}

	r.updateSuccess(runAt, summary)

	if !summary.Generated {
		r.log.Debug("Report already indexed", "day_range", summary.DayRange, "report_id", summary.ReportID)
		return summary, nil
	}

	r.log.Info(
		"Report cycle completed",
		"day_range", summary.DayRange,
		"report_id", summary.ReportID,
		"violations", summary.ViolationCount,
		"missing", summary.MissingCount,
		"failed", summary.FailedCount,
		"duration", summary.Duration.String(),
	)

	return summary, nil
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		WeekStart: r.weekStart.String(),
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
		Runs:      r.runs,
		Generated: r.generated,
	}

	if r.lastSummary != nil {
		copiedSummary := *r.lastSummary
		snapshot.LastSummary = &copiedSummary
	}

	return snapshot
}

func (r *Runner) updateFailure(runAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = err.Error()
	r.runs++
}

func (r *Runner) updateSuccess(runAt time.Time, summary *CycleSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRunAt = runAt
	r.lastError = ""
	r.runs++
	if summary.Generated {
		r.generated++
	}
	r.lastSummary = summary
}
