package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

type ListReportsCommand struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

type ReportListItem struct {
	ID             string    `json:"id"`
	DayRange       string    `json:"day_range"`
	Start          time.Time `json:"start"`
	Stop           time.Time `json:"stop"`
	S3Key          string    `json:"s3_key"`
	URL            string    `json:"url,omitempty"`
	ViolationCount int       `json:"violation_count"`
	MissingCount   int       `json:"missing_count"`
	FailedCount    int       `json:"failed_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type ListReportsResult struct {
	Items      []ReportListItem `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type ListReportsConfig struct {
	DefaultLimit int
	MaxLimit     int
}

type ListReportsUseCase struct {
	index  port.ReportIndexRepository
	config ListReportsConfig
	logger *logger.Logger
}

func NewListReportsUseCase(
	index port.ReportIndexRepository,
	config ListReportsConfig,
	log *logger.Logger,
) *ListReportsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 24
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListReportsUseCase{
		index:  index,
		config: config,
		logger: log,
	}
}

func (uc *ListReportsUseCase) Execute(ctx context.Context, cmd ListReportsCommand) (*ListReportsResult, error) {
	if uc.index == nil {
		return nil, fmt.Errorf("report index is not configured")
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	if !cmd.From.IsZero() && !cmd.To.IsZero() && cmd.From.After(cmd.To) {
		return nil, fmt.Errorf("from must be less than or equal to to")
	}

	page, err := uc.index.List(ctx, port.ReportIndexQuery{
		Limit:  limit,
		Cursor: strings.TrimSpace(cmd.Cursor),
		From:   cmd.From.UTC(),
		To:     cmd.To.UTC(),
	})
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error("Failed to list report index", err)
		}
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	items := make([]ReportListItem, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, ReportListItem{
			ID:             entry.ReportID,
			DayRange:       entry.DayRange,
			Start:          entry.WindowStart.UTC(),
			Stop:           entry.WindowEnd.UTC(),
			S3Key:          entry.S3Key,
			URL:            entry.URL,
			ViolationCount: entry.ViolationCount,
			MissingCount:   entry.MissingCount,
			FailedCount:    entry.FailedCount,
			GeneratedAt:    entry.GeneratedAt.UTC(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Start.After(items[j].Start)
	})

	return &ListReportsResult{
		Items:      items,
		NextCursor: page.NextCursor,
	}, nil
}
