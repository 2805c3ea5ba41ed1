package port

import (
	"context"
	"errors"
	"time"
)

// ErrReportNotIndexed возвращается, если отчета за интервал нет в индексе.
var ErrReportNotIndexed = errors.New("report not indexed")

// ReportIndexEntry представляет метаданные сохраненного отчета.
type ReportIndexEntry struct {
	ReportID       string
	DayRange       string
	WindowStart    time.Time
	WindowEnd      time.Time
	S3Key          string
	URL            string
	ViolationCount int
	MissingCount   int
	FailedCount    int
	GeneratedAt    time.Time
	ExpiresAt      time.Time
}

// ReportIndexQuery определяет параметры выборки списка отчетов.
type ReportIndexQuery struct {
	Limit  int
	Cursor string
	From   time.Time
	To     time.Time
}

// ReportIndexPage содержит результат выборки и курсор следующей страницы.
type ReportIndexPage struct {
	Items      []ReportIndexEntry
	NextCursor string
}

// ReportIndexRepository определяет интерфейс индекса отчетов.
type ReportIndexRepository interface {
	Put(ctx context.Context, entry ReportIndexEntry) error
	Get(ctx context.Context, dayRange string) (ReportIndexEntry, error)
	List(ctx context.Context, query ReportIndexQuery) (ReportIndexPage, error)
}
