package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// Статусы построения отчета для метрик
const (
	ReportStatusOK     = "ok"
	ReportStatusFailed = "failed"
)

type GenerateReportConfig struct {
	KeyPrefix     string
	PowerMSID     string
	Subject       string
	CacheTTL      time.Duration
	IndexTTLDays  int
	MetricsPrefix string
}

// ReportSinks: необязательные получатели готового отчета
// Любое поле может быть nil
type ReportSinks struct {
	Storage   port.ReportStorage
	Index     port.ReportIndexRepository
	Cache     port.Cache
	Events    port.EventPublisher
	Notifier  port.NotificationService
	Publisher port.MetricsPublisher
}

// GenerateReportUseCase формирует отчет о нарушениях за интервал и рассылает его
type GenerateReportUseCase struct {
	checklists repository.ChecklistRepository
	buildMap   *BuildViolationMapUseCase
	changes    *service.LimitChangeReporter
	archive    repository.ArchiveRepository
	sinks      ReportSinks
	metrics    port.ReportMetrics
	config     GenerateReportConfig
	logger     *logger.Logger
}

// NewGenerateReportUseCase создает новый use case
func NewGenerateReportUseCase(
	checklists repository.ChecklistRepository,
	buildMap *BuildViolationMapUseCase,
	changes *service.LimitChangeReporter,
	archive repository.ArchiveRepository,
	sinks ReportSinks,
	metrics port.ReportMetrics,
	config GenerateReportConfig,
	log *logger.Logger,
) *GenerateReportUseCase {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "reports"
	}
	if config.Subject == "" {
		config.Subject = port.SubjectReportGenerated
	}
	if config.MetricsPrefix == "" {
		config.MetricsPrefix = "limitmon"
	}

	return &GenerateReportUseCase{
		checklists: checklists,
		buildMap:   buildMap,
		changes:    changes,
		archive:    archive,
		sinks:      sinks,
		metrics:    metrics,
		config:     config,
		logger:     log,
	}
}

// Execute строит отчет за окно
func (uc *GenerateReportUseCase) Execute(ctx context.Context, window valueobject.TimeRange) (*dto.ReportDTO, error) {
	started := time.Now()

	report, err := uc.build(ctx, window)
	if err != nil {
		uc.observe(ReportStatusFailed, started)
		return nil, err
	}

	reportDTO := dto.FromReport(report)
	summary := reportDTO.Summary()

	// 5. Сохраняем артефакт и индекс
	if uc.sinks.Storage != nil {
		url, err := uc.store(ctx, reportDTO)
		if err != nil {
			uc.observe(ReportStatusFailed, started)
			return nil, err
		}
		summary.URL = url
	}

	if uc.sinks.Index != nil {
		if err := uc.sinks.Index.Put(ctx, uc.indexEntry(reportDTO, summary)); err != nil {
			// Отчет уже сохранен, индекс восстановится при следующем построении
			uc.logger.Warn("Failed to index report", "day_range", reportDTO.DayRange, "error", err.Error())
		}
	}

	// 6. Кешируем (асинхронно, не блокируем ответ)
	if uc.sinks.Cache != nil {
		go func() {
			key := ReportCacheKey(reportDTO.DayRange)
			if err := uc.sinks.Cache.SetWithTTL(context.Background(), key, reportDTO, uc.config.CacheTTL); err != nil {
				uc.logger.Warn("Failed to cache report", "key", key, "error", err.Error())
			}
		}()
	}

	// 7. Оповещаем подписчиков
	uc.announce(ctx, reportDTO, summary)
	uc.publishStats(ctx, report)

	uc.observe(ReportStatusOK, started)
	for category, count := range report.ViolationCount() {
		if uc.metrics != nil {
			uc.metrics.AddViolations(category.String(), count)
		}
	}

	uc.logger.Info("Report generated",
		"id", reportDTO.ID,
		"day_range", reportDTO.DayRange,
		"violations", summary.ViolationCount,
		"missing", summary.MissingCount,
		"failed", summary.FailedCount,
		"duration", time.Since(started).String(),
	)

	return reportDTO, nil
}

func (uc *GenerateReportUseCase) build(ctx context.Context, window valueobject.TimeRange) (*entity.Report, error) {
	// 1. Загружаем чек-лист
	checklist, err := uc.checklists.Load(ctx)
	if err != nil {
		uc.logger.Error("Failed to load checklist", err)
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}

	// 2. Строим карту нарушений
	result, err := uc.buildMap.Execute(ctx, checklist, window)
	if err != nil {
		return nil, fmt.Errorf("failed to build violation map: %w", err)
	}

	// 3. Изменения лимитов
	changes, err := uc.changes.FindChanges(ctx, window, checklist)
	if err != nil {
		uc.logger.Error("Failed to find limit changes", err)
		return nil, fmt.Errorf("failed to find limit changes: %w", err)
	}

	report := entity.NewReport(window, result.Violations, result.Missing, result.Checked, result.Failed, changes)

	// 4. Средняя мощность
	if power, ok := uc.averagePower(ctx, window); ok {
		report.SetAveragePower(power)
	}

	return report, nil
}

func (uc *GenerateReportUseCase) averagePower(ctx context.Context, window valueobject.TimeRange) (float64, bool) {
	if uc.config.PowerMSID == "" || uc.archive == nil {
		return 0, false
	}

	stream, err := uc.archive.Fetch(ctx, uc.config.PowerMSID, window, valueobject.Daily)
	if err != nil {
		if !repository.IsNoData(err) {
			uc.logger.Warn("Failed to fetch power telemetry", "msid", uc.config.PowerMSID, "error", err.Error())
		}
		return 0, false
	}

	return stream.Mean()
}

func (uc *GenerateReportUseCase) store(ctx context.Context, report *dto.ReportDTO) (string, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := ReportObjectKey(uc.config.KeyPrefix, report.DayRange)
	url, err := uc.sinks.Storage.PutObject(ctx, key, "application/json", body)
	if err != nil {
		uc.logger.Error("Failed to upload report", err, "key", key)
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return url, nil
}

func (uc *GenerateReportUseCase) indexEntry(report *dto.ReportDTO, summary *dto.ReportSummaryDTO) port.ReportIndexEntry {
	entry := port.ReportIndexEntry{
		ReportID:       report.ID,
		DayRange:       report.DayRange,
		WindowStart:    report.Start,
		WindowEnd:      report.Stop,
		S3Key:          ReportObjectKey(uc.config.KeyPrefix, report.DayRange),
		URL:            summary.URL,
		ViolationCount: summary.ViolationCount,
		MissingCount:   summary.MissingCount,
		FailedCount:    summary.FailedCount,
		GeneratedAt:    report.GeneratedAt,
	}
	if uc.config.IndexTTLDays > 0 {
		entry.ExpiresAt = report.GeneratedAt.Add(time.Duration(uc.config.IndexTTLDays) * 24 * time.Hour)
	}
	return entry
}

func (uc *GenerateReportUseCase) announce(ctx context.Context, report *dto.ReportDTO, summary *dto.ReportSummaryDTO) {
	if uc.sinks.Events != nil {
		failed := make([]string, 0, len(report.Failed))
		for key := range report.Failed {
			failed = append(failed, key)
		}
		sort.Strings(failed)

		event := port.ReportGeneratedEvent{
			ReportID:       report.ID,
			DayRange:       report.DayRange,
			Start:          report.Start,
			Stop:           report.Stop,
			ViolationCount: summary.ViolationCount,
			Missing:        report.Missing,
			Failed:         failed,
			URL:            summary.URL,
			GeneratedAt:    report.GeneratedAt,
		}
		if err := uc.sinks.Events.PublishEvent(ctx, uc.config.Subject, event); err != nil {
			uc.logger.Warn("Failed to publish report event", "subject", uc.config.Subject, "error", err.Error())
		}
	}

	if uc.sinks.Notifier != nil {
		uc.sinks.Notifier.BroadcastReport(summary)
	}
}

func (uc *GenerateReportUseCase) publishStats(ctx context.Context, report *entity.Report) {
	if uc.sinks.Publisher == nil {
		return
	}

	now := report.GeneratedAt()
	dims := map[string]string{"DayRange": report.DayRange()}
	datums := []port.MetricDatum{
		{Name: uc.metricName("violating_measurements"), Value: float64(len(report.Violations())), Unit: "Count", Dimensions: dims, Timestamp: now},
		{Name: uc.metricName("missing_measurements"), Value: float64(len(report.Missing())), Unit: "Count", Dimensions: dims, Timestamp: now},
		{Name: uc.metricName("failed_measurements"), Value: float64(len(report.Failed())), Unit: "Count", Dimensions: dims, Timestamp: now},
		{Name: uc.metricName("limit_changes"), Value: float64(len(report.LimitChanges())), Unit: "Count", Dimensions: dims, Timestamp: now},
	}

	categories := make([]valueobject.Category, 0)
	counts := report.ViolationCount()
	for category := range counts {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, category := range categories {
		datums = append(datums, port.MetricDatum{
			Name:       uc.metricName("violations"),
			Value:      float64(counts[category]),
			Unit:       "Count",
			Dimensions: map[string]string{"DayRange": report.DayRange(), "Category": category.String()},
			Timestamp:  now,
		})
	}

	if err := uc.sinks.Publisher.PublishBatch(ctx, datums); err != nil {
		uc.logger.Warn("Failed to publish report metrics", "error", err.Error())
	}
}

func (uc *GenerateReportUseCase) metricName(name string) string {
	return uc.config.MetricsPrefix + "_" + name
}

func (uc *GenerateReportUseCase) observe(status string, started time.Time) {
	if uc.metrics != nil {
		uc.metrics.ObserveReport(status, time.Since(started))
	}
}

// ReportCacheKey возвращает ключ кеша отчета
func ReportCacheKey(dayRange string) string {
	return "report:" + dayRange
}

// ReportObjectKey возвращает ключ объекта отчета в хранилище
func ReportObjectKey(prefix, dayRange string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return fmt.Sprintf("%s/%s/report.json", prefix, dayRange)
}
