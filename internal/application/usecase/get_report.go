package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// ErrReportNotFound возвращается, если отчета нет и генерация отключена
var ErrReportNotFound = errors.New("report not found")

// GetReportCachedUseCase возвращает отчет за интервал с кешированием
// Порядок поиска: кеш, индекс и хранилище, генерация
type GetReportCachedUseCase struct {
	cache     port.Cache
	index     port.ReportIndexRepository
	storage   port.ReportStorage
	generator *GenerateReportUseCase
	logger    *logger.Logger
}

// NewGetReportCachedUseCase создает новый use case с кешированием
func NewGetReportCachedUseCase(
	cache port.Cache,
	index port.ReportIndexRepository,
	storage port.ReportStorage,
	generator *GenerateReportUseCase,
	logger *logger.Logger,
) *GetReportCachedUseCase {
	return &GetReportCachedUseCase{
		cache:     cache,
		index:     index,
		storage:   storage,
		generator: generator,
		logger:    logger,
	}
}

// Execute выполняет получение отчета
func (uc *GetReportCachedUseCase) Execute(ctx context.Context, window valueobject.TimeRange) (*dto.ReportDTO, error) {
	dayRange := window.DayRange()
	cacheKey := ReportCacheKey(dayRange)

	// Пытаемся получить из кеша
	if uc.cache != nil {
		var cached dto.ReportDTO
		if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
			uc.logger.Debug("Cache hit for report", "day_range", dayRange)
			return &cached, nil
		} else if !errors.Is(err, port.ErrCacheMiss) {
			uc.logger.Warn("Report cache lookup failed", "day_range", dayRange, "error", err.Error())
		}
	}

	// Cache miss - ищем сохраненный артефакт
	report, err := uc.loadStored(ctx, dayRange)
	if err != nil {
		uc.logger.Warn("Failed to load stored report", "day_range", dayRange, "error", err.Error())
	}
	if report != nil {
		if uc.cache != nil {
			go func() {
				if err := uc.cache.Set(context.Background(), cacheKey, report); err != nil {
					uc.logger.Warn("Failed to cache report", "key", cacheKey, "error", err.Error())
				}
			}()
		}
		return report, nil
	}

	if uc.generator == nil {
		return nil, ErrReportNotFound
	}

	uc.logger.Debug("Report not stored, generating", "day_range", dayRange)
	return uc.generator.Execute(ctx, window)
}

func (uc *GetReportCachedUseCase) loadStored(ctx context.Context, dayRange string) (*dto.ReportDTO, error) {
	if uc.index == nil || uc.storage == nil {
		return nil, nil
	}

	entry, err := uc.index.Get(ctx, dayRange)
	if err != nil {
		if errors.Is(err, port.ErrReportNotIndexed) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query report index: %w", err)
	}

	body, err := uc.storage.GetObject(ctx, entry.S3Key)
	if err != nil {
		return nil, fmt.Errorf("failed to download report %s: %w", entry.S3Key, err)
	}

	var report dto.ReportDTO
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", entry.S3Key, err)
	}

	return &report, nil
}
