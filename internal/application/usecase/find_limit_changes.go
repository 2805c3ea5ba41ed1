package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// FindLimitChangesUseCase возвращает изменения наборов лимитов за интервал
type FindLimitChangesUseCase struct {
	reporter   *service.LimitChangeReporter
	checklists repository.ChecklistRepository
	cache      port.Cache
	cacheTTL   time.Duration
	logger     *logger.Logger
}

// NewFindLimitChangesUseCase создает новый use case
func NewFindLimitChangesUseCase(
	reporter *service.LimitChangeReporter,
	checklists repository.ChecklistRepository,
	cache port.Cache,
	cacheTTL time.Duration,
	logger *logger.Logger,
) *FindLimitChangesUseCase {
	return &FindLimitChangesUseCase{
		reporter:   reporter,
		checklists: checklists,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Execute выполняет поиск изменений лимитов
func (uc *FindLimitChangesUseCase) Execute(ctx context.Context, window valueobject.TimeRange) ([]dto.LimitChangeDTO, error) {
	cacheKey := "limit-changes:" + window.DayRange()

	if uc.cache != nil {
		var cached []dto.LimitChangeDTO
		if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
			uc.logger.Debug("Cache hit for limit changes", "key", cacheKey, "count", len(cached))
			return cached, nil
		}
	}

	// Чек-лист нужен только для перевода псевдонимов, без него описания берутся по имени
	checklist, err := uc.checklists.Load(ctx)
	if err != nil {
		uc.logger.Warn("Checklist unavailable, alias names stay unresolved", "error", err.Error())
		checklist = nil
	}

	changes, err := uc.reporter.FindChanges(ctx, window, checklist)
	if err != nil {
		uc.logger.Error("Failed to find limit changes", err)
		return nil, fmt.Errorf("failed to find limit changes: %w", err)
	}

	dtos := dto.ToLimitChangeDTOs(changes)

	if uc.cache != nil {
		go func() {
			if err := uc.cache.SetWithTTL(context.Background(), cacheKey, dtos, uc.cacheTTL); err != nil {
				uc.logger.Warn("Failed to cache limit changes", "key", cacheKey, "error", err.Error())
			}
		}()
	}

	return dtos, nil
}
