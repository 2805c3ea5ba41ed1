package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dreschagin/limit-monitor/internal/application/dto"
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// BuildChecklistUseCase строит чек-лист по списку измерений и каталогу архива
type BuildChecklistUseCase struct {
	archive    repository.ArchiveRepository
	checklists repository.ChecklistRepository
	logger     *logger.Logger
}

// NewBuildChecklistUseCase создает новый use case
func NewBuildChecklistUseCase(
	archive repository.ArchiveRepository,
	checklists repository.ChecklistRepository,
	log *logger.Logger,
) *BuildChecklistUseCase {
	return &BuildChecklistUseCase{
		archive:    archive,
		checklists: checklists,
		logger:     log,
	}
}

// Execute проверяет каждое измерение в каталоге и сохраняет чек-лист
// Тип лимита определяется по наличию кодов состояний
func (uc *BuildChecklistUseCase) Execute(ctx context.Context, rows []dto.ChecklistRowDTO) (*dto.ChecklistBuildDTO, error) {
	result := &dto.ChecklistBuildDTO{
		Missing:      make([]string, 0),
		NotInArchive: make([]string, 0),
	}

	checklist := make(entity.Checklist, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Key))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			uc.logger.Warn("Duplicate measurement in checklist source", "msid", key)
			continue
		}
		seen[key] = struct{}{}

		entry, err := uc.archive.Describe(ctx, key)
		if err != nil {
			if repository.IsNotFound(err) {
				result.NotInArchive = append(result.NotInArchive, key)
			} else {
				result.Missing = append(result.Missing, key)
				uc.logger.Warn("Archive lookup failed", "msid", key, "error", err.Error())
			}
			continue
		}

		kind := valueobject.NumericLimit
		if entry.IsStateful() {
			kind = valueobject.ExpectedState
		}

		m, err := entity.NewMeasurement(key, strings.ToLower(strings.TrimSpace(row.Alias)),
			strings.TrimSpace(row.Owner), strings.TrimSpace(row.Description), kind)
		if err != nil {
			return nil, fmt.Errorf("invalid checklist row %q: %w", key, err)
		}

		checklist = append(checklist, m)
		if kind == valueobject.ExpectedState {
			result.State++
		} else {
			result.Limit++
		}
	}

	sort.Slice(checklist, func(i, j int) bool { return checklist[i].Key < checklist[j].Key })
	result.Total = len(checklist)

	if err := uc.checklists.Save(ctx, checklist); err != nil {
		uc.logger.Error("Failed to save checklist", err)
		return nil, fmt.Errorf("failed to save checklist: %w", err)
	}

	uc.logger.Info("Checklist built",
		"total", result.Total,
		"limit", result.Limit,
		"expected_state", result.State,
		"missing", len(result.Missing),
		"not_in_archive", len(result.NotInArchive),
	)

	return result, nil
}
