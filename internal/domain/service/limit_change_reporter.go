package service

import (
	"context"
	"fmt"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// LimitChangeReporter находит изменения наборов лимитов за окно (Domain Service)
type LimitChangeReporter struct {
	limits       repository.LimitRepository
	descriptions *DescriptionResolver
}

// NewLimitChangeReporter создает новый LimitChangeReporter
func NewLimitChangeReporter(limits repository.LimitRepository, descriptions *DescriptionResolver) *LimitChangeReporter {
	return &LimitChangeReporter{
		limits:       limits,
		descriptions: descriptions,
	}
}

// FindChanges для каждой пары с версиями внутри [t1, t2] возвращает
// before: последнюю версию, вступившую в силу строго до t1,
// after: последнюю версию, вступившую в силу внутри [t1, t2].
// names используется для перевода псевдонимов в ключи архива при поиске описания
func (r *LimitChangeReporter) FindChanges(
	ctx context.Context,
	window valueobject.TimeRange,
	names entity.Checklist,
) (map[entity.LimitChangeKey]entity.LimitChangeRecord, error) {
	pairs, err := r.limits.ChangedPairs(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed limit sets: %w", err)
	}

	changes := make(map[entity.LimitChangeKey]entity.LimitChangeRecord, len(pairs))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record := entity.LimitChangeRecord{
			MeasurementKey: pair.MeasurementKey,
			SetID:          pair.SetID,
			Description:    r.descriptions.Describe(ctx, names.ResolveKey(pair.MeasurementKey)),
		}

		// Ошибка одной пары не отменяет остальные: она попадает в запись отчета
		if err := r.resolvePair(ctx, window, &record); err != nil {
			record.Before, record.After = nil, nil
			record.Error = err.Error()
		}

		changes[pair] = record
	}

	return changes, nil
}

func (r *LimitChangeReporter) resolvePair(ctx context.Context, window valueobject.TimeRange, record *entity.LimitChangeRecord) error {
	before, err := r.limits.LatestRevision(ctx, record.MeasurementKey, record.SetID,
		repository.EffectiveBefore(window.Start()))
	if err != nil {
		return fmt.Errorf("failed to resolve limits before window for %s/%s: %w",
			record.MeasurementKey, record.SetID, err)
	}

	after, err := r.limits.LatestRevision(ctx, record.MeasurementKey, record.SetID,
		repository.EffectiveWithin(window.Start(), window.End()))
	if err != nil {
		return fmt.Errorf("failed to resolve limits within window for %s/%s: %w",
			record.MeasurementKey, record.SetID, err)
	}

	record.Before = before
	record.After = after
	return nil
}
