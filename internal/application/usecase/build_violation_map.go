package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dreschagin/limit-monitor/internal/application/port"
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/service"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// Исходы проверки одного измерения
const (
	OutcomeViolations = "violations"
	OutcomeClean      = "clean"
	OutcomeNoData     = "no_data"
	OutcomeMissing    = "missing"
	OutcomeFailed     = "failed"
)

type BuildViolationMapConfig struct {
	Workers  int
	Denylist map[string]struct{}
}

// ViolationMapResult: карта нарушений и списки проверенных/отсутствующих измерений
type ViolationMapResult struct {
	Violations entity.ViolationMap
	Missing    []string
	Checked    []string
	Failed     map[string]string
}

// BuildViolationMapUseCase строит карту нарушений по чек-листу
// Сбой одного измерения не влияет на остальные
type BuildViolationMapUseCase struct {
	limits       repository.LimitRepository
	resolver     *service.SplitWindowResolver
	aggregator   *service.ViolationAggregator
	descriptions *service.DescriptionResolver
	metrics      port.ReportMetrics
	config       BuildViolationMapConfig
	logger       *logger.Logger
}

// NewBuildViolationMapUseCase создает новый use case
func NewBuildViolationMapUseCase(
	limits repository.LimitRepository,
	resolver *service.SplitWindowResolver,
	aggregator *service.ViolationAggregator,
	descriptions *service.DescriptionResolver,
	metrics port.ReportMetrics,
	config BuildViolationMapConfig,
	log *logger.Logger,
) *BuildViolationMapUseCase {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Denylist == nil {
		config.Denylist = make(map[string]struct{})
	}

	return &BuildViolationMapUseCase{
		limits:       limits,
		resolver:     resolver,
		aggregator:   aggregator,
		descriptions: descriptions,
		metrics:      metrics,
		config:       config,
		logger:       log,
	}
}

type measurementOutcome struct {
	key     string
	records map[valueobject.Category]entity.ViolationRecord
	err     error
}

// Execute проверяет каждое измерение чек-листа за окно
// Прерывается только при недоступности хранилища лимитов целиком
func (uc *BuildViolationMapUseCase) Execute(
	ctx context.Context,
	checklist entity.Checklist,
	window valueobject.TimeRange,
) (*ViolationMapResult, error) {
	if err := uc.limits.Ping(ctx); err != nil {
		uc.logger.Error("Limit store is unreachable, aborting report build", err)
		return nil, fmt.Errorf("limit store unavailable: %w", err)
	}

	uc.logger.Info("Building violation map",
		"measurements", len(checklist),
		"workers", uc.config.Workers,
		"start", valueobject.FormatMissionTime(window.Start()),
		"stop", valueobject.FormatMissionTime(window.End()),
	)

	outcomes := make([]measurementOutcome, len(checklist))
	var wg sync.WaitGroup
	sem := make(chan struct{}, uc.config.Workers)

	for i, m := range checklist {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, m entity.Measurement) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = uc.evaluate(ctx, m, window)
		}(i, m)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("violation map build cancelled: %w", err)
	}

	result := &ViolationMapResult{
		Violations: make(entity.ViolationMap),
		Missing:    make([]string, 0),
		Checked:    make([]string, 0, len(checklist)),
		Failed:     make(map[string]string),
	}

	for _, outcome := range outcomes {
		switch {
		case outcome.err == nil:
			result.Checked = append(result.Checked, outcome.key)
			if len(outcome.records) > 0 {
				result.Violations[outcome.key] = outcome.records
				uc.count(OutcomeViolations)
			} else {
				uc.count(OutcomeClean)
			}

		case repository.IsNotFound(outcome.err):
			result.Missing = append(result.Missing, outcome.key)
			uc.count(OutcomeMissing)
			uc.logger.Warn("Measurement not found", "msid", outcome.key, "error", outcome.err.Error())

		case repository.IsNoData(outcome.err):
			result.Checked = append(result.Checked, outcome.key)
			uc.count(OutcomeNoData)
			uc.logger.Debug("No samples in window", "msid", outcome.key)

		default:
			result.Failed[outcome.key] = outcome.err.Error()
			uc.count(OutcomeFailed)
			uc.logger.Error("Measurement evaluation failed", outcome.err, "msid", outcome.key)
		}
	}

	// Исключения по качеству данных применяются к итоговой карте независимо от результата
	for key := range result.Violations {
		if _, denied := uc.config.Denylist[strings.ToLower(key)]; denied {
			delete(result.Violations, key)
		}
	}

	sort.Strings(result.Missing)
	sort.Strings(result.Checked)

	uc.logger.Info("Violation map built",
		"violating", len(result.Violations),
		"checked", len(result.Checked),
		"missing", len(result.Missing),
		"failed", len(result.Failed),
	)

	return result, nil
}

func (uc *BuildViolationMapUseCase) evaluate(
	ctx context.Context,
	m entity.Measurement,
	window valueobject.TimeRange,
) measurementOutcome {
	outcome := measurementOutcome{key: m.Key}

	if err := ctx.Err(); err != nil {
		outcome.err = err
		return outcome
	}

	runs, err := uc.resolver.Resolve(ctx, m, window)
	if err != nil {
		outcome.err = err
		return outcome
	}
	if len(runs) == 0 {
		return outcome
	}

	description := uc.descriptions.Describe(ctx, m.Key)
	if description == service.MissingDescription && m.Description != "" {
		description = m.Description
	}

	outcome.records = uc.aggregator.Aggregate(m, runs, description)
	return outcome
}

func (uc *BuildViolationMapUseCase) count(outcome string) {
	if uc.metrics != nil {
		uc.metrics.IncMeasurement(outcome)
	}
}
