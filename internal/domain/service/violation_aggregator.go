package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// Reducer выбирает представительное значение из двух
type Reducer func(acc, next entity.Reading) entity.Reading

// CategoryRule описывает свертку одной категории
type CategoryRule struct {
	Pick     Reducer
	Relation string
}

// MinReading оставляет меньшее значение
func MinReading(acc, next entity.Reading) entity.Reading {
	if next.Number < acc.Number {
		return next
	}
	return acc
}

// MaxReading оставляет большее значение
func MaxReading(acc, next entity.Reading) entity.Reading {
	if next.Number > acc.Number {
		return next
	}
	return acc
}

// FirstReading оставляет первое наблюденное значение
func FirstReading(acc, _ entity.Reading) entity.Reading {
	return acc
}

// DefaultCategoryRules: таблица категория -> свертка
func DefaultCategoryRules() map[valueobject.Category]CategoryRule {
	return map[valueobject.Category]CategoryRule{
		valueobject.WarningLow:  {Pick: MinReading, Relation: ">"},
		valueobject.CautionLow:  {Pick: MinReading, Relation: ">"},
		valueobject.CautionHigh: {Pick: MaxReading, Relation: "<"},
		valueobject.WarningHigh: {Pick: MaxReading, Relation: "<"},
		valueobject.State:       {Pick: FirstReading, Relation: "="},
	}
}

// ViolationAggregator сводит участки нарушений в одну запись на категорию (Domain Service)
type ViolationAggregator struct {
	rules map[valueobject.Category]CategoryRule
}

// NewViolationAggregator создает агрегатор с таблицей по умолчанию
func NewViolationAggregator() *ViolationAggregator {
	return NewViolationAggregatorWithRules(DefaultCategoryRules())
}

// NewViolationAggregatorWithRules создает агрегатор с заданной таблицей категорий
func NewViolationAggregatorWithRules(rules map[valueobject.Category]CategoryRule) *ViolationAggregator {
	return &ViolationAggregator{rules: rules}
}

// Aggregate сворачивает участки по категориям. limit_value и set_id берутся из первого участка группы.
// Пустой результат означает отсутствие нарушений
func (a *ViolationAggregator) Aggregate(
	m entity.Measurement,
	runs []entity.RawViolationRun,
	description string,
) map[valueobject.Category]entity.ViolationRecord {
	if description == "" {
		description = m.Description
	}

	groups := make(map[valueobject.Category][]entity.RawViolationRun)
	for _, run := range runs {
		if _, ok := a.rules[run.Category]; !ok {
			continue
		}
		groups[run.Category] = append(groups[run.Category], run)
	}

	result := make(map[valueobject.Category]entity.ViolationRecord, len(groups))
	for category, group := range groups {
		result[category] = a.fold(a.rules[category], category, group, description)
	}

	return result
}

func (a *ViolationAggregator) fold(
	rule CategoryRule,
	category valueobject.Category,
	group []entity.RawViolationRun,
	description string,
) entity.ViolationRecord {
	ordered := make([]entity.RawViolationRun, len(group))
	copy(ordered, group)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	first := ordered[0]
	record := entity.ViolationRecord{
		Category:    category,
		Start:       first.Start,
		Stop:        first.Stop,
		Extrema:     runExtreme(rule.Pick, first),
		LimitValue:  first.LimitValue,
		SetID:       first.SetID,
		Description: description,
		Expectation: fmt.Sprintf("%s %s", rule.Relation, first.LimitValue.String()),
		Excursions:  make([]valueobject.TimeRange, 0, len(ordered)),
	}

	for i, run := range ordered {
		if i > 0 {
			record.Extrema = rule.Pick(record.Extrema, runExtreme(rule.Pick, run))
		}
		if run.Start.Before(record.Start) {
			record.Start = run.Start
		}
		if run.Stop.After(record.Stop) {
			record.Stop = run.Stop
		}
		record.NumExcursions++
		record.TotalDurationHours += run.DurationHours()
		record.Excursions = append(record.Excursions, run.Span())
	}

	record.Observed = observed(record.Extrema, ordered)
	return record
}

func runExtreme(pick Reducer, run entity.RawViolationRun) entity.Reading {
	readings := run.Readings()
	if len(readings) == 0 {
		return entity.Reading{}
	}

	extreme := readings[0]
	for _, r := range readings[1:] {
		extreme = pick(extreme, r)
	}
	return extreme
}

// observed для состояний перечисляет все встреченные метки
func observed(extrema entity.Reading, runs []entity.RawViolationRun) string {
	if !extrema.IsLabel {
		return extrema.String()
	}

	seen := make(map[string]struct{})
	labels := make([]string, 0)
	for _, run := range runs {
		for _, state := range run.States {
			if _, ok := seen[state]; ok {
				continue
			}
			seen[state] = struct{}{}
			labels = append(labels, state)
		}
	}
	sort.Strings(labels)

	return strings.Join(labels, ", ")
}
