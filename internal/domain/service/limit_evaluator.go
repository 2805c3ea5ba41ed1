package service

import (
	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// LimitEvaluator находит участки нарушения лимитов в ряде значений (Domain Service)
// Чистая функция входных данных
type LimitEvaluator struct{}

// NewLimitEvaluator создает новый LimitEvaluator
func NewLimitEvaluator() *LimitEvaluator {
	return &LimitEvaluator{}
}

// Evaluate возвращает участки нарушения: по категориям в порядке отчета, внутри категории по времени
// Одно значение может нарушать несколько границ одновременно
func (e *LimitEvaluator) Evaluate(stream entity.SampleStream, spec entity.LimitSpec, setID string) []entity.RawViolationRun {
	if stream.IsEmpty() {
		return nil
	}

	if spec.Kind == valueobject.ExpectedState {
		return e.evaluateState(stream, spec, setID)
	}

	var runs []entity.RawViolationRun
	for _, category := range valueobject.AllCategories() {
		bound := spec.Bound(category)
		if bound == nil {
			continue
		}

		limit := *bound
		fails := func(s entity.Sample) bool { return s.Value > limit }
		if category.IsLow() {
			fails = func(s entity.Sample) bool { return s.Value < limit }
		}

		for _, span := range contiguousRuns(stream.Samples, fails) {
			samples := stream.Samples[span[0] : span[1]+1]
			values := make([]float64, 0, len(samples))
			for _, s := range samples {
				values = append(values, s.Value)
			}

			runs = append(runs, entity.RawViolationRun{
				Category:   category,
				Start:      samples[0].Time,
				Stop:       samples[len(samples)-1].Time,
				Values:     values,
				LimitValue: entity.NumberReading(limit),
				SetID:      setID,
			})
		}
	}

	return runs
}

func (e *LimitEvaluator) evaluateState(stream entity.SampleStream, spec entity.LimitSpec, setID string) []entity.RawViolationRun {
	expected := spec.ExpectedState
	fails := func(s entity.Sample) bool { return s.State != expected }

	var runs []entity.RawViolationRun
	for _, span := range contiguousRuns(stream.Samples, fails) {
		samples := stream.Samples[span[0] : span[1]+1]
		states := make([]string, 0, len(samples))
		for _, s := range samples {
			states = append(states, s.State)
		}

		runs = append(runs, entity.RawViolationRun{
			Category:   valueobject.State,
			Start:      samples[0].Time,
			Stop:       samples[len(samples)-1].Time,
			States:     states,
			LimitValue: entity.LabelReading(expected),
			SetID:      setID,
		})
	}

	return runs
}

// contiguousRuns группирует соседние по индексу значения, для которых fails истинно,
// и возвращает пары [first, last] индексов
func contiguousRuns(samples []entity.Sample, fails func(entity.Sample) bool) [][2]int {
	var spans [][2]int
	start := -1

	for i, s := range samples {
		if fails(s) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, [2]int{start, i - 1})
			start = -1
		}
	}

	if start >= 0 {
		spans = append(spans, [2]int{start, len(samples) - 1})
	}

	return spans
}
