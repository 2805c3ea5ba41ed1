package service

import (
	"reflect"
	"testing"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

func twoExcursionRuns(t *testing.T) []entity.RawViolationRun {
	t.Helper()
	values := []float64{10, 10, 25, 27, 10, 10, 10, 22, 30, 10}
	points := make([][2]float64, 0, len(values))
	for i, v := range values {
		points = append(points, [2]float64{float64(i), v})
	}
	spec := entity.LimitSpec{Kind: valueobject.NumericLimit, CautionHigh: entity.Float(20)}
	return NewLimitEvaluator().Evaluate(numericStream("1pdeaat", points...), spec, "default")
}

func TestViolationAggregator_TwoExcursions(t *testing.T) {
	runs := twoExcursionRuns(t)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	m := entity.Measurement{Key: "1pdeaat", Kind: valueobject.NumericLimit}
	records := NewViolationAggregator().Aggregate(m, runs, "PSMC DEA A TEMP")

	record, ok := records[valueobject.CautionHigh]
	if !ok || len(records) != 1 {
		t.Fatalf("expected only caution_high record, got %v", records)
	}
	if record.NumExcursions != 2 {
		t.Errorf("NumExcursions = %d, want 2", record.NumExcursions)
	}
	if record.Extrema.Number != 30 {
		t.Errorf("Extrema = %v, want 30", record.Extrema)
	}
	if record.TotalDurationHours != 2 {
		t.Errorf("TotalDurationHours = %v, want 2", record.TotalDurationHours)
	}
	if !record.Start.Equal(at(2)) || !record.Stop.Equal(at(8)) {
		t.Errorf("envelope = [%v, %v], want [%v, %v]", record.Start, record.Stop, at(2), at(8))
	}
	if record.TotalDurationHours > record.EnvelopeHours() {
		t.Errorf("total duration %v exceeds envelope %v", record.TotalDurationHours, record.EnvelopeHours())
	}
	if record.Expectation != "< 20" || record.Observed != "30" {
		t.Errorf("expectation/observed = %q/%q, want \"< 20\"/\"30\"", record.Expectation, record.Observed)
	}
	if record.Description != "PSMC DEA A TEMP" || len(record.Excursions) != 2 {
		t.Errorf("description/excursions = %q/%d", record.Description, len(record.Excursions))
	}
}

func TestViolationAggregator_Idempotent(t *testing.T) {
	runs := twoExcursionRuns(t)
	m := entity.Measurement{Key: "1pdeaat", Kind: valueobject.NumericLimit}
	aggregator := NewViolationAggregator()

	first := aggregator.Aggregate(m, runs, "desc")
	second := aggregator.Aggregate(m, runs, "desc")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not idempotent:\n%v\n%v", first, second)
	}
}

func TestViolationAggregator_LowKeepsMinimumAndFirstLimit(t *testing.T) {
	runs := []entity.RawViolationRun{
		{
			Category:   valueobject.WarningLow,
			Start:      at(5),
			Stop:       at(6),
			Values:     []float64{-12, -15},
			LimitValue: entity.NumberReading(-11),
			SetID:      "cold",
		},
		{
			Category:   valueobject.WarningLow,
			Start:      at(1),
			Stop:       at(1.5),
			Values:     []float64{-13},
			LimitValue: entity.NumberReading(-10),
			SetID:      "default",
		},
	}

	records := NewViolationAggregator().Aggregate(entity.Measurement{Key: "x"}, runs, "")
	record := records[valueobject.WarningLow]

	if record.Extrema.Number != -15 {
		t.Errorf("Extrema = %v, want -15", record.Extrema)
	}
	// limit_value и set_id берутся из первого по времени участка
	if record.LimitValue.Number != -10 || record.SetID != "default" {
		t.Errorf("limit = %v/%s, want -10/default", record.LimitValue, record.SetID)
	}
	if record.Expectation != "> -10" {
		t.Errorf("Expectation = %q, want \"> -10\"", record.Expectation)
	}
	if record.TotalDurationHours != 1.5 {
		t.Errorf("TotalDurationHours = %v, want 1.5", record.TotalDurationHours)
	}
}

func TestViolationAggregator_StateCarriesFirstObserved(t *testing.T) {
	runs := []entity.RawViolationRun{
		{Category: valueobject.State, Start: at(0), Stop: at(1), States: []string{"OFF", "OFF"}, LimitValue: entity.LabelReading("NOM")},
		{Category: valueobject.State, Start: at(3), Stop: at(3), States: []string{"SAFE"}, LimitValue: entity.LabelReading("NOM")},
	}

	record := NewViolationAggregator().Aggregate(entity.Measurement{Key: "x"}, runs, "")[valueobject.State]

	if record.Extrema.Label != "OFF" {
		t.Errorf("Extrema = %v, want OFF", record.Extrema)
	}
	if record.Observed != "OFF, SAFE" {
		t.Errorf("Observed = %q, want \"OFF, SAFE\"", record.Observed)
	}
	if record.Expectation != "= NOM" {
		t.Errorf("Expectation = %q, want \"= NOM\"", record.Expectation)
	}
}

func TestViolationAggregator_EmptyAndUnknown(t *testing.T) {
	aggregator := NewViolationAggregator()

	if got := aggregator.Aggregate(entity.Measurement{Key: "x"}, nil, ""); len(got) != 0 {
		t.Errorf("expected empty map for no runs, got %v", got)
	}

	unknown := []entity.RawViolationRun{{Category: "rate_of_change", Start: at(0), Stop: at(1)}}
	if got := aggregator.Aggregate(entity.Measurement{Key: "x"}, unknown, ""); len(got) != 0 {
		t.Errorf("expected unknown category to be ignored, got %v", got)
	}
}

func TestViolationAggregator_CustomRules(t *testing.T) {
	rules := DefaultCategoryRules()
	rules["rate_of_change"] = CategoryRule{Pick: MaxReading, Relation: "<"}

	runs := []entity.RawViolationRun{
		{Category: "rate_of_change", Start: at(0), Stop: at(1), Values: []float64{3, 4}, LimitValue: entity.NumberReading(2)},
	}

	records := NewViolationAggregatorWithRules(rules).Aggregate(entity.Measurement{Key: "x"}, runs, "")
	if records["rate_of_change"].Extrema.Number != 4 {
		t.Fatalf("expected custom category to be folded, got %v", records)
	}
}
