package entity

import (
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// RawViolationRun: максимальный непрерывный участок значений, нарушающих одну границу
// Start <= Stop; участки одной категории из одного вызова не пересекаются
type RawViolationRun struct {
	Category   valueobject.Category
	Start      time.Time
	Stop       time.Time
	Values     []float64
	States     []string
	LimitValue Reading
	SetID      string
	Identity   string
}

// Span возвращает временной диапазон участка
func (r RawViolationRun) Span() valueobject.TimeRange {
	return valueobject.MustTimeRange(r.Start, r.Stop)
}

// DurationHours возвращает длительность участка в часах
func (r RawViolationRun) DurationHours() float64 {
	return r.Stop.Sub(r.Start).Hours()
}

// Readings возвращает значения участка в виде Reading
func (r RawViolationRun) Readings() []Reading {
	if len(r.States) > 0 {
		readings := make([]Reading, 0, len(r.States))
		for _, state := range r.States {
			readings = append(readings, LabelReading(state))
		}
		return readings
	}

	readings := make([]Reading, 0, len(r.Values))
	for _, v := range r.Values {
		readings = append(readings, NumberReading(v))
	}
	return readings
}

// ViolationRecord: сводная запись о нарушениях одной категории для одного измерения
// TotalDurationHours <= (Stop - Start) в часах
type ViolationRecord struct {
	Category           valueobject.Category
	Start              time.Time
	Stop               time.Time
	NumExcursions      int
	Extrema            Reading
	LimitValue         Reading
	SetID              string
	TotalDurationHours float64
	Description        string
	Expectation        string
	Observed           string
	Excursions         []valueobject.TimeRange
}

// EnvelopeHours возвращает длительность огибающей (Stop - Start) в часах
func (v ViolationRecord) EnvelopeHours() float64 {
	return v.Stop.Sub(v.Start).Hours()
}

// ViolationMap: нарушения по ключу измерения и категории
type ViolationMap map[string]map[valueobject.Category]ViolationRecord
