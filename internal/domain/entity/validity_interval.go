package entity

import (
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// ValidityInterval задает имя для поиска лимитов и набор лимитов на интервале времени
// Нулевой EffectiveTo означает открытый интервал
type ValidityInterval struct {
	Identity      string
	SetID         string
	EffectiveFrom time.Time
	EffectiveTo   time.Time
}

// Covers проверяет, действует ли интервал в момент t (границы включаются)
func (v ValidityInterval) Covers(t time.Time) bool {
	if t.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo.IsZero() || !t.After(v.EffectiveTo)
}

// Clip возвращает пересечение интервала с окном
func (v ValidityInterval) Clip(window valueobject.TimeRange) (valueobject.TimeRange, bool) {
	start := v.EffectiveFrom
	if start.IsZero() {
		start = window.Start()
	}
	end := v.EffectiveTo
	if end.IsZero() {
		end = window.End()
	}
	if start.After(end) {
		return valueobject.TimeRange{}, false
	}

	span, err := valueobject.NewTimeRange(start, end)
	if err != nil {
		return valueobject.TimeRange{}, false
	}
	return span.Intersect(window)
}

// ValidityTable: интервалы действия по ключу архива
type ValidityTable map[string][]ValidityInterval

// For возвращает интервалы измерения, упорядоченные по началу действия
func (t ValidityTable) For(key string) []ValidityInterval {
	intervals := t[key]
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]ValidityInterval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	return sorted
}
