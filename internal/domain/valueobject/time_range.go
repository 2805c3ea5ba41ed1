package valueobject

import (
	"errors"
	"time"
)

// TimeRange представляет временной диапазон (Value Object)
// Иммутабельный объект, обе границы включаются
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	return TimeRange{
		start: start.UTC(),
		end:   end.UTC(),
	}, nil
}

// MustTimeRange создает TimeRange и паникует при ошибке (для тестов и констант)
func MustTimeRange(start, end time.Time) TimeRange {
	tr, err := NewTimeRange(start, end)
	if err != nil {
		panic(err)
	}
	return tr
}

// LastCompletedWeek возвращает последнюю завершенную неделю, начинающуюся в weekStart
func LastCompletedWeek(now time.Time, weekStart time.Weekday) TimeRange {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	end := day.AddDate(0, 0, -offset)
	start := end.AddDate(0, 0, -7)

	return TimeRange{start: start, end: end}
}

// Start возвращает начальное время
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End возвращает конечное время
func (tr TimeRange) End() time.Time {
	return tr.end
}

// Duration возвращает длительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Hours возвращает длительность диапазона в часах
func (tr TimeRange) Hours() float64 {
	return tr.Duration().Hours()
}

// IsZero проверяет, задан ли диапазон
func (tr TimeRange) IsZero() bool {
	return tr.start.IsZero() && tr.end.IsZero()
}

// Contains проверяет, попадает ли указанное время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && !t.After(tr.end)
}

// Overlaps проверяет, пересекаются ли два временных диапазона (с учетом границ)
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return !tr.start.After(other.end) && !other.start.After(tr.end)
}

// Intersect возвращает пересечение двух диапазонов
func (tr TimeRange) Intersect(other TimeRange) (TimeRange, bool) {
	if !tr.Overlaps(other) {
		return TimeRange{}, false
	}

	start := tr.start
	if other.start.After(start) {
		start = other.start
	}
	end := tr.end
	if other.end.Before(end) {
		end = other.end
	}

	return TimeRange{start: start, end: end}, true
}

// DayRange возвращает метку диапазона в формате YYYYDDD-YYYYDDD
func (tr TimeRange) DayRange() string {
	return FormatDayOfYear(tr.start) + "-" + FormatDayOfYear(tr.end)
}
