package valueobject

import (
	"fmt"
	"strings"
	"time"
)

const dayOfYearLayout = "2006:002:15:04:05"

// ParseMissionTime разбирает время в формате RFC3339 или YYYY:DDD:HH:MM:SS
func ParseMissionTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}

	// Допускаем усеченный вариант YYYY:DDD и YYYY:DDD:HH:MM
	parts := strings.Split(raw, ":")
	for len(parts) < 5 {
		parts = append(parts, "00")
	}
	normalized := strings.Join(parts[:5], ":")

	t, err := time.Parse(dayOfYearLayout, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC3339 or YYYY:DDD:HH:MM:SS", raw)
	}

	return t.UTC(), nil
}

// FormatMissionTime форматирует время как YYYY:DDD:HH:MM:SS
func FormatMissionTime(t time.Time) string {
	return t.UTC().Format(dayOfYearLayout)
}

// FormatDayOfYear форматирует дату как YYYYDDD
func FormatDayOfYear(t time.Time) string {
	return t.UTC().Format("2006002")
}
