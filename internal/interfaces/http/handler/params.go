package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// parseWindow читает интервал из параметров start/stop
// Формат времени: RFC3339 или YYYY:DDD:HH:MM:SS
func parseWindow(r *http.Request, maxWindow time.Duration) (valueobject.TimeRange, error) {
	query := r.URL.Query()
	startRaw := strings.TrimSpace(query.Get("start"))
	stopRaw := strings.TrimSpace(query.Get("stop"))
	if startRaw == "" || stopRaw == "" {
		return valueobject.TimeRange{}, fmt.Errorf("missing required parameters: start, stop")
	}

	start, err := valueobject.ParseMissionTime(startRaw)
	if err != nil {
		return valueobject.TimeRange{}, fmt.Errorf("invalid start: %w", err)
	}
	stop, err := valueobject.ParseMissionTime(stopRaw)
	if err != nil {
		return valueobject.TimeRange{}, fmt.Errorf("invalid stop: %w", err)
	}

	window, err := valueobject.NewTimeRange(start, stop)
	if err != nil {
		return valueobject.TimeRange{}, err
	}
	if maxWindow > 0 && window.Duration() > maxWindow {
		return valueobject.TimeRange{}, fmt.Errorf("window exceeds %s", maxWindow)
	}

	return window, nil
}

// parseOptionalTime возвращает нулевое время для пустого значения
func parseOptionalTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return valueobject.ParseMissionTime(raw)
}

func parseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	return limit, nil
}
