package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// ReadinessCheck проверяет доступность внешней зависимости
type ReadinessCheck func(ctx context.Context) error

// HealthHandler обслуживает liveness и readiness пробы
type HealthHandler struct {
	checks  map[string]ReadinessCheck
	timeout time.Duration
	logger  *logger.Logger
}

func NewHealthHandler(checks map[string]ReadinessCheck, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz выполняет все проверки; любая неудачная дает 503
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("Readiness check failed", "check", name, "error", err)
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	middleware.WriteJSON(w, status, results)
}
