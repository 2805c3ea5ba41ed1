package http

import (
	"net/http"

	"github.com/dreschagin/limit-monitor/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/limit-monitor/internal/reportrunner"
	"github.com/dreschagin/limit-monitor/pkg/config"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux                   *http.ServeMux
	healthHandler         *handler.HealthHandler
	reportAPIHandler      *handler.ReportAPIHandler
	limitChangeAPIHandler *handler.LimitChangeAPIHandler
	websocketHandler      *handler.WebSocketHandler
	runnerHandler         *reportrunner.Handler
	metrics               *metrics.Metrics
	rateLimiter           *middleware.IPRateLimiter
	security              config.SecurityConfig
	logger                *logger.Logger
}

// NewRouter создает новый router
// runnerHandler и metrics могут быть nil
func NewRouter(
	healthHandler *handler.HealthHandler,
	reportAPIHandler *handler.ReportAPIHandler,
	limitChangeAPIHandler *handler.LimitChangeAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	runnerHandler *reportrunner.Handler,
	metrics *metrics.Metrics,
	rateLimiter *middleware.IPRateLimiter,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:                   http.NewServeMux(),
		healthHandler:         healthHandler,
		reportAPIHandler:      reportAPIHandler,
		limitChangeAPIHandler: limitChangeAPIHandler,
		websocketHandler:      websocketHandler,
		runnerHandler:         runnerHandler,
		metrics:               metrics,
		rateLimiter:           rateLimiter,
		security:              security,
		logger:                logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Пробы и метрики без авторизации
	rt.mux.HandleFunc("/healthz", rt.healthHandler.Healthz)
	rt.mux.HandleFunc("/readyz", rt.healthHandler.Readyz)
	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	authConfig := middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}
	if rt.metrics != nil {
		authConfig.OnFailure = rt.metrics.AuthFailures.Inc
	}
	authMiddleware := middleware.Auth(authConfig, rt.logger)

	// Генерация отчета дорогая: POST ограничен по частоте
	reports := http.Handler(http.HandlerFunc(rt.reportAPIHandler.Reports))
	if rt.rateLimiter != nil {
		if rt.metrics != nil {
			rt.rateLimiter.OnReject = rt.metrics.RateLimitDropped.Inc
		}
		limited := middleware.RateLimit(rt.rateLimiter)(reports)
		unlimited := reports
		reports = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			unlimited.ServeHTTP(w, r)
		})
	}

	// API endpoints
	rt.mux.Handle("/api/v1/reports", authMiddleware(reports))
	rt.mux.Handle("/api/v1/reports/index", authMiddleware(http.HandlerFunc(rt.reportAPIHandler.ListIndex)))
	rt.mux.Handle("/api/v1/limit-changes", authMiddleware(http.HandlerFunc(rt.limitChangeAPIHandler.GetLimitChanges)))

	if rt.runnerHandler != nil {
		rt.mux.Handle("/api/v1/runner/summary", authMiddleware(http.HandlerFunc(rt.runnerHandler.Summary)))
		rt.mux.Handle("/api/v1/runner/run", authMiddleware(http.HandlerFunc(rt.runnerHandler.RunNow)))
	}

	// WebSocket проверяет токен сам (query ?token= для браузеров)
	rt.mux.HandleFunc("/ws", rt.websocketHandler.HandleConnection)

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	handler = middleware.Logger(rt.logger)(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}
