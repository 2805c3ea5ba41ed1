package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/usecase"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

// ReportAPIHandler обрабатывает API запросы отчетов о нарушениях
type ReportAPIHandler struct {
	generateReportUC *usecase.GenerateReportUseCase
	getReportUC      *usecase.GetReportCachedUseCase
	listReportsUC    *usecase.ListReportsUseCase
	maxWindow        time.Duration
	logger           *logger.Logger
}

// NewReportAPIHandler создает новый handler
func NewReportAPIHandler(
	generateReportUC *usecase.GenerateReportUseCase,
	getReportUC *usecase.GetReportCachedUseCase,
	listReportsUC *usecase.ListReportsUseCase,
	maxWindow time.Duration,
	logger *logger.Logger,
) *ReportAPIHandler {
	if maxWindow <= 0 {
		maxWindow = 31 * 24 * time.Hour
	}

	return &ReportAPIHandler{
		generateReportUC: generateReportUC,
		getReportUC:      getReportUC,
		listReportsUC:    listReportsUC,
		maxWindow:        maxWindow,
		logger:           logger,
	}
}

// Reports: GET возвращает отчет (кеш, индекс, генерация), POST генерирует заново
func (h *ReportAPIHandler) Reports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getReport(w, r)
	case http.MethodPost:
		h.generateReport(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ReportAPIHandler) getReport(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r, h.maxWindow)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.getReportUC.Execute(r.Context(), window)
	if err != nil {
		if errors.Is(err, usecase.ErrReportNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "report not found")
			return
		}
		h.writeBuildError(w, "Failed to get report", err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

func (h *ReportAPIHandler) generateReport(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindow(r, h.maxWindow)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.generateReportUC.Execute(r.Context(), window)
	if err != nil {
		h.writeBuildError(w, "Failed to generate report", err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, report)
}

// ListIndex возвращает страницу индекса сохраненных отчетов
func (h *ReportAPIHandler) ListIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.listReportsUC == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "report index is not configured")
		return
	}

	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid to")
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		middleware.WriteError(w, http.StatusBadRequest, "from must be less than or equal to to")
		return
	}

	result, err := h.listReportsUC.Execute(r.Context(), usecase.ListReportsCommand{
		Limit:  limit,
		Cursor: query.Get("cursor"),
		From:   from,
		To:     to,
	})
	if err != nil {
		h.logger.Error("Failed to list reports", err)
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// writeBuildError: недоступное хранилище лимитов или архив дают 503
func (h *ReportAPIHandler) writeBuildError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, err)
	if repository.IsCollaboratorIO(err) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "upstream collaborator unavailable")
		return
	}
	middleware.WriteError(w, http.StatusInternalServerError, "failed to build report")
}
