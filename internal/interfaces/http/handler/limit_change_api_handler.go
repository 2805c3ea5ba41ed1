package handler

import (
	"net/http"
	"time"

	"github.com/dreschagin/limit-monitor/internal/application/usecase"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/interfaces/http/middleware"
	"github.com/dreschagin/limit-monitor/pkg/logger"
)

type limitChangesResponse struct {
	Start   time.Time   `json:"start"`
	Stop    time.Time   `json:"stop"`
	Changes interface{} `json:"changes"`
}

// LimitChangeAPIHandler отдает изменения наборов лимитов за интервал
type LimitChangeAPIHandler struct {
	findLimitChangesUC *usecase.FindLimitChangesUseCase
	maxWindow          time.Duration
	logger             *logger.Logger
}

func NewLimitChangeAPIHandler(
	findLimitChangesUC *usecase.FindLimitChangesUseCase,
	maxWindow time.Duration,
	logger *logger.Logger,
) *LimitChangeAPIHandler {
	if maxWindow <= 0 {
		maxWindow = 366 * 24 * time.Hour
	}
	return &LimitChangeAPIHandler{
		findLimitChangesUC: findLimitChangesUC,
		maxWindow:          maxWindow,
		logger:             logger,
	}
}

func (h *LimitChangeAPIHandler) GetLimitChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window, err := parseWindow(r, h.maxWindow)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.findLimitChangesUC.Execute(r.Context(), window)
	if err != nil {
		h.logger.Error("Failed to find limit changes", err)
		status := http.StatusInternalServerError
		if repository.IsCollaboratorIO(err) {
			status = http.StatusServiceUnavailable
		}
		middleware.WriteError(w, status, "failed to find limit changes")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, limitChangesResponse{
		Start:   window.Start(),
		Stop:    window.End(),
		Changes: changes,
	})
}
