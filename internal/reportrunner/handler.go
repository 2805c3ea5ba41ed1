package reportrunner

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type Handler struct {
	runner     *Runner
	runTimeout time.Duration
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner, runTimeout: runner.timeout}
}

// Routes mounts the runner endpoints on their own mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/readyz", h.Readyz)
	mux.HandleFunc("/api/v1/runner/summary", h.Summary)
	mux.HandleFunc("/api/v1/runner/run", h.RunNow)

	return mux
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.runner.Snapshot()

	response := map[string]string{
		"status":     "ok",
		"uptime":     time.Since(snapshot.StartedAt).Round(time.Second).String(),
		"last_error": snapshot.LastError,
	}
	if !snapshot.LastRunAt.IsZero() {
		response["last_run"] = snapshot.LastRunAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, response)
}

// Readyz reports ready once a cycle has succeeded within three intervals.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.runner.Snapshot()
	if snapshot.LastRunAt.IsZero() {
		http.Error(w, "not ready: no report cycle yet", http.StatusServiceUnavailable)
		return
	}
	if time.Since(snapshot.LastRunAt) > snapshot.Interval*3 {
		http.Error(w, "not ready: stale report cycle", http.StatusServiceUnavailable)
		return
	}
	if snapshot.LastError != "" {
		http.Error(w, "not ready: last cycle failed", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

func (h *Handler) RunNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	summary, err := h.runner.RunOnce(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(data)
}
