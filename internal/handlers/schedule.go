package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"bbb-schedule-sync/internal/middleware"
	"bbb-schedule-sync/internal/models"
)

type runTrigger interface {
	RunOnce(ctx context.Context, trigger string) (*models.SyncRun, error)
}

type schedulePreviewer interface {
	Preview(ctx context.Context) (*models.Preview, error)
}

type runHistory interface {
	Latest(ctx context.Context) (*models.SyncRun, error)
	List(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 50
)

type ScheduleHandler struct {
	runner  runTrigger
	preview schedulePreviewer
	runs    runHistory
}

func NewScheduleHandler(runner runTrigger, preview schedulePreviewer, runs runHistory) *ScheduleHandler {
	return &ScheduleHandler{runner: runner, preview: preview, runs: runs}
}

// Trigger runs a sync immediately and answers with the finished run.
func (h *ScheduleHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	log.Printf("Manual schedule sync requested by %s", middleware.GetSubject(r.Context()))

	run, err := h.runner.RunOnce(r.Context(), models.TriggerManual)
	if err != nil {
		if run == nil {
			handleServiceError(w, r, err)
			return
		}
		// A failed run is still returned so callers see its state and status code
		status, code, message := classifyError(err)
		writeJSON(w, status, map[string]interface{}{
			"error": errorResp(code, message, r).Error,
			"run":   run,
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *ScheduleHandler) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.preview.Preview(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (h *ScheduleHandler) Latest(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Latest(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *ScheduleHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*models.SyncRun{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
