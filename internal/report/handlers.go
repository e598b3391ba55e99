package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/queue"
)

// Handler exposes the daily report endpoint.
type Handler struct {
	Svc *Service
}

// Daily handles GET /reports/daily?date=YYYY-MM-DD.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Daily(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to build daily report", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// HandleRefreshTask processes queued report refreshes on the worker.
func (h *Handler) HandleRefreshTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.ReportRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	day, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		return err
	}
	return h.Svc.Refresh(ctx, day)
}
