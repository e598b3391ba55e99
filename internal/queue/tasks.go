package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names registered on the asynq mux.
const (
	TypeReportRefresh = "report:refresh"
)

// ReportRefreshPayload names the summary day a worker should recompute.
type ReportRefreshPayload struct {
	Date string `json:"date"`
}

// NewReportRefreshTask builds a refresh task for the given calendar day.
func NewReportRefreshTask(date time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportRefreshPayload{Date: date.Format("2006-01-02")})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportRefresh, payload, asynq.MaxRetry(3), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer hides the asynq client behind a narrow surface so services can be
// tested with a stub.
type Enqueuer struct {
	Client *asynq.Client
}

// RefreshReport schedules a daily-summary recompute. A nil enqueuer or client
// is a no-op so callers need no wiring in tests.
func (e *Enqueuer) RefreshReport(ctx context.Context, date time.Time) error {
	if e == nil || e.Client == nil {
		return nil
	}
	task, err := NewReportRefreshTask(date)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}
