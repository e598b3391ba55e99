package expense

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/money"
	"github.com/Valiantic/purehealth-api/internal/store"
)

type queryProvider interface {
	ListExpenses(ctx context.Context, arg store.ListExpensesParams) ([]store.Expense, error)
	InsertExpense(ctx context.Context, arg store.InsertExpenseParams) (store.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	SumExpenses(ctx context.Context, arg store.SumExpensesParams) (string, error)
}

// Item is the public shape of one expense entry.
type Item struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	IncurredOn  string `json:"incurredOn"`
	RecordedBy  string `json:"recordedBy,omitempty"`
}

// Input carries a new expense entry.
type Input struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	IncurredOn  string `json:"incurredOn"`
	RecordedBy  string `json:"recordedBy,omitempty"`
}

// ListOutput bundles a date-ranged expense listing with its total.
type ListOutput struct {
	Items []Item `json:"items"`
	Total string `json:"total"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// Service records clinic operating expenses for the daily report.
type Service struct {
	Q queryProvider
}

// List returns expenses within the date range together with their sum. An
// empty range defaults to the current day.
func (s *Service) List(ctx context.Context, from, to string) (ListOutput, error) {
	fromDay, toDay, err := parseRange(from, to)
	if err != nil {
		return ListOutput{}, err
	}
	rows, err := s.Q.ListExpenses(ctx, store.ListExpensesParams{From: fromDay, To: toDay})
	if err != nil {
		return ListOutput{}, fmt.Errorf("list expenses: %w", err)
	}
	total, err := s.Q.SumExpenses(ctx, store.SumExpensesParams{From: fromDay, To: toDay})
	if err != nil {
		return ListOutput{}, fmt.Errorf("sum expenses: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return ListOutput{
		Items: items,
		Total: total,
		From:  fromDay.Format("2006-01-02"),
		To:    toDay.Format("2006-01-02"),
	}, nil
}

// Create records one expense entry.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	if strings.TrimSpace(in.Description) == "" {
		return Item{}, badRequest("description is required")
	}
	amount, err := money.Parse(in.Amount)
	if err != nil {
		return Item{}, badRequest("amount must be a plain decimal amount")
	}
	day, err := time.Parse("2006-01-02", strings.TrimSpace(in.IncurredOn))
	if err != nil {
		return Item{}, badRequest("incurredOn must be YYYY-MM-DD")
	}
	var recordedBy uuid.NullUUID
	if trimmed := strings.TrimSpace(in.RecordedBy); trimmed != "" {
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return Item{}, badRequest("recordedBy must be a valid id")
		}
		recordedBy = uuid.NullUUID{UUID: parsed, Valid: true}
	}
	row, err := s.Q.InsertExpense(ctx, store.InsertExpenseParams{
		Description: strings.TrimSpace(in.Description),
		Amount:      money.Format(amount),
		IncurredOn:  day,
		RecordedBy:  recordedBy,
	})
	if err != nil {
		return Item{}, fmt.Errorf("insert expense: %w", err)
	}
	return toItem(row), nil
}

// Delete removes an expense entry.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	fromDay, toDay := today, today
	if trimmed := strings.TrimSpace(from); trimmed != "" {
		parsed, err := time.Parse("2006-01-02", trimmed)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest("from must be YYYY-MM-DD")
		}
		fromDay = parsed
	}
	if trimmed := strings.TrimSpace(to); trimmed != "" {
		parsed, err := time.Parse("2006-01-02", trimmed)
		if err != nil {
			return time.Time{}, time.Time{}, badRequest("to must be YYYY-MM-DD")
		}
		toDay = parsed
	}
	if toDay.Before(fromDay) {
		return time.Time{}, time.Time{}, badRequest("to cannot precede from")
	}
	return fromDay, toDay, nil
}

func toItem(row store.Expense) Item {
	item := Item{
		ID:          row.ID.String(),
		Description: row.Description,
		Amount:      row.Amount.StringFixed(2),
		IncurredOn:  row.IncurredOn.Format("2006-01-02"),
	}
	if row.RecordedBy.Valid {
		item.RecordedBy = row.RecordedBy.UUID.String()
	}
	return item
}

func badRequest(message string) *common.AppError {
	return &common.AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: http.StatusBadRequest}
}
