package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const expenseColumns = `id, description, amount, incurred_on, recorded_by, created_at`

func scanExpense(row interface{ Scan(dest ...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Description, &e.Amount, &e.IncurredOn, &e.RecordedBy, &e.CreatedAt)
	return e, err
}

// ListExpensesParams bounds an expense listing to a date range.
type ListExpensesParams struct {
	From time.Time
	To   time.Time
}

// ListExpenses returns expenses within [From, To], newest first.
func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE incurred_on >= $1 AND incurred_on <= $2
		ORDER BY incurred_on DESC, created_at DESC`,
		arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertExpenseParams carries a new expense entry.
type InsertExpenseParams struct {
	Description string
	Amount      string
	IncurredOn  time.Time
	RecordedBy  uuid.NullUUID
}

// InsertExpense records one operating expense.
func (q *Queries) InsertExpense(ctx context.Context, arg InsertExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO expenses (description, amount, incurred_on, recorded_by)
		VALUES ($1, $2::numeric, $3, $4)
		RETURNING `+expenseColumns,
		arg.Description, arg.Amount, arg.IncurredOn, arg.RecordedBy)
	return scanExpense(row)
}

// DeleteExpense removes an expense entry.
func (q *Queries) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return err
}

// SumExpensesParams bounds an expense total to a date range.
type SumExpensesParams struct {
	From time.Time
	To   time.Time
}

// SumExpenses totals expenses within [From, To].
func (q *Queries) SumExpenses(ctx context.Context, arg SumExpensesParams) (string, error) {
	var total string
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(sum(amount), 0)::text FROM expenses
		WHERE incurred_on >= $1 AND incurred_on <= $2`,
		arg.From, arg.To).Scan(&total)
	return total, err
}
