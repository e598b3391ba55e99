package store

import (
	"context"

	"github.com/google/uuid"
)

const transactionColumns = `id, mc_no, first_name, last_name, referrer_id, birth_date, sex,
	id_type, id_number, user_id, total_amount, total_discount_amount, total_cash,
	total_gcash, total_balance, excess_refunds, is_refund_processing, refund_date,
	created_at, updated_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.MCNo, &t.FirstName, &t.LastName, &t.ReferrerID, &t.BirthDate, &t.Sex,
		&t.IDType, &t.IDNumber, &t.UserID, &t.TotalAmount, &t.TotalDiscountAmount, &t.TotalCash,
		&t.TotalGCash, &t.TotalBalance, &t.ExcessRefunds, &t.IsRefundProcessing, &t.RefundDate,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// InsertTransactionParams carries the fields for a new transaction header.
type InsertTransactionParams struct {
	MCNo                string
	FirstName           string
	LastName            string
	ReferrerID          uuid.NullUUID
	BirthDate           any
	Sex                 string
	IDType              string
	IDNumber            string
	UserID              uuid.NullUUID
	TotalAmount         string
	TotalDiscountAmount string
	TotalCash           string
	TotalGCash          string
	TotalBalance        string
	ExcessRefunds       []byte
}

// InsertTransaction creates a transaction header and returns the stored row.
func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO transactions (
			mc_no, first_name, last_name, referrer_id, birth_date, sex, id_type,
			id_number, user_id, total_amount, total_discount_amount, total_cash,
			total_gcash, total_balance, excess_refunds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric,
			$12::numeric, $13::numeric, $14::numeric, $15)
		RETURNING `+transactionColumns,
		arg.MCNo, arg.FirstName, arg.LastName, arg.ReferrerID, arg.BirthDate, arg.Sex,
		arg.IDType, arg.IDNumber, arg.UserID, arg.TotalAmount, arg.TotalDiscountAmount,
		arg.TotalCash, arg.TotalGCash, arg.TotalBalance, arg.ExcessRefunds,
	)
	return scanTransaction(row)
}

// UpdateTransactionParams carries the fields persisted on save.
type UpdateTransactionParams struct {
	ID                  uuid.UUID
	MCNo                string
	FirstName           string
	LastName            string
	ReferrerID          uuid.NullUUID
	BirthDate           any
	Sex                 string
	IDType              string
	IDNumber            string
	UserID              uuid.NullUUID
	TotalAmount         string
	TotalDiscountAmount string
	TotalCash           string
	TotalGCash          string
	TotalBalance        string
	ExcessRefunds       []byte
	IsRefundProcessing  bool
	RefundDate          any
}

// UpdateTransaction overwrites a transaction header.
func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE transactions SET
			mc_no = $2, first_name = $3, last_name = $4, referrer_id = $5,
			birth_date = $6, sex = $7, id_type = $8, id_number = $9, user_id = $10,
			total_amount = $11::numeric, total_discount_amount = $12::numeric,
			total_cash = $13::numeric, total_gcash = $14::numeric,
			total_balance = $15::numeric, excess_refunds = $16,
			is_refund_processing = $17, refund_date = COALESCE($18, refund_date),
			updated_at = now()
		WHERE id = $1
		RETURNING `+transactionColumns,
		arg.ID, arg.MCNo, arg.FirstName, arg.LastName, arg.ReferrerID, arg.BirthDate,
		arg.Sex, arg.IDType, arg.IDNumber, arg.UserID, arg.TotalAmount,
		arg.TotalDiscountAmount, arg.TotalCash, arg.TotalGCash, arg.TotalBalance,
		arg.ExcessRefunds, arg.IsRefundProcessing, arg.RefundDate,
	)
	return scanTransaction(row)
}

// GetTransaction fetches one transaction header by id.
func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// ListTransactionsParams pages through transactions newest first.
type ListTransactionsParams struct {
	Limit  int32
	Offset int32
}

// ListTransactions returns a page of transaction headers, newest first.
func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTransactions returns the total number of transactions.
func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM transactions`).Scan(&count)
	return count, err
}

// CountByReceiptNoParams checks MC#/OR# uniqueness, optionally excluding the
// transaction being edited.
type CountByReceiptNoParams struct {
	MCNo      string
	ExcludeID uuid.NullUUID
}

// CountByReceiptNo counts transactions carrying the given receipt number.
func (q *Queries) CountByReceiptNo(ctx context.Context, arg CountByReceiptNoParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM transactions
		WHERE mc_no = $1 AND ($2::uuid IS NULL OR id <> $2::uuid)`,
		arg.MCNo, arg.ExcludeID).Scan(&count)
	return count, err
}

// InsertTestDetailParams carries one billable line for persistence. The ID is
// assigned by the caller so excess-refund keys can reference it before commit.
type InsertTestDetailParams struct {
	ID              uuid.UUID
	TransactionID   uuid.UUID
	LabTestID       uuid.NullUUID
	TestName        string
	DepartmentID    uuid.UUID
	OriginalPrice   string
	DiscountPercent int32
	DiscountedPrice string
	CashAmount      string
	GCashAmount     string
	BalanceAmount   string
	Status          string
}

// InsertTestDetail persists one line of a transaction.
func (q *Queries) InsertTestDetail(ctx context.Context, arg InsertTestDetailParams) (TestDetail, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO test_details (
			id, transaction_id, lab_test_id, test_name, department_id, original_price,
			discount_percent, discounted_price, cash_amount, gcash_amount,
			balance_amount, status
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8::numeric, $9::numeric,
			$10::numeric, $11::numeric, $12)
		RETURNING id, transaction_id, lab_test_id, test_name, department_id,
			original_price, discount_percent, discounted_price, cash_amount,
			gcash_amount, balance_amount, status, created_at`,
		arg.ID, arg.TransactionID, arg.LabTestID, arg.TestName, arg.DepartmentID,
		arg.OriginalPrice, arg.DiscountPercent, arg.DiscountedPrice, arg.CashAmount,
		arg.GCashAmount, arg.BalanceAmount, arg.Status,
	)
	return scanTestDetail(row)
}

func scanTestDetail(row interface{ Scan(dest ...any) error }) (TestDetail, error) {
	var d TestDetail
	err := row.Scan(
		&d.ID, &d.TransactionID, &d.LabTestID, &d.TestName, &d.DepartmentID,
		&d.OriginalPrice, &d.DiscountPercent, &d.DiscountedPrice, &d.CashAmount,
		&d.GCashAmount, &d.BalanceAmount, &d.Status, &d.CreatedAt,
	)
	return d, err
}

// ListTestDetails returns all lines of a transaction in insertion order.
func (q *Queries) ListTestDetails(ctx context.Context, transactionID uuid.UUID) ([]TestDetail, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, transaction_id, lab_test_id, test_name, department_id,
			original_price, discount_percent, discounted_price, cash_amount,
			gcash_amount, balance_amount, status, created_at
		FROM test_details
		WHERE transaction_id = $1
		ORDER BY created_at, id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestDetail
	for rows.Next() {
		d, err := scanTestDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateTestDetailParams overwrites the mutable fields of one line.
type UpdateTestDetailParams struct {
	ID              uuid.UUID
	DiscountPercent int32
	DiscountedPrice string
	CashAmount      string
	GCashAmount     string
	BalanceAmount   string
	Status          string
}

// UpdateTestDetail persists recalculated amounts for one line.
func (q *Queries) UpdateTestDetail(ctx context.Context, arg UpdateTestDetailParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE test_details SET
			discount_percent = $2, discounted_price = $3::numeric,
			cash_amount = $4::numeric, gcash_amount = $5::numeric,
			balance_amount = $6::numeric, status = $7
		WHERE id = $1`,
		arg.ID, arg.DiscountPercent, arg.DiscountedPrice, arg.CashAmount,
		arg.GCashAmount, arg.BalanceAmount, arg.Status,
	)
	return err
}

// DailySummaryParams bounds a summary to one calendar day.
type DailySummaryParams struct {
	From any
	To   any
}

// DailySummary aggregates revenue and refund figures for a day.
func (q *Queries) DailySummary(ctx context.Context, arg DailySummaryParams) (DailySummaryRow, error) {
	var row DailySummaryRow
	err := q.db.QueryRow(ctx, `
		SELECT count(DISTINCT t.id),
			COALESCE(sum(d.cash_amount) FILTER (WHERE d.status = 'active'), 0),
			COALESCE(sum(d.gcash_amount) FILTER (WHERE d.status = 'active'), 0),
			COALESCE(sum(d.balance_amount) FILTER (WHERE d.status = 'active'), 0),
			COALESCE(sum(d.cash_amount + d.gcash_amount) FILTER (WHERE d.status = 'active'), 0),
			COALESCE(count(*) FILTER (WHERE d.status = 'refunded'), 0),
			COALESCE(sum(d.original_price) FILTER (WHERE d.status = 'refunded'), 0)
		FROM transactions t
		JOIN test_details d ON d.transaction_id = t.id
		WHERE t.created_at >= $1 AND t.created_at < $2`,
		arg.From, arg.To).Scan(
		&row.Transactions, &row.TotalCash, &row.TotalGCash, &row.TotalBalance,
		&row.TotalRevenue, &row.RefundCount, &row.RefundAmount,
	)
	return row, err
}

// ListExcessRefunds returns the stored excess-refund metadata for recent
// transactions so list views can surface pending refund money.
func (q *Queries) ListExcessRefunds(ctx context.Context, limit int32) (map[uuid.UUID][]byte, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, excess_refunds FROM transactions
		WHERE excess_refunds <> '{}'::jsonb
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]byte)
	for rows.Next() {
		var id uuid.UUID
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		out[id] = raw
	}
	return out, rows.Err()
}
