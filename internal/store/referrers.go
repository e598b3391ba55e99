package store

import (
	"context"

	"github.com/google/uuid"
)

const referrerColumns = `id, name, clinic, phone, created_at, updated_at`

func scanReferrer(row interface{ Scan(dest ...any) error }) (Referrer, error) {
	var r Referrer
	err := row.Scan(&r.ID, &r.Name, &r.Clinic, &r.Phone, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// ListReferrers returns all referrers ordered by name.
func (q *Queries) ListReferrers(ctx context.Context) ([]Referrer, error) {
	rows, err := q.db.Query(ctx, `SELECT `+referrerColumns+` FROM referrers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Referrer
	for rows.Next() {
		r, err := scanReferrer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetReferrer fetches one referrer by id.
func (q *Queries) GetReferrer(ctx context.Context, id uuid.UUID) (Referrer, error) {
	row := q.db.QueryRow(ctx, `SELECT `+referrerColumns+` FROM referrers WHERE id = $1`, id)
	return scanReferrer(row)
}

// InsertReferrerParams carries a new referrer.
type InsertReferrerParams struct {
	Name   string
	Clinic string
	Phone  string
}

// InsertReferrer creates a referrer.
func (q *Queries) InsertReferrer(ctx context.Context, arg InsertReferrerParams) (Referrer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO referrers (name, clinic, phone)
		VALUES ($1, $2, $3)
		RETURNING `+referrerColumns,
		arg.Name, arg.Clinic, arg.Phone)
	return scanReferrer(row)
}

// UpdateReferrerParams carries the editable fields of a referrer.
type UpdateReferrerParams struct {
	ID     uuid.UUID
	Name   string
	Clinic string
	Phone  string
}

// UpdateReferrer overwrites a referrer.
func (q *Queries) UpdateReferrer(ctx context.Context, arg UpdateReferrerParams) (Referrer, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE referrers SET name = $2, clinic = $3, phone = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+referrerColumns,
		arg.ID, arg.Name, arg.Clinic, arg.Phone)
	return scanReferrer(row)
}

// DeleteReferrer removes a referrer. Transactions keep a null referrer.
func (q *Queries) DeleteReferrer(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.Exec(ctx, `
		UPDATE transactions SET referrer_id = NULL WHERE referrer_id = $1`, id); err != nil {
		return err
	}
	_, err := q.db.Exec(ctx, `DELETE FROM referrers WHERE id = $1`, id)
	return err
}
