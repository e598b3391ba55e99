package store

import (
	"context"

	"github.com/google/uuid"
)

const accountColumns = `id, username, full_name, role, password_hash, created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.FullName, &a.Role, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListAccounts returns all staff accounts ordered by username.
func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches one account by id.
func (q *Queries) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	row := q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetAccountByUsername fetches one account by its unique username.
func (q *Queries) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	row := q.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// InsertAccountParams carries a new staff account.
type InsertAccountParams struct {
	Username     string
	FullName     string
	Role         string
	PasswordHash string
}

// InsertAccount creates a staff account.
func (q *Queries) InsertAccount(ctx context.Context, arg InsertAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO accounts (username, full_name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+accountColumns,
		arg.Username, arg.FullName, arg.Role, arg.PasswordHash)
	return scanAccount(row)
}

// UpdateAccountParams carries the editable profile fields of an account.
type UpdateAccountParams struct {
	ID       uuid.UUID
	FullName string
	Role     string
}

// UpdateAccount overwrites an account's profile fields.
func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) (Account, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE accounts SET full_name = $2, role = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		arg.ID, arg.FullName, arg.Role)
	return scanAccount(row)
}

// UpdateAccountPassword replaces an account's password hash.
func (q *Queries) UpdateAccountPassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	return err
}

// DeleteAccount removes a staff account.
func (q *Queries) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}
