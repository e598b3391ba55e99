package store

import (
	"context"

	"github.com/google/uuid"
)

// ListDepartments returns every department ordered by name.
func (q *Queries) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertDepartment creates a department.
func (q *Queries) InsertDepartment(ctx context.Context, name string) (Department, error) {
	var d Department
	err := q.db.QueryRow(ctx, `
		INSERT INTO departments (name) VALUES ($1)
		RETURNING id, name, created_at`, name).
		Scan(&d.ID, &d.Name, &d.CreatedAt)
	return d, err
}

const labTestColumns = `id, name, department_id, price, active, created_at, updated_at`

func scanLabTest(row interface{ Scan(dest ...any) error }) (LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.Name, &t.DepartmentID, &t.Price, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListLabTests returns active catalog entries ordered by name.
func (q *Queries) ListLabTests(ctx context.Context) ([]LabTest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+labTestColumns+` FROM lab_tests WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LabTest
	for rows.Next() {
		t, err := scanLabTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetLabTest fetches one catalog entry by id.
func (q *Queries) GetLabTest(ctx context.Context, id uuid.UUID) (LabTest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+labTestColumns+` FROM lab_tests WHERE id = $1`, id)
	return scanLabTest(row)
}

// InsertLabTestParams carries a new catalog entry.
type InsertLabTestParams struct {
	Name         string
	DepartmentID uuid.UUID
	Price        string
}

// InsertLabTest creates a catalog entry.
func (q *Queries) InsertLabTest(ctx context.Context, arg InsertLabTestParams) (LabTest, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO lab_tests (name, department_id, price)
		VALUES ($1, $2, $3::numeric)
		RETURNING `+labTestColumns,
		arg.Name, arg.DepartmentID, arg.Price)
	return scanLabTest(row)
}

// UpdateLabTestParams carries the editable fields of a catalog entry.
type UpdateLabTestParams struct {
	ID           uuid.UUID
	Name         string
	DepartmentID uuid.UUID
	Price        string
	Active       bool
}

// UpdateLabTest overwrites a catalog entry.
func (q *Queries) UpdateLabTest(ctx context.Context, arg UpdateLabTestParams) (LabTest, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE lab_tests SET
			name = $2, department_id = $3, price = $4::numeric, active = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING `+labTestColumns,
		arg.ID, arg.Name, arg.DepartmentID, arg.Price, arg.Active)
	return scanLabTest(row)
}

// DeactivateLabTest soft-deletes a catalog entry.
func (q *Queries) DeactivateLabTest(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE lab_tests SET active = false, updated_at = now() WHERE id = $1`, id)
	return err
}
