package testcatalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/money"
	"github.com/Valiantic/purehealth-api/internal/store"
)

const (
	testsCacheKey       = "testcatalog:tests"
	departmentsCacheKey = "testcatalog:departments"
)

type queryProvider interface {
	ListLabTests(ctx context.Context) ([]store.LabTest, error)
	InsertLabTest(ctx context.Context, arg store.InsertLabTestParams) (store.LabTest, error)
	UpdateLabTest(ctx context.Context, arg store.UpdateLabTestParams) (store.LabTest, error)
	DeactivateLabTest(ctx context.Context, id uuid.UUID) error
	ListDepartments(ctx context.Context) ([]store.Department, error)
	InsertDepartment(ctx context.Context, name string) (store.Department, error)
}

// TestItem is the public shape of one catalog entry.
type TestItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"departmentId"`
	Price        string `json:"price"`
	Active       bool   `json:"active"`
}

// DepartmentItem is the public shape of one department.
type DepartmentItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TestInput carries the editable fields of a catalog entry.
type TestInput struct {
	Name         string `json:"name"`
	DepartmentID string `json:"departmentId"`
	Price        string `json:"price"`
	Active       *bool  `json:"active,omitempty"`
}

// Service serves the priced test catalog that billing drafts price lines
// from. Listings are cached; every write drops the cache.
type Service struct {
	Q     queryProvider
	Cache *Cache
}

// ListTests returns the active catalog, cached.
func (s *Service) ListTests(ctx context.Context) ([]TestItem, error) {
	if s.Cache != nil {
		var cached []TestItem
		if ok, err := s.Cache.GetJSON(ctx, testsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.Q.ListLabTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lab tests: %w", err)
	}
	items := make([]TestItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, testsCacheKey, items)
	}
	return items, nil
}

// CreateTest inserts a catalog entry and invalidates the listing cache.
func (s *Service) CreateTest(ctx context.Context, in TestInput) (TestItem, error) {
	deptID, price, err := validateInput(in)
	if err != nil {
		return TestItem{}, err
	}
	row, err := s.Q.InsertLabTest(ctx, store.InsertLabTestParams{
		Name:         strings.TrimSpace(in.Name),
		DepartmentID: deptID,
		Price:        price,
	})
	if err != nil {
		return TestItem{}, fmt.Errorf("insert lab test: %w", err)
	}
	s.dropCache(ctx)
	return toItem(row), nil
}

// UpdateTest overwrites a catalog entry and invalidates the listing cache.
func (s *Service) UpdateTest(ctx context.Context, id uuid.UUID, in TestInput) (TestItem, error) {
	deptID, price, err := validateInput(in)
	if err != nil {
		return TestItem{}, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	row, err := s.Q.UpdateLabTest(ctx, store.UpdateLabTestParams{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		DepartmentID: deptID,
		Price:        price,
		Active:       active,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TestItem{}, notFound("lab test not found", err)
		}
		return TestItem{}, fmt.Errorf("update lab test: %w", err)
	}
	s.dropCache(ctx)
	return toItem(row), nil
}

// DeleteTest soft-deletes a catalog entry so historical transactions keep
// their reference.
func (s *Service) DeleteTest(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.DeactivateLabTest(ctx, id); err != nil {
		return fmt.Errorf("deactivate lab test: %w", err)
	}
	s.dropCache(ctx)
	return nil
}

// ListDepartments returns all departments, cached.
func (s *Service) ListDepartments(ctx context.Context) ([]DepartmentItem, error) {
	if s.Cache != nil {
		var cached []DepartmentItem
		if ok, err := s.Cache.GetJSON(ctx, departmentsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.Q.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	items := make([]DepartmentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, DepartmentItem{ID: row.ID.String(), Name: row.Name})
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, departmentsCacheKey, items)
	}
	return items, nil
}

// CreateDepartment inserts a department and invalidates the listing cache.
func (s *Service) CreateDepartment(ctx context.Context, name string) (DepartmentItem, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DepartmentItem{}, badRequest("name", "name is required")
	}
	row, err := s.Q.InsertDepartment(ctx, trimmed)
	if err != nil {
		return DepartmentItem{}, fmt.Errorf("insert department: %w", err)
	}
	s.dropCache(ctx)
	return DepartmentItem{ID: row.ID.String(), Name: row.Name}, nil
}

func (s *Service) dropCache(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	_ = s.Cache.Delete(ctx, testsCacheKey)
	_ = s.Cache.Delete(ctx, departmentsCacheKey)
}

func validateInput(in TestInput) (uuid.UUID, string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return uuid.UUID{}, "", badRequest("name", "name is required")
	}
	deptID, err := uuid.Parse(strings.TrimSpace(in.DepartmentID))
	if err != nil {
		return uuid.UUID{}, "", badRequest("departmentId", "departmentId must be a valid id")
	}
	price, err := money.Parse(in.Price)
	if err != nil {
		return uuid.UUID{}, "", badRequest("price", "price must be a plain decimal amount")
	}
	return deptID, money.Format(price), nil
}

func toItem(row store.LabTest) TestItem {
	return TestItem{
		ID:           row.ID.String(),
		Name:         row.Name,
		DepartmentID: row.DepartmentID.String(),
		Price:        row.Price.StringFixed(2),
		Active:       row.Active,
	}
}

func badRequest(field, message string) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

func notFound(message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		HTTPStatus: http.StatusNotFound,
		Err:        err,
	}
}
