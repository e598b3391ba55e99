package referrer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/store"
)

type queryProvider interface {
	ListReferrers(ctx context.Context) ([]store.Referrer, error)
	GetReferrer(ctx context.Context, id uuid.UUID) (store.Referrer, error)
	InsertReferrer(ctx context.Context, arg store.InsertReferrerParams) (store.Referrer, error)
	UpdateReferrer(ctx context.Context, arg store.UpdateReferrerParams) (store.Referrer, error)
	DeleteReferrer(ctx context.Context, id uuid.UUID) error
}

// Item is the public shape of one referrer.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Clinic string `json:"clinic,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Input carries the editable fields of a referrer.
type Input struct {
	Name   string `json:"name"`
	Clinic string `json:"clinic,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Service manages the referring doctors and clinics attached to transactions.
type Service struct {
	Q queryProvider
}

// List returns all referrers.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	rows, err := s.Q.ListReferrers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referrers: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return items, nil
}

// Get returns one referrer.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Item, error) {
	row, err := s.Q.GetReferrer(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(err)
		}
		return Item{}, fmt.Errorf("get referrer: %w", err)
	}
	return toItem(row), nil
}

// Create inserts a referrer.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Item{}, badRequest("name is required")
	}
	row, err := s.Q.InsertReferrer(ctx, store.InsertReferrerParams{
		Name:   strings.TrimSpace(in.Name),
		Clinic: strings.TrimSpace(in.Clinic),
		Phone:  strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return Item{}, fmt.Errorf("insert referrer: %w", err)
	}
	return toItem(row), nil
}

// Update overwrites a referrer.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Item{}, badRequest("name is required")
	}
	row, err := s.Q.UpdateReferrer(ctx, store.UpdateReferrerParams{
		ID:     id,
		Name:   strings.TrimSpace(in.Name),
		Clinic: strings.TrimSpace(in.Clinic),
		Phone:  strings.TrimSpace(in.Phone),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(err)
		}
		return Item{}, fmt.Errorf("update referrer: %w", err)
	}
	return toItem(row), nil
}

// Delete removes a referrer; transactions that referenced it keep a null
// referrer.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.DeleteReferrer(ctx, id); err != nil {
		return fmt.Errorf("delete referrer: %w", err)
	}
	return nil
}

func toItem(row store.Referrer) Item {
	return Item{ID: row.ID.String(), Name: row.Name, Clinic: row.Clinic, Phone: row.Phone}
}

func badRequest(message string) *common.AppError {
	return &common.AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: http.StatusBadRequest}
}

func notFound(err error) *common.AppError {
	return &common.AppError{Code: "NOT_FOUND", Message: "referrer not found", HTTPStatus: http.StatusNotFound, Err: err}
}
