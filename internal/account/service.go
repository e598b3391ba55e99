package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/store"
)

// ErrBadCredentials is returned for unknown usernames and wrong passwords alike.
var ErrBadCredentials = errors.New("account: invalid credentials")

type queryProvider interface {
	ListAccounts(ctx context.Context) ([]store.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (store.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (store.Account, error)
	InsertAccount(ctx context.Context, arg store.InsertAccountParams) (store.Account, error)
	UpdateAccount(ctx context.Context, arg store.UpdateAccountParams) (store.Account, error)
	UpdateAccountPassword(ctx context.Context, id uuid.UUID, hash string) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Item is the public shape of one staff account. The password hash never
// leaves the service.
type Item struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// Input carries a new staff account.
type Input struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password"`
}

// Service manages dashboard staff accounts with argon2id password hashing.
type Service struct {
	Q queryProvider
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	rows, err := s.Q.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	return items, nil
}

// Create hashes the password and inserts the account.
func (s *Service) Create(ctx context.Context, in Input) (Item, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return Item{}, badRequest("username is required")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return Item{}, badRequest("fullName is required")
	}
	if len(in.Password) < 8 {
		return Item{}, badRequest("password must be at least 8 characters")
	}
	hash, err := argon2id.CreateHash(in.Password, argon2id.DefaultParams)
	if err != nil {
		return Item{}, fmt.Errorf("hash password: %w", err)
	}
	row, err := s.Q.InsertAccount(ctx, store.InsertAccountParams{
		Username:     username,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         valueOrDefault(in.Role, "staff"),
		PasswordHash: hash,
	})
	if err != nil {
		return Item{}, fmt.Errorf("insert account: %w", err)
	}
	return toItem(row), nil
}

// Update overwrites an account's profile fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, fullName, role string) (Item, error) {
	if strings.TrimSpace(fullName) == "" {
		return Item{}, badRequest("fullName is required")
	}
	row, err := s.Q.UpdateAccount(ctx, store.UpdateAccountParams{
		ID:       id,
		FullName: strings.TrimSpace(fullName),
		Role:     valueOrDefault(role, "staff"),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, notFound(err)
		}
		return Item{}, fmt.Errorf("update account: %w", err)
	}
	return toItem(row), nil
}

// ChangePassword replaces an account's password hash.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < 8 {
		return badRequest("password must be at least 8 characters")
	}
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Q.UpdateAccountPassword(ctx, id, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Q.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// Login verifies a username/password pair and returns the account profile.
func (s *Service) Login(ctx context.Context, username, password string) (Item, error) {
	row, err := s.Q.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrBadCredentials
		}
		return Item{}, fmt.Errorf("get account: %w", err)
	}
	match, err := argon2id.ComparePasswordAndHash(password, row.PasswordHash)
	if err != nil {
		return Item{}, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		return Item{}, ErrBadCredentials
	}
	return toItem(row), nil
}

func toItem(row store.Account) Item {
	return Item{ID: row.ID.String(), Username: row.Username, FullName: row.FullName, Role: row.Role}
}

func valueOrDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func badRequest(message string) *common.AppError {
	return &common.AppError{Code: "BAD_REQUEST", Message: message, HTTPStatus: http.StatusBadRequest}
}

func notFound(err error) *common.AppError {
	return &common.AppError{Code: "NOT_FOUND", Message: "account not found", HTTPStatus: http.StatusNotFound, Err: err}
}
