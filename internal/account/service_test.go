package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/Valiantic/purehealth-api/internal/store"
)

type stubQueries struct {
	accounts map[string]store.Account
}

func (s *stubQueries) ListAccounts(ctx context.Context) ([]store.Account, error) { return nil, nil }

func (s *stubQueries) GetAccount(ctx context.Context, id uuid.UUID) (store.Account, error) {
	return store.Account{}, pgx.ErrNoRows
}

func (s *stubQueries) GetAccountByUsername(ctx context.Context, username string) (store.Account, error) {
	a, ok := s.accounts[username]
	if !ok {
		return store.Account{}, pgx.ErrNoRows
	}
	return a, nil
}

func (s *stubQueries) InsertAccount(ctx context.Context, arg store.InsertAccountParams) (store.Account, error) {
	a := store.Account{
		ID:           uuid.New(),
		Username:     arg.Username,
		FullName:     arg.FullName,
		Role:         arg.Role,
		PasswordHash: arg.PasswordHash,
	}
	if s.accounts == nil {
		s.accounts = make(map[string]store.Account)
	}
	s.accounts[a.Username] = a
	return a, nil
}

func (s *stubQueries) UpdateAccount(ctx context.Context, arg store.UpdateAccountParams) (store.Account, error) {
	return store.Account{ID: arg.ID, FullName: arg.FullName, Role: arg.Role}, nil
}

func (s *stubQueries) UpdateAccountPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return nil
}

func (s *stubQueries) DeleteAccount(ctx context.Context, id uuid.UUID) error { return nil }

func TestCreateAndLogin(t *testing.T) {
	svc := &Service{Q: &stubQueries{}}

	created, err := svc.Create(context.Background(), Input{
		Username: "reception1",
		FullName: "Front Desk",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, "staff", created.Role)

	got, err := svc.Login(context.Background(), "reception1", "correct horse")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = svc.Login(context.Background(), "reception1", "wrong password")
	require.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Login(context.Background(), "nobody", "whatever")
	require.ErrorIs(t, err, ErrBadCredentials)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc := &Service{Q: &stubQueries{}}
	_, err := svc.Create(context.Background(), Input{Username: "x", FullName: "Y", Password: "short"})
	require.Error(t, err)
}
