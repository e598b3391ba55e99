package testcatalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Valiantic/purehealth-api/internal/store"
)

type stubProvider struct {
	tests       []store.LabTest
	departments []store.Department
	listCalls   int
}

func (s *stubProvider) ListLabTests(ctx context.Context) ([]store.LabTest, error) {
	s.listCalls++
	return s.tests, nil
}

func (s *stubProvider) InsertLabTest(ctx context.Context, arg store.InsertLabTestParams) (store.LabTest, error) {
	price, _ := decimal.NewFromString(arg.Price)
	row := store.LabTest{ID: uuid.New(), Name: arg.Name, DepartmentID: arg.DepartmentID, Price: price, Active: true}
	s.tests = append(s.tests, row)
	return row, nil
}

func (s *stubProvider) UpdateLabTest(ctx context.Context, arg store.UpdateLabTestParams) (store.LabTest, error) {
	price, _ := decimal.NewFromString(arg.Price)
	return store.LabTest{ID: arg.ID, Name: arg.Name, DepartmentID: arg.DepartmentID, Price: price, Active: arg.Active}, nil
}

func (s *stubProvider) DeactivateLabTest(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubProvider) ListDepartments(ctx context.Context) ([]store.Department, error) {
	return s.departments, nil
}

func (s *stubProvider) InsertDepartment(ctx context.Context, name string) (store.Department, error) {
	row := store.Department{ID: uuid.New(), Name: name}
	s.departments = append(s.departments, row)
	return row, nil
}

func newTestService(t *testing.T) (*Service, *stubProvider) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	stub := &stubProvider{}
	return &Service{Q: stub, Cache: NewCache(client, time.Minute)}, stub
}

func TestListTestsCaches(t *testing.T) {
	svc, stub := newTestService(t)
	deptID := uuid.New()
	stub.tests = []store.LabTest{{ID: uuid.New(), Name: "CBC", DepartmentID: deptID, Price: decimal.NewFromInt(350), Active: true}}

	first, err := svc.ListTests(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "350.00", first[0].Price)

	_, err = svc.ListTests(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stub.listCalls)
}

func TestCreateTestInvalidatesCache(t *testing.T) {
	svc, stub := newTestService(t)
	deptID := uuid.New()

	_, err := svc.ListTests(context.Background())
	require.NoError(t, err)

	_, err = svc.CreateTest(context.Background(), TestInput{Name: "Urinalysis", DepartmentID: deptID.String(), Price: "150"})
	require.NoError(t, err)

	_, err = svc.ListTests(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stub.listCalls)
}

func TestCreateTestRejectsBadPrice(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateTest(context.Background(), TestInput{Name: "CBC", DepartmentID: uuid.NewString(), Price: "1,000"})
	require.Error(t, err)
}

func TestCreateDepartmentRequiresName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateDepartment(context.Background(), "  ")
	require.Error(t, err)
}
