package transaction

import (
	"context"
	"testing"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Valiantic/purehealth-api/internal/billing"
	"github.com/Valiantic/purehealth-api/internal/store"
)

type stubQueries struct {
	labTests map[uuid.UUID]store.LabTest

	transaction    store.Transaction
	details        []store.TestDetail
	inserted       store.Transaction
	insertedLines  []store.InsertTestDetailParams
	updatedHeader  store.UpdateTransactionParams
	updatedLines   []store.UpdateTestDetailParams
	headerUpdated  bool
	listRows       []store.Transaction
	transactionSet bool
}

func (s *stubQueries) GetLabTest(ctx context.Context, id uuid.UUID) (store.LabTest, error) {
	t, ok := s.labTests[id]
	if !ok {
		return store.LabTest{}, pgx.ErrNoRows
	}
	return t, nil
}

func (s *stubQueries) InsertTransaction(ctx context.Context, arg store.InsertTransactionParams) (store.Transaction, error) {
	s.inserted = store.Transaction{
		ID:        uuid.New(),
		MCNo:      arg.MCNo,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		IDType:    arg.IDType,
	}
	return s.inserted, nil
}

func (s *stubQueries) UpdateTransaction(ctx context.Context, arg store.UpdateTransactionParams) (store.Transaction, error) {
	s.updatedHeader = arg
	s.headerUpdated = true
	return s.transaction, nil
}

func (s *stubQueries) GetTransaction(ctx context.Context, id uuid.UUID) (store.Transaction, error) {
	if !s.transactionSet {
		return store.Transaction{}, pgx.ErrNoRows
	}
	return s.transaction, nil
}

func (s *stubQueries) ListTransactions(ctx context.Context, arg store.ListTransactionsParams) ([]store.Transaction, error) {
	return s.listRows, nil
}

func (s *stubQueries) CountTransactions(ctx context.Context) (int64, error) {
	return int64(len(s.listRows)), nil
}

func (s *stubQueries) InsertTestDetail(ctx context.Context, arg store.InsertTestDetailParams) (store.TestDetail, error) {
	s.insertedLines = append(s.insertedLines, arg)
	return store.TestDetail{ID: arg.ID}, nil
}

func (s *stubQueries) ListTestDetails(ctx context.Context, transactionID uuid.UUID) ([]store.TestDetail, error) {
	return s.details, nil
}

func (s *stubQueries) UpdateTestDetail(ctx context.Context, arg store.UpdateTestDetailParams) error {
	s.updatedLines = append(s.updatedLines, arg)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(q Querier) *Service {
	return &Service{
		Q:        q,
		Validate: validator.New(),
		Now:      func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) },
	}
}

func TestCreateAppliesCatalogPriceAndPayments(t *testing.T) {
	testID := uuid.New()
	deptID := uuid.New()
	stub := &stubQueries{labTests: map[uuid.UUID]store.LabTest{
		testID: {ID: testID, Name: "CBC", DepartmentID: deptID, Price: dec("1000"), Active: true},
	}}
	svc := newService(stub)

	cash := "900"
	payload, err := svc.Create(context.Background(), Input{
		MCNo:      "OR-1001",
		FirstName: "Maria",
		LastName:  "Santos",
		Tests:     []LineEdit{{LabTestID: testID.String(), CashAmount: &cash}},
	})
	require.NoError(t, err)
	require.Len(t, payload.TestDetails, 1)
	require.Equal(t, "1000.00", payload.TestDetails[0].DiscountedPrice)
	require.Equal(t, "900.00", payload.TestDetails[0].CashAmount)
	require.Equal(t, "100.00", payload.TestDetails[0].BalanceAmount)
	require.Len(t, stub.insertedLines, 1)
	require.Equal(t, stub.inserted.ID.String(), payload.TransactionID)
}

func TestCreateDefaultsCategoryDiscount(t *testing.T) {
	testID := uuid.New()
	deptID := uuid.New()
	stub := &stubQueries{labTests: map[uuid.UUID]store.LabTest{
		testID: {ID: testID, Name: "Lipid Panel", DepartmentID: deptID, Price: dec("1000"), Active: true},
	}}
	svc := newService(stub)

	payload, err := svc.Create(context.Background(), Input{
		MCNo:      "OR-1002",
		FirstName: "Jose",
		LastName:  "Reyes",
		IDType:    "Senior Citizen",
		IDNumber:  "SC-4412",
		Tests:     []LineEdit{{LabTestID: testID.String()}},
	})
	require.NoError(t, err)
	require.Equal(t, 20, payload.TestDetails[0].DiscountPercent)
	require.Equal(t, "800.00", payload.TestDetails[0].DiscountedPrice)
}

func TestCreateRequiresIDNumberForCategory(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Create(context.Background(), Input{
		MCNo:      "OR-1003",
		FirstName: "Ana",
		LastName:  "Cruz",
		IDType:    "PWD",
		Tests:     []LineEdit{{LabTestID: uuid.NewString()}},
	})
	require.ErrorIs(t, err, ErrIDNumberRequired)
}

func TestCreateRejectsUnknownTest(t *testing.T) {
	svc := newService(&stubQueries{labTests: map[uuid.UUID]store.LabTest{}})
	_, err := svc.Create(context.Background(), Input{
		MCNo:      "OR-1004",
		FirstName: "Ana",
		LastName:  "Cruz",
		Tests:     []LineEdit{{LabTestID: uuid.NewString()}},
	})
	require.ErrorIs(t, err, ErrUnknownTest)
}

func TestCreateRejectsEmptyTests(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Create(context.Background(), Input{
		MCNo:      "OR-1005",
		FirstName: "Ana",
		LastName:  "Cruz",
	})
	require.ErrorIs(t, err, ErrNoTests)
}

func storedTransaction(detailID, deptID uuid.UUID) (store.Transaction, []store.TestDetail) {
	tr := store.Transaction{
		ID:            uuid.New(),
		MCNo:          "OR-2001",
		FirstName:     "Liza",
		LastName:      "Gomez",
		IDType:        "Regular",
		ExcessRefunds: []byte(`{}`),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	details := []store.TestDetail{{
		ID:              detailID,
		TransactionID:   tr.ID,
		TestName:        "Urinalysis",
		DepartmentID:    deptID,
		OriginalPrice:   dec("500"),
		DiscountedPrice: dec("500"),
		CashAmount:      dec("500"),
		Status:          "active",
	}}
	return tr, details
}

func TestUpdateMarksRefundAndSetsRefundDate(t *testing.T) {
	detailID := uuid.New()
	deptID := uuid.New()
	tr, details := storedTransaction(detailID, deptID)
	stub := &stubQueries{transaction: tr, details: details, transactionSet: true}
	svc := newService(stub)

	refund := true
	payload, err := svc.Update(context.Background(), tr.ID, Input{
		MCNo:      tr.MCNo,
		FirstName: tr.FirstName,
		LastName:  tr.LastName,
		Tests:     []LineEdit{{TestDetailID: detailID.String(), Refund: &refund}},
	})
	require.NoError(t, err)
	require.True(t, payload.IsRefundProcessing)
	require.Equal(t, "2026-03-14T09:00:00Z", payload.RefundDate)
	require.Equal(t, "0.00", payload.TestDetails[0].DiscountedPrice)
	require.Equal(t, deptID.String(), payload.TestDetails[0].DepartmentID)
	require.Equal(t, "500.00", payload.DepartmentRefunds[deptID.String()])
	require.True(t, stub.headerUpdated)
	require.Equal(t, "refunded", stub.updatedLines[0].Status)
}

func TestUpdateRefusesRefundWithBalance(t *testing.T) {
	detailID := uuid.New()
	deptID := uuid.New()
	tr, details := storedTransaction(detailID, deptID)
	details[0].CashAmount = dec("200")
	details[0].BalanceAmount = dec("300")
	stub := &stubQueries{transaction: tr, details: details, transactionSet: true}
	svc := newService(stub)

	refund := true
	_, err := svc.Update(context.Background(), tr.ID, Input{
		MCNo:      tr.MCNo,
		FirstName: tr.FirstName,
		LastName:  tr.LastName,
		Tests:     []LineEdit{{TestDetailID: detailID.String(), Refund: &refund}},
	})
	require.ErrorIs(t, err, billing.ErrLineHasBalance)
}

func TestUpdateTracksExcessOnDirectPriceEdit(t *testing.T) {
	detailID := uuid.New()
	deptID := uuid.New()
	tr, details := storedTransaction(detailID, deptID)
	stub := &stubQueries{transaction: tr, details: details, transactionSet: true}
	svc := newService(stub)

	price := "300"
	payload, err := svc.Update(context.Background(), tr.ID, Input{
		MCNo:      tr.MCNo,
		FirstName: tr.FirstName,
		LastName:  tr.LastName,
		Tests:     []LineEdit{{TestDetailID: detailID.String(), DiscountedPrice: &price}},
	})
	require.NoError(t, err)
	require.Equal(t, "200.00", payload.ExcessRefunds[billing.ExcessKey(detailID.String())])
}

func TestUpdateNotFound(t *testing.T) {
	svc := newService(&stubQueries{})
	_, err := svc.Update(context.Background(), uuid.New(), Input{
		MCNo:      "OR-1",
		FirstName: "A",
		LastName:  "B",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetProjectsStoredState(t *testing.T) {
	detailID := uuid.New()
	deptID := uuid.New()
	tr, details := storedTransaction(detailID, deptID)
	refundDate := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	tr.IsRefundProcessing = true
	tr.RefundDate = &refundDate
	stub := &stubQueries{transaction: tr, details: details, transactionSet: true}
	svc := newService(stub)

	view, err := svc.Get(context.Background(), tr.ID)
	require.NoError(t, err)
	require.True(t, view.IsRefundProcessing)
	require.Equal(t, "2026-02-01T08:00:00Z", view.RefundDate)
	require.Equal(t, tr.ID.String(), view.TransactionID)
}

func TestListSurfacesExcessRefundTotal(t *testing.T) {
	stub := &stubQueries{listRows: []store.Transaction{{
		ID:            uuid.New(),
		MCNo:          "OR-3001",
		FirstName:     "Nina",
		LastName:      "Torres",
		IDType:        "Regular",
		TotalAmount:   dec("640"),
		TotalCash:     dec("640"),
		ExcessRefunds: []byte(`{"test-abc":"50.00","test-def":"25.50"}`),
		CreatedAt:     time.Now(),
	}}}
	svc := newService(stub)

	out, err := svc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.Equal(t, "75.50", out.Items[0].ExcessRefundTotal)
	require.Equal(t, int64(1), out.Total)
}
