package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/billing"
	"github.com/Valiantic/purehealth-api/internal/obs"
	"github.com/Valiantic/purehealth-api/internal/queue"
	"github.com/Valiantic/purehealth-api/internal/store"
)

var (
	// ErrNotFound indicates the referenced transaction does not exist.
	ErrNotFound = errors.New("transaction: not found")
	// ErrUnknownTest indicates a line references a lab test that is not in the catalog.
	ErrUnknownTest = errors.New("transaction: unknown lab test")
	// ErrIDNumberRequired is returned when a discount-category patient has no ID number.
	ErrIDNumberRequired = errors.New("transaction: id number is required for discount category")
	// ErrNoTests is returned when a create request carries no test lines.
	ErrNoTests = errors.New("transaction: at least one test is required")
)

// Querier captures the database methods required by the transaction service.
type Querier interface {
	GetLabTest(ctx context.Context, id uuid.UUID) (store.LabTest, error)
	InsertTransaction(ctx context.Context, arg store.InsertTransactionParams) (store.Transaction, error)
	UpdateTransaction(ctx context.Context, arg store.UpdateTransactionParams) (store.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (store.Transaction, error)
	ListTransactions(ctx context.Context, arg store.ListTransactionsParams) ([]store.Transaction, error)
	CountTransactions(ctx context.Context) (int64, error)
	InsertTestDetail(ctx context.Context, arg store.InsertTestDetailParams) (store.TestDetail, error)
	ListTestDetails(ctx context.Context, transactionID uuid.UUID) ([]store.TestDetail, error)
	UpdateTestDetail(ctx context.Context, arg store.UpdateTestDetailParams) error
}

// LineEdit carries the user-entered values for one test line. All monetary
// fields travel as raw text so the calculation engine owns parsing.
type LineEdit struct {
	TestDetailID    string  `json:"testDetailId,omitempty"`
	LabTestID       string  `json:"labTestId,omitempty" validate:"omitempty,uuid"`
	DiscountPercent *string `json:"discountPercentage,omitempty"`
	DiscountedPrice *string `json:"discountedPrice,omitempty"`
	CashAmount      *string `json:"cashAmount,omitempty"`
	GCashAmount     *string `json:"gCashAmount,omitempty"`
	Refund          *bool   `json:"refund,omitempty"`
}

// Input is the request body for creating or updating a transaction.
type Input struct {
	MCNo       string     `json:"mcNo" validate:"required"`
	FirstName  string     `json:"firstName" validate:"required"`
	LastName   string     `json:"lastName" validate:"required"`
	ReferrerID string     `json:"referrerId,omitempty" validate:"omitempty,uuid"`
	BirthDate  string     `json:"birthDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Sex        string     `json:"sex,omitempty"`
	IDType     string     `json:"idType,omitempty"`
	IDNumber   string     `json:"idNumber,omitempty"`
	UserID     string     `json:"userId,omitempty" validate:"omitempty,uuid"`
	Tests      []LineEdit `json:"tests" validate:"dive"`
}

// View is the read model of a stored transaction.
type View struct {
	billing.SavePayload
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListItem is one row of the transaction listing.
type ListItem struct {
	TransactionID      string    `json:"transactionId"`
	MCNo               string    `json:"mcNo"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	IDType             string    `json:"idType"`
	TotalAmount        float64   `json:"totalAmount"`
	TotalCashAmount    string    `json:"totalCashAmount"`
	TotalGCashAmount   string    `json:"totalGCashAmount"`
	TotalBalanceAmount string    `json:"totalBalanceAmount"`
	IsRefundProcessing bool      `json:"isRefundProcessing"`
	RefundDate         string    `json:"refundDate,omitempty"`
	ExcessRefundTotal  string    `json:"excessRefundTotal"`
	CreatedAt          time.Time `json:"createdAt"`
}

// ListOutput pages transaction rows.
type ListOutput struct {
	Items   []ListItem `json:"items"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"perPage"`
}

// Service persists transactions, routing every monetary edit through the
// billing draft so stored amounts are always normalized.
type Service struct {
	Q        Querier
	Pool     *pgxpool.Pool
	Validate *validator.Validate
	Policy   billing.Policy
	Tasks    *queue.Enqueuer
	Now      func() time.Time
}

// Create persists a new transaction from catalog prices and user-entered
// discounts and payments.
func (s *Service) Create(ctx context.Context, in Input) (billing.SavePayload, error) {
	if s == nil || s.Q == nil {
		return billing.SavePayload{}, errors.New("transaction service not configured")
	}
	if err := s.validate(in); err != nil {
		return billing.SavePayload{}, err
	}
	if len(in.Tests) == 0 {
		return billing.SavePayload{}, ErrNoTests
	}

	q, tx, err := s.begin(ctx)
	if err != nil {
		return billing.SavePayload{}, err
	}
	defer rollback(ctx, tx)

	lines := make([]billing.Line, 0, len(in.Tests))
	for _, t := range in.Tests {
		testID, err := uuid.Parse(strings.TrimSpace(t.LabTestID))
		if err != nil {
			return billing.SavePayload{}, ErrUnknownTest
		}
		labTest, err := q.GetLabTest(ctx, testID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return billing.SavePayload{}, ErrUnknownTest
			}
			return billing.SavePayload{}, err
		}
		lines = append(lines, billing.Line{
			TestDetailID:    uuid.NewString(),
			TestName:        labTest.Name,
			DepartmentID:    labTest.DepartmentID.String(),
			OriginalPrice:   labTest.Price,
			DiscountedPrice: labTest.Price,
			Balance:         labTest.Price,
			Status:          billing.StatusActive,
		})
	}

	draft := billing.NewDraft(in.IDType, lines, nil, s.policy())
	draft.Now = s.Now
	working := draft.Lines()
	for i, t := range in.Tests {
		if err := applyEdit(draft, working[i].TestDetailID, t); err != nil {
			return billing.SavePayload{}, err
		}
	}

	payload := draft.Payload(metaFromInput(in, ""))
	excessJSON, err := json.Marshal(payload.ExcessRefunds)
	if err != nil {
		return billing.SavePayload{}, err
	}
	tr, err := q.InsertTransaction(ctx, store.InsertTransactionParams{
		MCNo:                strings.TrimSpace(in.MCNo),
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		ReferrerID:          parseNullUUID(in.ReferrerID),
		BirthDate:           parseDate(in.BirthDate),
		Sex:                 in.Sex,
		IDType:              valueOrDefault(in.IDType, "Regular"),
		IDNumber:            in.IDNumber,
		UserID:              parseNullUUID(in.UserID),
		TotalAmount:         formatFloat(payload.TotalAmount),
		TotalDiscountAmount: formatFloat(payload.TotalDiscountAmount),
		TotalCash:           payload.TotalCashAmount,
		TotalGCash:          payload.TotalGCashAmount,
		TotalBalance:        payload.TotalBalanceAmount,
		ExcessRefunds:       excessJSON,
	})
	if err != nil {
		return billing.SavePayload{}, s.saveResult("create", err)
	}
	for i, detail := range payload.TestDetails {
		labTestID, _ := uuid.Parse(in.Tests[i].LabTestID)
		if _, err := q.InsertTestDetail(ctx, store.InsertTestDetailParams{
			ID:              uuid.MustParse(detail.TestDetailID),
			TransactionID:   tr.ID,
			LabTestID:       uuid.NullUUID{UUID: labTestID, Valid: true},
			TestName:        working[i].TestName,
			DepartmentID:    uuid.MustParse(detail.DepartmentID),
			OriginalPrice:   detail.OriginalPrice,
			DiscountPercent: int32(detail.DiscountPercent),
			DiscountedPrice: detail.DiscountedPrice,
			CashAmount:      detail.CashAmount,
			GCashAmount:     detail.GCashAmount,
			BalanceAmount:   detail.BalanceAmount,
			Status:          string(detail.Status),
		}); err != nil {
			return billing.SavePayload{}, s.saveResult("create", err)
		}
	}
	if err := commit(ctx, tx); err != nil {
		return billing.SavePayload{}, s.saveResult("create", err)
	}

	payload.TransactionID = tr.ID.String()
	s.afterSave(ctx, "create", payload)
	return payload, nil
}

// Update reloads a stored transaction into a draft, applies the submitted
// edits and refund selections, and persists the normalized result.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (billing.SavePayload, error) {
	if s == nil || s.Q == nil {
		return billing.SavePayload{}, errors.New("transaction service not configured")
	}
	if err := s.validate(in); err != nil {
		return billing.SavePayload{}, err
	}

	q, tx, err := s.begin(ctx)
	if err != nil {
		return billing.SavePayload{}, err
	}
	defer rollback(ctx, tx)

	tr, err := q.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.SavePayload{}, ErrNotFound
		}
		return billing.SavePayload{}, err
	}
	details, err := q.ListTestDetails(ctx, id)
	if err != nil {
		return billing.SavePayload{}, err
	}

	idType := valueOrDefault(in.IDType, tr.IDType)
	draft := billing.NewDraft(idType, linesFromDetails(details), decodeExcess(tr.ExcessRefunds), s.policy())
	draft.Now = s.Now
	draft.EnterRefundMode()
	for _, t := range in.Tests {
		if err := applyEdit(draft, t.TestDetailID, t); err != nil {
			return billing.SavePayload{}, err
		}
	}

	payload := draft.Payload(metaFromInput(in, id.String()))
	excessJSON, err := json.Marshal(payload.ExcessRefunds)
	if err != nil {
		return billing.SavePayload{}, err
	}
	var refundDate *time.Time
	if payload.RefundDate != "" {
		if parsed, err := time.Parse(time.RFC3339, payload.RefundDate); err == nil {
			refundDate = &parsed
		}
	}
	if _, err := q.UpdateTransaction(ctx, store.UpdateTransactionParams{
		ID:                  id,
		MCNo:                strings.TrimSpace(in.MCNo),
		FirstName:           strings.TrimSpace(in.FirstName),
		LastName:            strings.TrimSpace(in.LastName),
		ReferrerID:          parseNullUUID(in.ReferrerID),
		BirthDate:           parseDate(in.BirthDate),
		Sex:                 in.Sex,
		IDType:              idType,
		IDNumber:            in.IDNumber,
		UserID:              parseNullUUID(in.UserID),
		TotalAmount:         formatFloat(payload.TotalAmount),
		TotalDiscountAmount: formatFloat(payload.TotalDiscountAmount),
		TotalCash:           payload.TotalCashAmount,
		TotalGCash:          payload.TotalGCashAmount,
		TotalBalance:        payload.TotalBalanceAmount,
		ExcessRefunds:       excessJSON,
		IsRefundProcessing:  payload.IsRefundProcessing,
		RefundDate:          refundDate,
	}); err != nil {
		return billing.SavePayload{}, s.saveResult("update", err)
	}
	for _, detail := range payload.TestDetails {
		detailID, err := uuid.Parse(detail.TestDetailID)
		if err != nil {
			return billing.SavePayload{}, billing.ErrLineNotFound
		}
		if err := q.UpdateTestDetail(ctx, store.UpdateTestDetailParams{
			ID:              detailID,
			DiscountPercent: int32(detail.DiscountPercent),
			DiscountedPrice: detail.DiscountedPrice,
			CashAmount:      detail.CashAmount,
			GCashAmount:     detail.GCashAmount,
			BalanceAmount:   detail.BalanceAmount,
			Status:          string(detail.Status),
		}); err != nil {
			return billing.SavePayload{}, s.saveResult("update", err)
		}
	}
	if err := commit(ctx, tx); err != nil {
		return billing.SavePayload{}, s.saveResult("update", err)
	}

	s.afterSave(ctx, "update", payload)
	return payload, nil
}

// Get projects a stored transaction through a fresh draft so the response
// carries the same normalized shape as a save payload.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("transaction service not configured")
	}
	tr, err := s.Q.GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrNotFound
		}
		return View{}, err
	}
	details, err := s.Q.ListTestDetails(ctx, id)
	if err != nil {
		return View{}, err
	}
	draft := billing.NewDraft(tr.IDType, linesFromDetails(details), decodeExcess(tr.ExcessRefunds), s.policy())
	draft.Now = s.Now
	payload := draft.Payload(metaFromTransaction(tr))
	payload.IsRefundProcessing = tr.IsRefundProcessing
	if tr.RefundDate != nil {
		payload.RefundDate = tr.RefundDate.UTC().Format(time.RFC3339)
	} else {
		payload.RefundDate = ""
	}
	return View{SavePayload: payload, CreatedAt: tr.CreatedAt, UpdatedAt: tr.UpdatedAt}, nil
}

// List returns a page of transaction headers, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) (ListOutput, error) {
	if s == nil || s.Q == nil {
		return ListOutput{}, errors.New("transaction service not configured")
	}
	rows, err := s.Q.ListTransactions(ctx, store.ListTransactionsParams{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	})
	if err != nil {
		return ListOutput{}, err
	}
	total, err := s.Q.CountTransactions(ctx)
	if err != nil {
		return ListOutput{}, err
	}
	items := make([]ListItem, 0, len(rows))
	for _, tr := range rows {
		item := ListItem{
			TransactionID:      tr.ID.String(),
			MCNo:               tr.MCNo,
			FirstName:          tr.FirstName,
			LastName:           tr.LastName,
			IDType:             tr.IDType,
			TotalAmount:        tr.TotalAmount.InexactFloat64(),
			TotalCashAmount:    tr.TotalCash.StringFixed(2),
			TotalGCashAmount:   tr.TotalGCash.StringFixed(2),
			TotalBalanceAmount: tr.TotalBalance.StringFixed(2),
			IsRefundProcessing: tr.IsRefundProcessing,
			ExcessRefundTotal:  sumExcess(tr.ExcessRefunds).StringFixed(2),
			CreatedAt:          tr.CreatedAt,
		}
		if tr.RefundDate != nil {
			item.RefundDate = tr.RefundDate.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return ListOutput{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// applyEdit routes one line's submitted values through the draft in a fixed
// order: discount first, then direct price, then payments, then the refund
// flag so selection sees the settled balance.
func applyEdit(d *billing.Draft, testDetailID string, t LineEdit) error {
	if t.DiscountPercent != nil {
		if err := d.SetDiscountPercent(testDetailID, *t.DiscountPercent); err != nil {
			return err
		}
	}
	if t.DiscountedPrice != nil {
		if err := d.SetDiscountedPrice(testDetailID, *t.DiscountedPrice); err != nil {
			return err
		}
	}
	if t.CashAmount != nil {
		if err := d.SetPayment(testDetailID, billing.FieldCash, *t.CashAmount); err != nil {
			return err
		}
	}
	if t.GCashAmount != nil {
		if err := d.SetPayment(testDetailID, billing.FieldGCash, *t.GCashAmount); err != nil {
			return err
		}
	}
	if t.Refund != nil {
		if *t.Refund {
			return d.SelectRefund(testDetailID)
		}
		return d.DeselectRefund(testDetailID)
	}
	return nil
}

func (s *Service) validate(in Input) error {
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			return err
		}
	}
	if billing.CategoryPercent(in.IDType) > 0 && strings.TrimSpace(in.IDNumber) == "" {
		return ErrIDNumberRequired
	}
	return nil
}

func (s *Service) policy() billing.Policy {
	if s.Policy == "" {
		return billing.PolicyCap
	}
	return s.Policy
}

func (s *Service) begin(ctx context.Context) (Querier, pgx.Tx, error) {
	if s.Pool == nil {
		return s.Q, nil, nil
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, err
	}
	if sq, ok := s.Q.(*store.Queries); ok {
		return sq.WithTx(tx), tx, nil
	}
	return s.Q, tx, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if tx != nil {
		_ = tx.Rollback(ctx)
	}
}

func commit(ctx context.Context, tx pgx.Tx) error {
	if tx == nil {
		return nil
	}
	return tx.Commit(ctx)
}

func (s *Service) saveResult(op string, err error) error {
	if obs.TransactionSaveTotal != nil {
		obs.TransactionSaveTotal.WithLabelValues(op, "error").Inc()
	}
	return err
}

func (s *Service) afterSave(ctx context.Context, op string, payload billing.SavePayload) {
	if obs.TransactionSaveTotal != nil {
		obs.TransactionSaveTotal.WithLabelValues(op, "ok").Inc()
	}
	if obs.RefundProcessedTotal != nil {
		for _, d := range payload.TestDetails {
			if d.IsRefunded {
				obs.RefundProcessedTotal.Inc()
			}
		}
	}
	if obs.ExcessRefundTotal != nil && len(payload.ExcessRefunds) > 0 {
		obs.ExcessRefundTotal.Inc()
	}
	_ = s.Tasks.RefreshReport(ctx, s.nowTime())
}

func (s *Service) nowTime() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func linesFromDetails(details []store.TestDetail) []billing.Line {
	lines := make([]billing.Line, 0, len(details))
	for _, d := range details {
		lines = append(lines, billing.Line{
			TestDetailID:    d.ID.String(),
			TestName:        d.TestName,
			DepartmentID:    d.DepartmentID.String(),
			OriginalPrice:   d.OriginalPrice,
			DiscountPercent: int(d.DiscountPercent),
			DiscountedPrice: d.DiscountedPrice,
			Cash:            d.CashAmount,
			GCash:           d.GCashAmount,
			Balance:         d.BalanceAmount,
			Status:          billing.Status(d.Status),
		})
	}
	return lines
}

func decodeExcess(raw []byte) map[string]decimal.Decimal {
	if len(raw) == 0 {
		return nil
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(entries))
	for k, v := range entries {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			continue
		}
		out[k] = amount
	}
	return out
}

func sumExcess(raw []byte) decimal.Decimal {
	total := decimal.Zero
	for _, v := range decodeExcess(raw) {
		total = total.Add(v)
	}
	return total
}

func metaFromInput(in Input, transactionID string) billing.Meta {
	return billing.Meta{
		TransactionID: transactionID,
		MCNo:          strings.TrimSpace(in.MCNo),
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		ReferrerID:    in.ReferrerID,
		BirthDate:     in.BirthDate,
		Sex:           in.Sex,
		IDType:        valueOrDefault(in.IDType, "Regular"),
		IDNumber:      in.IDNumber,
		UserID:        in.UserID,
	}
}

func metaFromTransaction(tr store.Transaction) billing.Meta {
	meta := billing.Meta{
		TransactionID: tr.ID.String(),
		MCNo:          tr.MCNo,
		FirstName:     tr.FirstName,
		LastName:      tr.LastName,
		Sex:           tr.Sex,
		IDType:        tr.IDType,
		IDNumber:      tr.IDNumber,
	}
	if tr.ReferrerID.Valid {
		meta.ReferrerID = tr.ReferrerID.UUID.String()
	}
	if tr.UserID.Valid {
		meta.UserID = tr.UserID.UUID.String()
	}
	if tr.BirthDate != nil {
		meta.BirthDate = tr.BirthDate.Format("2006-01-02")
	}
	return meta
}

func parseNullUUID(raw string) uuid.NullUUID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return uuid.NullUUID{}
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: parsed, Valid: true}
}

func parseDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil
	}
	return &parsed
}

func valueOrDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func formatFloat(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
