package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/common"
	"github.com/Valiantic/purehealth-api/internal/store"
)

type queryProvider interface {
	DailySummary(ctx context.Context, arg store.DailySummaryParams) (store.DailySummaryRow, error)
	SumExpenses(ctx context.Context, arg store.SumExpensesParams) (string, error)
	ListExcessRefunds(ctx context.Context, limit int32) (map[uuid.UUID][]byte, error)
}

// excessScanLimit bounds how many recent transactions are inspected for
// outstanding excess-refund entries.
const excessScanLimit = 500

// DailySummary is the end-of-day reconciliation view: collected payments,
// refunds at original list price, expenses, and the resulting net.
type DailySummary struct {
	Date         string `json:"date"`
	Transactions int64  `json:"transactions"`
	TotalCash    string `json:"totalCash"`
	TotalGCash   string `json:"totalGCash"`
	TotalBalance string `json:"totalBalance"`
	TotalRevenue string `json:"totalRevenue"`
	RefundCount  int64  `json:"refundCount"`
	RefundAmount string `json:"refundAmount"`
	Expenses     string `json:"expenses"`
	Net          string `json:"net"`
	// PendingExcessRefunds is money collected beyond discounted prices that has
	// not been returned yet, across recent transactions.
	PendingExcessRefunds string `json:"pendingExcessRefunds"`
}

// Service assembles the cached daily summary.
type Service struct {
	Q     queryProvider
	Redis *redis.Client
	TTL   time.Duration
}

// Daily returns the summary for one calendar day, serving from cache when
// fresh. An empty date means today (UTC).
func (s *Service) Daily(ctx context.Context, date string) (DailySummary, error) {
	day, err := parseDay(date)
	if err != nil {
		return DailySummary{}, err
	}
	key := cacheKey(day)
	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, key).Bytes(); err == nil {
			var cached DailySummary
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}
	summary, err := s.compute(ctx, day)
	if err != nil {
		return DailySummary{}, err
	}
	if s.Redis != nil {
		if raw, err := json.Marshal(summary); err == nil {
			_ = s.Redis.Set(ctx, key, raw, s.TTL).Err()
		}
	}
	return summary, nil
}

// Refresh recomputes and re-caches one day's summary. Workers call this when
// a save lands.
func (s *Service) Refresh(ctx context.Context, day time.Time) error {
	summary, err := s.compute(ctx, day)
	if err != nil {
		return err
	}
	if s.Redis != nil {
		raw, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		return s.Redis.Set(ctx, cacheKey(day), raw, s.TTL).Err()
	}
	return nil
}

func (s *Service) compute(ctx context.Context, day time.Time) (DailySummary, error) {
	from := day
	to := day.Add(24 * time.Hour)
	row, err := s.Q.DailySummary(ctx, store.DailySummaryParams{From: from, To: to})
	if err != nil {
		return DailySummary{}, fmt.Errorf("daily summary: %w", err)
	}
	expensesRaw, err := s.Q.SumExpenses(ctx, store.SumExpensesParams{From: from, To: day})
	if err != nil {
		return DailySummary{}, fmt.Errorf("sum expenses: %w", err)
	}
	expenses, err := decimal.NewFromString(expensesRaw)
	if err != nil {
		expenses = decimal.Zero
	}
	pending, err := s.pendingExcess(ctx)
	if err != nil {
		return DailySummary{}, fmt.Errorf("pending excess refunds: %w", err)
	}
	net := row.TotalRevenue.Sub(row.RefundAmount).Sub(expenses)
	return DailySummary{
		Date:                 day.Format("2006-01-02"),
		Transactions:         row.Transactions,
		TotalCash:            row.TotalCash.StringFixed(2),
		TotalGCash:           row.TotalGCash.StringFixed(2),
		TotalBalance:         row.TotalBalance.StringFixed(2),
		TotalRevenue:         row.TotalRevenue.StringFixed(2),
		RefundCount:          row.RefundCount,
		RefundAmount:         row.RefundAmount.StringFixed(2),
		Expenses:             expenses.StringFixed(2),
		Net:                  net.StringFixed(2),
		PendingExcessRefunds: pending.StringFixed(2),
	}, nil
}

func (s *Service) pendingExcess(ctx context.Context) (decimal.Decimal, error) {
	entries, err := s.Q.ListExcessRefunds(ctx, excessScanLimit)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, raw := range entries {
		var amounts map[string]string
		if json.Unmarshal(raw, &amounts) != nil {
			continue
		}
		for _, v := range amounts {
			amount, err := decimal.NewFromString(v)
			if err != nil {
				continue
			}
			total = total.Add(amount)
		}
	}
	return total, nil
}

func parseDay(date string) (time.Time, error) {
	trimmed := strings.TrimSpace(date)
	if trimmed == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "date must be YYYY-MM-DD",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
		}
	}
	return day, nil
}

func cacheKey(day time.Time) string {
	return "report:daily:" + day.Format("2006-01-02")
}
