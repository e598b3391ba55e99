package billing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/money"
)

// categoryDefaultPercent is the mandated discount for PWD and senior citizen
// patients, applied once when a draft opens to lines without a discount.
const categoryDefaultPercent = 20

var oneHundred = decimal.NewFromInt(100)

// DiscountedPrice applies a percentage discount to a list price, rounded to
// two decimal places. Percentages are clamped to [0, 100] so the result never
// exceeds the original price or drops below zero.
func DiscountedPrice(original decimal.Decimal, percent int) decimal.Decimal {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	factor := oneHundred.Sub(decimal.NewFromInt(int64(percent))).Div(oneHundred)
	return money.Round(original.Mul(factor))
}

// ParsePercent converts user-entered percentage text into an integer.
// Non-numeric input is treated as zero; values above 100 are rejected so the
// edit can be refused with a warning instead of silently clamped.
func ParsePercent(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, nil
	}
	if v < 0 {
		return 0, nil
	}
	if v > 100 {
		return 0, ErrDiscountOutOfRange
	}
	return v, nil
}

// CategoryPercent maps a patient ID type to its mandated transaction-level
// discount percentage. Matching is case-insensitive and ignores surrounding
// whitespace.
func CategoryPercent(idType string) int {
	switch strings.ToLower(strings.TrimSpace(idType)) {
	case "person with disability", "pwd", "senior citizen":
		return categoryDefaultPercent
	default:
		return 0
	}
}
