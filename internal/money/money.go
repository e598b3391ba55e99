package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern accepts plain decimal input: digits with an optional point and
// up to two fractional digits.
var amountPattern = regexp.MustCompile(`^\d+(\.\d{0,2})?$`)

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Parse converts user-entered amount text into a decimal rounded to two
// places. Input that does not match the accepted pattern is rejected.
func Parse(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if !amountPattern.MatchString(trimmed) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return Round(d), nil
}

// Round normalizes an amount to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount as a string fixed to two decimal places, the wire
// representation used for all monetary fields.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Max returns the larger of two amounts.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// ClampNonNegative floors an amount at zero.
func ClampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
