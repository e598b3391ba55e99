package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDiscountedPrice(t *testing.T) {
	got := DiscountedPrice(decimal.NewFromInt(1000), 20)
	if got.StringFixed(2) != "800.00" {
		t.Fatalf("expected 800.00, got %s", got.StringFixed(2))
	}
}

func TestDiscountedPriceBounds(t *testing.T) {
	prices := []int64{0, 1, 99, 1000, 123456}
	percents := []int{0, 1, 20, 50, 99, 100, -5, 250}
	for _, p := range prices {
		original := decimal.NewFromInt(p)
		for _, pct := range percents {
			got := DiscountedPrice(original, pct)
			if got.IsNegative() {
				t.Fatalf("price %d pct %d: negative result %s", p, pct, got)
			}
			if got.GreaterThan(original) {
				t.Fatalf("price %d pct %d: result %s exceeds original", p, pct, got)
			}
		}
	}
}

func TestDiscountedPriceRounding(t *testing.T) {
	got := DiscountedPrice(decimal.RequireFromString("99.99"), 33)
	if got.Exponent() < -2 {
		t.Fatalf("expected at most 2 decimal places, got %s", got)
	}
}

func TestParsePercent(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		err  bool
	}{
		{"20", 20, false},
		{"0", 0, false},
		{"100", 100, false},
		{"", 0, false},
		{"abc", 0, false},
		{"-3", 0, false},
		{"101", 0, true},
	}
	for _, tc := range cases {
		got, err := ParsePercent(tc.raw)
		if tc.err {
			if err == nil {
				t.Fatalf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.raw, tc.want, got)
		}
	}
}

func TestCategoryPercent(t *testing.T) {
	if CategoryPercent("  Senior Citizen ") != 20 {
		t.Fatal("senior citizen should carry 20 percent")
	}
	if CategoryPercent("PERSON WITH DISABILITY") != 20 {
		t.Fatal("PWD should carry 20 percent")
	}
	if CategoryPercent("Regular") != 0 {
		t.Fatal("regular should carry no category discount")
	}
}
