package billing

import (
	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/money"
)

// Totals aggregates payment amounts across a transaction's eligible lines,
// excluding lines that are refunded or selected for refund.
type Totals struct {
	Cash    decimal.Decimal
	GCash   decimal.Decimal
	Balance decimal.Decimal
}

// Totals recomputes transaction-level sums from the working lines. The
// computation is a pure fold over current state, so repeated calls with
// unchanged inputs yield identical results.
func (d *Draft) Totals() Totals {
	t := Totals{Cash: decimal.Zero, GCash: decimal.Zero, Balance: decimal.Zero}
	for i := range d.lines {
		line := d.lines[i]
		if line.Refunded() || d.selected[line.TestDetailID] {
			continue
		}
		t.Cash = t.Cash.Add(line.Cash)
		t.GCash = t.GCash.Add(line.GCash)
		t.Balance = t.Balance.Add(line.Balance)
	}
	return t
}

// TotalAmount sums collected payments over eligible lines and then applies the
// transaction-level ID-type discount on top of any per-line discounts. The
// second discount layer reproduces the dashboard's observed behaviour and is
// deliberately not collapsed into the per-line computation.
func (d *Draft) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for i := range d.lines {
		line := d.lines[i]
		if line.Refunded() || d.selected[line.TestDetailID] {
			continue
		}
		sum = sum.Add(line.Paid())
	}
	if pct := CategoryPercent(d.IDType); pct > 0 {
		return DiscountedPrice(sum, pct)
	}
	return money.Round(sum)
}

// TotalDiscountAmount sums the per-line discount value over eligible lines.
func (d *Draft) TotalDiscountAmount() decimal.Decimal {
	total := decimal.Zero
	for i := range d.lines {
		line := d.lines[i]
		if line.Refunded() || d.selected[line.TestDetailID] {
			continue
		}
		total = total.Add(line.OriginalPrice.Sub(DiscountedPrice(line.OriginalPrice, line.DiscountPercent)))
	}
	return money.Round(total)
}
