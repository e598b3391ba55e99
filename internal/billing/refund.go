package billing

import (
	"github.com/shopspring/decimal"
)

// EnterRefundMode snapshots lines whose refund is already persisted into the
// selection set so they render as checked without becoming deselectable.
func (d *Draft) EnterRefundMode() {
	for i := range d.lines {
		if d.lines[i].Refunded() {
			d.selected[d.lines[i].TestDetailID] = true
		}
	}
}

// SelectRefund marks a line for refund in the current session. The working
// discounted price drops to zero so the line stops contributing to revenue;
// the original price is retained for refund reporting. Lines with an
// outstanding balance are not refundable.
func (d *Draft) SelectRefund(testDetailID string) error {
	i, ok := d.index[testDetailID]
	if !ok {
		return ErrLineNotFound
	}
	line := &d.lines[i]
	if line.Refunded() {
		d.selected[testDetailID] = true
		return nil
	}
	if line.Balance.IsPositive() {
		return ErrLineHasBalance
	}
	d.selected[testDetailID] = true
	line.DiscountedPrice = decimal.Zero
	return nil
}

// DeselectRefund reverts a pending refund selection, restoring the discounted
// price from the original price and discount percentage. A persisted refund
// cannot be deselected.
func (d *Draft) DeselectRefund(testDetailID string) error {
	i, ok := d.index[testDetailID]
	if !ok {
		return ErrLineNotFound
	}
	line := &d.lines[i]
	if line.Refunded() {
		return ErrRefundFinal
	}
	delete(d.selected, testDetailID)
	line.DiscountedPrice = DiscountedPrice(line.OriginalPrice, line.DiscountPercent)
	return nil
}

// RefundSelected reports whether a line is marked for refund in this session.
func (d *Draft) RefundSelected(testDetailID string) bool {
	return d.selected[testDetailID]
}

// RefundPending reports whether the session holds refund selections beyond
// those already persisted.
func (d *Draft) RefundPending() bool {
	for id := range d.selected {
		if i, ok := d.index[id]; ok && !d.lines[i].Refunded() {
			return true
		}
	}
	return false
}

// RefundedInfo reports the count of refunded lines (persisted or selected)
// and their total at original list price, the figure surfaced in refund
// reporting.
func (d *Draft) RefundedInfo() (count int, amount decimal.Decimal) {
	amount = decimal.Zero
	for i := range d.lines {
		line := d.lines[i]
		if line.Refunded() || d.selected[line.TestDetailID] {
			count++
			amount = amount.Add(line.OriginalPrice)
		}
	}
	return count, amount
}

// DepartmentRefunds groups refunded line totals (at original price) by
// department for the save payload.
func (d *Draft) DepartmentRefunds() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for i := range d.lines {
		line := d.lines[i]
		if !line.Refunded() && !d.selected[line.TestDetailID] {
			continue
		}
		out[line.DepartmentID] = out[line.DepartmentID].Add(line.OriginalPrice)
	}
	return out
}
