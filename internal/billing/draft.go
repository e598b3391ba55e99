package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/money"
)

// Policy selects how payment edits that exceed the discounted price are
// handled. Exactly one policy is active per draft.
type Policy string

const (
	// PolicyCap silently caps cash at the discounted price and GCash at the
	// remainder, so a payment edit can never overpay a line.
	PolicyCap Policy = "cap"
	// PolicyTrackExcess stores the requested amounts as-is and records any
	// overpayment in the excess-refund map instead of capping.
	PolicyTrackExcess Policy = "track-excess"
)

// ParsePolicy normalizes a configured policy name, defaulting to capping.
func ParsePolicy(raw string) Policy {
	if Policy(raw) == PolicyTrackExcess {
		return PolicyTrackExcess
	}
	return PolicyCap
}

// ExcessKey derives the excess-refund map key for a test detail.
func ExcessKey(testDetailID string) string {
	return "test-" + testDetailID
}

// Draft is an in-progress edit session over a transaction's line items. It is
// created from committed state, mutated through the methods below, and either
// projected into a save payload or dropped.
type Draft struct {
	IDType string
	Policy Policy
	Now    func() time.Time

	lines    []Line
	index    map[string]int
	selected map[string]bool
	excess   map[string]decimal.Decimal
}

// NewDraft deep-copies committed lines into an edit session. Lines without a
// discount are defaulted to the category percentage for PWD / senior citizen
// patients, recomputing their discounted price; a discount already set is
// never overridden. Previously persisted excess-refund entries are restored.
func NewDraft(idType string, lines []Line, excess map[string]decimal.Decimal, policy Policy) *Draft {
	d := &Draft{
		IDType:   idType,
		Policy:   policy,
		lines:    make([]Line, len(lines)),
		index:    make(map[string]int, len(lines)),
		selected: make(map[string]bool),
		excess:   make(map[string]decimal.Decimal, len(excess)),
	}
	copy(d.lines, lines)
	defaultPct := CategoryPercent(idType)
	for i := range d.lines {
		line := &d.lines[i]
		d.index[line.TestDetailID] = i
		if defaultPct > 0 && line.DiscountPercent == 0 && !line.Refunded() {
			line.DiscountPercent = defaultPct
			line.DiscountedPrice = DiscountedPrice(line.OriginalPrice, defaultPct)
			line.Balance = money.ClampNonNegative(line.DiscountedPrice.Sub(line.Paid()))
		}
	}
	for key, amount := range excess {
		if amount.IsPositive() {
			d.excess[key] = amount
		}
	}
	return d
}

// Lines returns a copy of the draft's working lines.
func (d *Draft) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Line returns the working copy of a single line.
func (d *Draft) Line(testDetailID string) (Line, error) {
	i, ok := d.index[testDetailID]
	if !ok {
		return Line{}, ErrLineNotFound
	}
	return d.lines[i], nil
}

func (d *Draft) editable(testDetailID string) (*Line, error) {
	i, ok := d.index[testDetailID]
	if !ok {
		return nil, ErrLineNotFound
	}
	line := &d.lines[i]
	if line.Refunded() || d.selected[testDetailID] {
		return nil, ErrLineRefunded
	}
	return line, nil
}

// SetDiscountPercent applies a new discount percentage to a line and cascades
// the change into payments and balance. When existing payments exceed the new
// discounted price they are rescaled proportionally to sum to exactly the new
// price, which also makes any tracked excess moot.
func (d *Draft) SetDiscountPercent(testDetailID, raw string) error {
	line, err := d.editable(testDetailID)
	if err != nil {
		return err
	}
	pct, err := ParsePercent(raw)
	if err != nil {
		return err
	}
	line.DiscountPercent = pct
	newPrice := DiscountedPrice(line.OriginalPrice, pct)
	line.DiscountedPrice = newPrice

	paid := line.Paid()
	if paid.GreaterThan(newPrice) {
		if paid.IsPositive() {
			cash := money.Round(newPrice.Mul(line.Cash).Div(paid))
			line.Cash = cash
			line.GCash = newPrice.Sub(cash)
		} else {
			line.Cash = decimal.Zero
			line.GCash = decimal.Zero
		}
		line.Balance = decimal.Zero
	} else {
		line.Balance = newPrice.Sub(paid)
	}
	delete(d.excess, ExcessKey(testDetailID))
	return nil
}

// SetPayment applies user-entered cash or GCash input to a line under the
// draft's allocation policy. Input must be plain decimal text; refunded and
// refund-selected lines refuse edits.
func (d *Draft) SetPayment(testDetailID string, field PaymentField, raw string) error {
	line, err := d.editable(testDetailID)
	if err != nil {
		return err
	}
	amount, err := money.Parse(raw)
	if err != nil {
		return ErrInvalidAmount
	}
	switch d.Policy {
	case PolicyTrackExcess:
		switch field {
		case FieldGCash:
			line.GCash = amount
		default:
			line.Cash = amount
		}
		d.trackOverpayment(line)
	default:
		switch field {
		case FieldGCash:
			line.GCash = money.Min(amount, money.ClampNonNegative(line.DiscountedPrice.Sub(line.Cash)))
		default:
			line.Cash = money.Min(amount, line.DiscountedPrice)
			line.GCash = money.Min(line.GCash, money.ClampNonNegative(line.DiscountedPrice.Sub(line.Cash)))
		}
		line.Balance = money.ClampNonNegative(line.DiscountedPrice.Sub(line.Paid()))
	}
	return nil
}

// SetDiscountedPrice is the direct price-edit path: the working discounted
// price changes without touching recorded payments, so an overpaid state is
// possible and tracked rather than capped. The price is never allowed to
// exceed the original list price.
func (d *Draft) SetDiscountedPrice(testDetailID, raw string) error {
	line, err := d.editable(testDetailID)
	if err != nil {
		return err
	}
	price, err := money.Parse(raw)
	if err != nil {
		return ErrInvalidAmount
	}
	line.DiscountedPrice = money.Min(price, line.OriginalPrice)
	d.trackOverpayment(line)
	return nil
}

// trackOverpayment records payment collected beyond the discounted price under
// the line's excess key, or clears the entry once the condition resolves.
func (d *Draft) trackOverpayment(line *Line) {
	paid := line.Paid()
	key := ExcessKey(line.TestDetailID)
	if paid.GreaterThan(line.DiscountedPrice) {
		d.excess[key] = paid.Sub(line.DiscountedPrice)
		line.Balance = decimal.Zero
		return
	}
	delete(d.excess, key)
	line.Balance = line.DiscountedPrice.Sub(paid)
}

// ExcessRefunds returns a copy of the tracked excess-refund entries.
func (d *Draft) ExcessRefunds() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(d.excess))
	for k, v := range d.excess {
		out[k] = v
	}
	return out
}

// ExcessRefundTotal sums all tracked excess-refund entries.
func (d *Draft) ExcessRefundTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range d.excess {
		total = total.Add(v)
	}
	return total
}

func (d *Draft) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
