package billing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status tracks the lifecycle of a billable line. Refunded is terminal.
type Status string

const (
	// StatusActive marks a line that still contributes to revenue.
	StatusActive Status = "active"
	// StatusRefunded marks a line whose refund has been persisted.
	StatusRefunded Status = "refunded"
)

// PaymentField identifies which payment amount an edit targets.
type PaymentField string

const (
	// FieldCash is the cash payment amount.
	FieldCash PaymentField = "cash"
	// FieldGCash is the GCash payment amount.
	FieldGCash PaymentField = "gCash"
)

var (
	// ErrLineNotFound indicates the referenced test detail does not exist in the draft.
	ErrLineNotFound = errors.New("billing: line not found")
	// ErrLineRefunded is returned when attempting to edit a refunded or refund-selected line.
	ErrLineRefunded = errors.New("billing: line is refunded")
	// ErrLineHasBalance blocks refund selection for lines with an outstanding balance.
	ErrLineHasBalance = errors.New("billing: line has outstanding balance")
	// ErrRefundFinal is returned when deselecting a line whose refund was already persisted.
	ErrRefundFinal = errors.New("billing: refund already persisted")
	// ErrDiscountOutOfRange rejects discount percentages above 100.
	ErrDiscountOutOfRange = errors.New("billing: discount percentage exceeds 100")
	// ErrInvalidAmount rejects payment input that is not a plain decimal.
	ErrInvalidAmount = errors.New("billing: invalid amount")
)

// Line is one billable test inside a transaction draft.
type Line struct {
	TestDetailID    string
	TestName        string
	DepartmentID    string
	OriginalPrice   decimal.Decimal
	DiscountPercent int
	DiscountedPrice decimal.Decimal
	Cash            decimal.Decimal
	GCash           decimal.Decimal
	Balance         decimal.Decimal
	Status          Status
}

// Paid returns the sum of recorded payments on the line.
func (l Line) Paid() decimal.Decimal {
	return l.Cash.Add(l.GCash)
}

// Refunded reports whether the line's refund has been persisted.
func (l Line) Refunded() bool {
	return l.Status == StatusRefunded
}
