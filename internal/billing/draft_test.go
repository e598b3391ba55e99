package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLine(id string, price int64, pct int) Line {
	original := decimal.NewFromInt(price)
	return Line{
		TestDetailID:    id,
		TestName:        "CBC",
		DepartmentID:    "hematology",
		OriginalPrice:   original,
		DiscountPercent: pct,
		DiscountedPrice: DiscountedPrice(original, pct),
		Balance:         DiscountedPrice(original, pct),
		Status:          StatusActive,
	}
}

func TestDraftCategoryDefaulting(t *testing.T) {
	lines := []Line{newTestLine("t1", 1000, 0), newTestLine("t2", 500, 10)}
	d := NewDraft("Senior Citizen", lines, nil, PolicyCap)

	l1, err := d.Line("t1")
	require.NoError(t, err)
	require.Equal(t, 20, l1.DiscountPercent)
	require.Equal(t, "800.00", l1.DiscountedPrice.StringFixed(2))

	// a discount the user already set is never overridden
	l2, err := d.Line("t2")
	require.NoError(t, err)
	require.Equal(t, 10, l2.DiscountPercent)
}

func TestDraftCategoryDefaultingIsOneTime(t *testing.T) {
	d := NewDraft("PWD", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	require.NoError(t, d.SetDiscountPercent("t1", "5"))
	l, _ := d.Line("t1")
	require.Equal(t, 5, l.DiscountPercent)
	require.Equal(t, "950.00", l.DiscountedPrice.StringFixed(2))
}

func TestPaymentCapping(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 20)}, nil, PolicyCap)

	require.NoError(t, d.SetPayment("t1", FieldCash, "900"))
	l, _ := d.Line("t1")
	require.Equal(t, "800.00", l.Cash.StringFixed(2))
	require.Equal(t, "0.00", l.GCash.StringFixed(2))
	require.Equal(t, "0.00", l.Balance.StringFixed(2))
}

func TestPaymentCappingIdempotent(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 20)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "900"))
	first, _ := d.Line("t1")
	require.NoError(t, d.SetPayment("t1", FieldCash, "900"))
	second, _ := d.Line("t1")
	require.True(t, first.Cash.Equal(second.Cash))
	require.True(t, first.GCash.Equal(second.GCash))
	require.True(t, first.Balance.Equal(second.Balance))
}

func TestGCashCappedAtRemainder(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 20)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "500"))
	require.NoError(t, d.SetPayment("t1", FieldGCash, "500"))
	l, _ := d.Line("t1")
	require.Equal(t, "500.00", l.Cash.StringFixed(2))
	require.Equal(t, "300.00", l.GCash.StringFixed(2))
	require.Equal(t, "0.00", l.Balance.StringFixed(2))
}

func TestBalanceRecomputed(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "250.50"))
	l, _ := d.Line("t1")
	require.Equal(t, "749.50", l.Balance.StringFixed(2))
	require.False(t, l.Balance.IsNegative())
}

func TestInvalidPaymentInputRejected(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	before, _ := d.Line("t1")
	for _, raw := range []string{"12.345", "1,000", "abc", "-5", "1.2.3"} {
		err := d.SetPayment("t1", FieldCash, raw)
		require.ErrorIs(t, err, ErrInvalidAmount, "input %q", raw)
	}
	after, _ := d.Line("t1")
	require.True(t, before.Cash.Equal(after.Cash))
}

func TestRefundedLineRefusesEdits(t *testing.T) {
	line := newTestLine("t1", 1000, 0)
	line.Status = StatusRefunded
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	require.ErrorIs(t, d.SetPayment("t1", FieldCash, "100"), ErrLineRefunded)
	require.ErrorIs(t, d.SetDiscountPercent("t1", "10"), ErrLineRefunded)
}

func TestDiscountLoweredRescalesProportionally(t *testing.T) {
	line := newTestLine("t1", 1000, 0)
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "500"))
	require.NoError(t, d.SetPayment("t1", FieldGCash, "500"))

	require.NoError(t, d.SetDiscountPercent("t1", "20"))
	l, _ := d.Line("t1")
	require.Equal(t, "400.00", l.Cash.StringFixed(2))
	require.Equal(t, "400.00", l.GCash.StringFixed(2))
	require.Equal(t, "0.00", l.Balance.StringFixed(2))
	// the rescale absorbed the overpayment, so no excess entry remains
	require.Len(t, d.ExcessRefunds(), 0)
}

func TestDiscountRaisedRecomputesBalance(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 20)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "400"))
	require.NoError(t, d.SetDiscountPercent("t1", "0"))
	l, _ := d.Line("t1")
	require.Equal(t, "400.00", l.Cash.StringFixed(2))
	require.Equal(t, "600.00", l.Balance.StringFixed(2))
}

func TestDiscountAboveHundredRejected(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 20)}, nil, PolicyCap)
	err := d.SetDiscountPercent("t1", "150")
	require.ErrorIs(t, err, ErrDiscountOutOfRange)
	l, _ := d.Line("t1")
	require.Equal(t, 20, l.DiscountPercent)
}

func TestDirectPriceEditTracksExcess(t *testing.T) {
	line := newTestLine("t1", 1000, 0)
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "500"))
	require.NoError(t, d.SetPayment("t1", FieldGCash, "500"))

	require.NoError(t, d.SetDiscountedPrice("t1", "800"))
	excess := d.ExcessRefunds()
	require.Len(t, excess, 1)
	require.Equal(t, "200.00", excess[ExcessKey("t1")].StringFixed(2))
	l, _ := d.Line("t1")
	require.Equal(t, "0.00", l.Balance.StringFixed(2))
	require.Equal(t, "200.00", d.ExcessRefundTotal().StringFixed(2))
}

func TestDirectPriceEditExactPaymentNoExcess(t *testing.T) {
	line := newTestLine("t1", 1000, 20)
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "500"))
	require.NoError(t, d.SetPayment("t1", FieldGCash, "300"))

	require.NoError(t, d.SetDiscountedPrice("t1", "800"))
	require.Len(t, d.ExcessRefunds(), 0)
	l, _ := d.Line("t1")
	require.Equal(t, "0.00", l.Balance.StringFixed(2))
}

func TestExcessClearedWhenResolved(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyTrackExcess)
	require.NoError(t, d.SetPayment("t1", FieldCash, "1000"))
	require.NoError(t, d.SetDiscountedPrice("t1", "800"))
	require.Len(t, d.ExcessRefunds(), 1)

	// lowering the payment below the discounted price resolves the overpayment
	require.NoError(t, d.SetPayment("t1", FieldCash, "700"))
	require.Len(t, d.ExcessRefunds(), 0)
	l, _ := d.Line("t1")
	require.Equal(t, "100.00", l.Balance.StringFixed(2))
}

func TestExcessClearedWhenDiscountRestored(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyTrackExcess)
	require.NoError(t, d.SetPayment("t1", FieldCash, "1000"))
	require.NoError(t, d.SetDiscountedPrice("t1", "800"))
	require.Len(t, d.ExcessRefunds(), 1)

	require.NoError(t, d.SetDiscountedPrice("t1", "1000"))
	require.Len(t, d.ExcessRefunds(), 0)
}

func TestExcessRestoredFromMetadata(t *testing.T) {
	excess := map[string]decimal.Decimal{ExcessKey("t1"): decimal.NewFromInt(150)}
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, excess, PolicyCap)
	require.Equal(t, "150.00", d.ExcessRefundTotal().StringFixed(2))
}

func TestRefundSelectionZeroesWorkingPrice(t *testing.T) {
	line := newTestLine("t1", 500, 40)
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "300"))

	d.EnterRefundMode()
	require.NoError(t, d.SelectRefund("t1"))
	l, _ := d.Line("t1")
	require.Equal(t, "0.00", l.DiscountedPrice.StringFixed(2))
	// original price retained for refund reporting
	count, amount := d.RefundedInfo()
	require.Equal(t, 1, count)
	require.Equal(t, "500.00", amount.StringFixed(2))
}

func TestRefundDeselectRestoresPrice(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 500, 40)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "300"))
	require.NoError(t, d.SelectRefund("t1"))
	require.NoError(t, d.DeselectRefund("t1"))
	l, _ := d.Line("t1")
	require.Equal(t, "300.00", l.DiscountedPrice.StringFixed(2))
	require.False(t, d.RefundSelected("t1"))
}

func TestPersistedRefundCannotBeDeselected(t *testing.T) {
	line := newTestLine("t1", 500, 0)
	line.Status = StatusRefunded
	d := NewDraft("Regular", []Line{line}, nil, PolicyCap)
	d.EnterRefundMode()
	require.True(t, d.RefundSelected("t1"))
	require.ErrorIs(t, d.DeselectRefund("t1"), ErrRefundFinal)
}

func TestLineWithBalanceNotRefundable(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "400"))
	require.ErrorIs(t, d.SelectRefund("t1"), ErrLineHasBalance)
}

func TestTotalsExcludeRefundedLines(t *testing.T) {
	lines := []Line{newTestLine("t1", 1000, 0), newTestLine("t2", 500, 0)}
	d := NewDraft("Regular", lines, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "1000"))
	require.NoError(t, d.SetPayment("t2", FieldGCash, "500"))

	totals := d.Totals()
	require.Equal(t, "1000.00", totals.Cash.StringFixed(2))
	require.Equal(t, "500.00", totals.GCash.StringFixed(2))

	require.NoError(t, d.SelectRefund("t2"))
	totals = d.Totals()
	require.Equal(t, "1000.00", totals.Cash.StringFixed(2))
	require.Equal(t, "0.00", totals.GCash.StringFixed(2))
}

func TestTotalsAdditivity(t *testing.T) {
	withLine := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0), newTestLine("t2", 500, 0)}, nil, PolicyCap)
	require.NoError(t, withLine.SetPayment("t1", FieldCash, "600"))
	require.NoError(t, withLine.SetPayment("t2", FieldCash, "200"))

	without := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	require.NoError(t, without.SetPayment("t1", FieldCash, "600"))

	l2, _ := withLine.Line("t2")
	diffCash := withLine.Totals().Cash.Sub(without.Totals().Cash)
	diffBalance := withLine.Totals().Balance.Sub(without.Totals().Balance)
	require.True(t, diffCash.Equal(l2.Cash))
	require.True(t, diffBalance.Equal(l2.Balance))
}

func TestTotalsIdempotent(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 10)}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "100"))
	first := d.Totals()
	second := d.Totals()
	require.True(t, first.Cash.Equal(second.Cash))
	require.True(t, first.GCash.Equal(second.GCash))
	require.True(t, first.Balance.Equal(second.Balance))
}

func TestTotalAmountAppliesCategoryDiscount(t *testing.T) {
	line := newTestLine("t1", 1000, 20)
	d := NewDraft("Senior Citizen", []Line{line}, nil, PolicyCap)
	require.NoError(t, d.SetPayment("t1", FieldCash, "800"))
	// category discount layers on top of the per-line discount
	require.Equal(t, "640.00", d.TotalAmount().StringFixed(2))
}

func TestPayloadSerialization(t *testing.T) {
	lines := []Line{newTestLine("t1", 1000, 20), newTestLine("t2", 500, 0)}
	d := NewDraft("Regular", lines, nil, PolicyCap)
	d.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	require.NoError(t, d.SetPayment("t1", FieldCash, "800"))
	require.NoError(t, d.SetPayment("t2", FieldCash, "500"))
	require.NoError(t, d.SelectRefund("t2"))

	payload := d.Payload(Meta{TransactionID: "tx-1", MCNo: "MC-001", FirstName: "Ana", LastName: "Reyes", IDType: "Regular"})
	require.Equal(t, "tx-1", payload.TransactionID)
	require.True(t, payload.IsRefundProcessing)
	require.Equal(t, "2026-03-14T09:00:00Z", payload.RefundDate)
	require.Equal(t, "800.00", payload.TotalCashAmount)
	require.InDelta(t, 800.0, payload.TotalAmount, 0.001)

	require.Len(t, payload.TestDetails, 2)
	refunded := payload.TestDetails[1]
	require.True(t, refunded.IsRefunded)
	require.Equal(t, StatusRefunded, refunded.Status)
	require.Equal(t, "0.00", refunded.DiscountedPrice)
	require.Equal(t, "500.00", refunded.OriginalPrice)
	require.Equal(t, "500.00", payload.DepartmentRefunds["hematology"])
}

func TestPayloadNoRefundNoDate(t *testing.T) {
	d := NewDraft("Regular", []Line{newTestLine("t1", 1000, 0)}, nil, PolicyCap)
	payload := d.Payload(Meta{TransactionID: "tx-1", MCNo: "MC-001"})
	require.False(t, payload.IsRefundProcessing)
	require.Empty(t, payload.RefundDate)
}

func TestUnknownLine(t *testing.T) {
	d := NewDraft("Regular", nil, nil, PolicyCap)
	require.True(t, errors.Is(d.SetPayment("nope", FieldCash, "1"), ErrLineNotFound))
}
