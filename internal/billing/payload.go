package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Valiantic/purehealth-api/internal/money"
)

// Meta carries the transaction identity and demographic fields owned by the
// backend, passed through the save payload unchanged.
type Meta struct {
	TransactionID string
	MCNo          string
	FirstName     string
	LastName      string
	ReferrerID    string
	BirthDate     string
	Sex           string
	IDType        string
	IDNumber      string
	UserID        string
}

// DetailPayload is the wire form of one test line. Monetary fields are
// strings fixed to two decimal places.
type DetailPayload struct {
	TestDetailID    string `json:"testDetailId"`
	DiscountPercent int    `json:"discountPercentage"`
	DiscountedPrice string `json:"discountedPrice"`
	OriginalPrice   string `json:"originalPrice"`
	CashAmount      string `json:"cashAmount"`
	GCashAmount     string `json:"gCashAmount"`
	BalanceAmount   string `json:"balanceAmount"`
	IsRefunded      bool   `json:"isRefunded"`
	Status          Status `json:"status"`
	DepartmentID    string `json:"departmentId"`
}

// SavePayload is the flat projection submitted on save. Top-level totals stay
// numeric; everything else monetary travels as a 2dp string.
type SavePayload struct {
	TransactionID       string                   `json:"transactionId"`
	MCNo                string                   `json:"mcNo"`
	FirstName           string                   `json:"firstName"`
	LastName            string                   `json:"lastName"`
	ReferrerID          string                   `json:"referrerId,omitempty"`
	BirthDate           string                   `json:"birthDate,omitempty"`
	Sex                 string                   `json:"sex,omitempty"`
	IDType              string                   `json:"idType"`
	IDNumber            string                   `json:"idNumber,omitempty"`
	UserID              string                   `json:"userId,omitempty"`
	TestDetails         []DetailPayload          `json:"testDetails"`
	IsRefundProcessing  bool                     `json:"isRefundProcessing"`
	DepartmentRefunds   map[string]string        `json:"departmentRefunds"`
	RefundDate          string                   `json:"refundDate,omitempty"`
	ExcessRefunds       map[string]string        `json:"excessRefunds"`
	TotalAmount         float64                  `json:"totalAmount"`
	TotalDiscountAmount float64                  `json:"totalDiscountAmount"`
	TotalCashAmount     string                   `json:"totalCashAmount"`
	TotalGCashAmount    string                   `json:"totalGCashAmount"`
	TotalBalanceAmount  string                   `json:"totalBalanceAmount"`
}

// Payload projects the draft into the save payload. Every line's refund flag
// is the OR of its persisted status and the session selection, and refunded
// lines ship a zero discounted price regardless of their pre-refund value.
func (d *Draft) Payload(meta Meta) SavePayload {
	details := make([]DetailPayload, 0, len(d.lines))
	for i := range d.lines {
		line := d.lines[i]
		refunded := line.Refunded() || d.selected[line.TestDetailID]
		status := StatusActive
		price := formatAmount(line.DiscountedPrice)
		if refunded {
			status = StatusRefunded
			price = "0.00"
		}
		details = append(details, DetailPayload{
			TestDetailID:    line.TestDetailID,
			DiscountPercent: line.DiscountPercent,
			DiscountedPrice: price,
			OriginalPrice:   formatAmount(line.OriginalPrice),
			CashAmount:      formatAmount(line.Cash),
			GCashAmount:     formatAmount(line.GCash),
			BalanceAmount:   formatAmount(line.Balance),
			IsRefunded:      refunded,
			Status:          status,
			DepartmentID:    line.DepartmentID,
		})
	}

	totals := d.Totals()
	refundPending := d.RefundPending()
	payload := SavePayload{
		TransactionID:       meta.TransactionID,
		MCNo:                meta.MCNo,
		FirstName:           meta.FirstName,
		LastName:            meta.LastName,
		ReferrerID:          meta.ReferrerID,
		BirthDate:           meta.BirthDate,
		Sex:                 meta.Sex,
		IDType:              meta.IDType,
		IDNumber:            meta.IDNumber,
		UserID:              meta.UserID,
		TestDetails:         details,
		IsRefundProcessing:  refundPending,
		DepartmentRefunds:   formatAmountMap(d.DepartmentRefunds()),
		ExcessRefunds:       formatAmountMap(d.ExcessRefunds()),
		TotalAmount:         d.TotalAmount().InexactFloat64(),
		TotalDiscountAmount: d.TotalDiscountAmount().InexactFloat64(),
		TotalCashAmount:     formatAmount(totals.Cash),
		TotalGCashAmount:    formatAmount(totals.GCash),
		TotalBalanceAmount:  formatAmount(totals.Balance),
	}
	if refundPending {
		payload.RefundDate = d.now().UTC().Format(time.RFC3339)
	}
	return payload
}

func formatAmount(d decimal.Decimal) string {
	return money.Format(d)
}

func formatAmountMap(in map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = money.Format(v)
	}
	return out
}
