package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Department groups lab tests for pricing and refund reporting.
type Department struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// LabTest is a priced catalog entry.
type LabTest struct {
	ID           uuid.UUID
	Name         string
	DepartmentID uuid.UUID
	Price        decimal.Decimal
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Referrer is a doctor or clinic that refers patients.
type Referrer struct {
	ID        uuid.UUID
	Name      string
	Clinic    string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account is a dashboard staff account.
type Account struct {
	ID           uuid.UUID
	Username     string
	FullName     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expense is a clinic operating expense entry.
type Expense struct {
	ID          uuid.UUID
	Description string
	Amount      decimal.Decimal
	IncurredOn  time.Time
	RecordedBy  uuid.NullUUID
	CreatedAt   time.Time
}

// Transaction is the persisted patient transaction header.
type Transaction struct {
	ID                  uuid.UUID
	MCNo                string
	FirstName           string
	LastName            string
	ReferrerID          uuid.NullUUID
	BirthDate           *time.Time
	Sex                 string
	IDType              string
	IDNumber            string
	UserID              uuid.NullUUID
	TotalAmount         decimal.Decimal
	TotalDiscountAmount decimal.Decimal
	TotalCash           decimal.Decimal
	TotalGCash          decimal.Decimal
	TotalBalance        decimal.Decimal
	ExcessRefunds       []byte
	IsRefundProcessing  bool
	RefundDate          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TestDetail is one persisted billable line of a transaction.
type TestDetail struct {
	ID              uuid.UUID
	TransactionID   uuid.UUID
	LabTestID       uuid.NullUUID
	TestName        string
	DepartmentID    uuid.UUID
	OriginalPrice   decimal.Decimal
	DiscountPercent int32
	DiscountedPrice decimal.Decimal
	CashAmount      decimal.Decimal
	GCashAmount     decimal.Decimal
	BalanceAmount   decimal.Decimal
	Status          string
	CreatedAt       time.Time
}

// DailySummaryRow aggregates one day of revenue and refunds.
type DailySummaryRow struct {
	Transactions int64
	TotalCash    decimal.Decimal
	TotalGCash   decimal.Decimal
	TotalBalance decimal.Decimal
	TotalRevenue decimal.Decimal
	RefundCount  int64
	RefundAmount decimal.Decimal
}
