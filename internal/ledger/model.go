package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount rejects non-positive or sub-cent amounts before any
// store interaction; every ledger record carries a strictly positive
// scale-2 amount.
var ErrInvalidAmount = errors.New("amount must be positive with at most two decimal places")

type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypePayment    Type = "PAYMENT"
	TypeRefund     Type = "REFUND"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Transaction is an immutable ledger record. No field changes after
// insertion; the current balances can always be reconciled from these rows.
type Transaction struct {
	ID                    string          `db:"id" json:"id"`
	AccountID             string          `db:"account_id" json:"account_id"`
	Type                  Type            `db:"type" json:"type"`
	Status                Status          `db:"status" json:"status"`
	Amount                decimal.Decimal `db:"amount" json:"amount"`
	Timestamp             time.Time       `db:"timestamp" json:"timestamp"`
	Description           *string         `db:"description" json:"description,omitempty"`
	CollectionID          *string         `db:"collection_id" json:"collection_id,omitempty"`
	StudentID             *string         `db:"student_id" json:"student_id,omitempty"`
	ExternalTransactionID *string         `db:"external_transaction_id" json:"external_transaction_id,omitempty"`
}

// SummaryPair identifies one (collection, student) aggregation target.
type SummaryPair struct {
	CollectionID string `json:"collection_id" binding:"required"`
	StudentID    string `json:"student_id" binding:"required"`
}

// PaymentSummary is the total of COMPLETED PAYMENT amounts for one pair.
// Pairs with no matching records report a zero total.
type PaymentSummary struct {
	CollectionID string          `db:"collection_id" json:"collection_id"`
	StudentID    string          `db:"student_id" json:"student_id"`
	TotalPaid    decimal.Decimal `db:"total_paid" json:"total_paid"`
}
