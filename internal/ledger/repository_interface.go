package ledger

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Repository is append-only: records are inserted on the coordinator's open
// transaction and never updated or deleted afterwards.
type Repository interface {
	Append(ctx context.Context, ext sqlx.ExtContext, txn Transaction) (*Transaction, error)
	ListByAccount(ctx context.Context, ext sqlx.ExtContext, accountID string, limit, offset int) ([]Transaction, error)
	SummarizePayments(ctx context.Context, ext sqlx.ExtContext, pairs []SummaryPair) ([]PaymentSummary, error)
}
