package account

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository methods run against the ExtContext they are handed, so the
// settlement coordinator can keep get-or-create, locking and balance
// mutation on one open transaction.
type Repository interface {
	FindByUserID(ctx context.Context, ext sqlx.ExtContext, userID string) (*Account, error)
	GetOrCreate(ctx context.Context, ext sqlx.ExtContext, userID string) (*Account, error)
	AdjustBalanceLocked(ctx context.Context, ext sqlx.ExtContext, accountID string, delta decimal.Decimal) (*Account, error)
}
