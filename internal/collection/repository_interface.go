package collection

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	FindByCollectionID(ctx context.Context, ext sqlx.ExtContext, collectionID string) (*CollectionAccount, error)
	GetOrCreate(ctx context.Context, ext sqlx.ExtContext, collectionID string) (*CollectionAccount, error)
	AdjustBalanceLocked(ctx context.Context, ext sqlx.ExtContext, id string, delta decimal.Decimal) (*CollectionAccount, error)
}
