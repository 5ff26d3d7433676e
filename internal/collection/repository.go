package collection

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"feewallet/internal/db"
	"feewallet/internal/logger"
	"feewallet/internal/metrics"
)

var (
	ErrCollectionNotFound = errors.New("collection account not found")
	ErrInsufficientFunds  = errors.New("insufficient funds in collection account")
)

const selectByCollectionID = `
	SELECT id, collection_id, balance, created_at, updated_at
	FROM collection_accounts
	WHERE collection_id = $1
`

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) FindByCollectionID(ctx context.Context, ext sqlx.ExtContext, collectionID string) (*CollectionAccount, error) {
	var acct CollectionAccount
	err := sqlx.GetContext(ctx, ext, &acct, selectByCollectionID, collectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, db.TranslateError(err)
	}

	return &acct, nil
}

func (r *repository) GetOrCreate(ctx context.Context, ext sqlx.ExtContext, collectionID string) (*CollectionAccount, error) {
	acct, err := r.FindByCollectionID(ctx, ext, collectionID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return nil, err
	}

	var created CollectionAccount
	err = sqlx.GetContext(ctx, ext, &created,
		`INSERT INTO collection_accounts (collection_id)
		 VALUES ($1)
		 RETURNING id, collection_id, balance, created_at, updated_at`,
		collectionID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return r.FindByCollectionID(ctx, ext, collectionID)
		}
		return nil, db.TranslateError(err)
	}

	logger.Info("created collection account", "collection_id", collectionID, "account_id", created.ID)
	metrics.RecordAccountCreated("collection")

	return &created, nil
}

// AdjustBalanceLocked mirrors the holder-account variant; the pooled balance
// obeys the same non-negativity rule, which is what bounds refunds.
func (r *repository) AdjustBalanceLocked(ctx context.Context, ext sqlx.ExtContext, id string, delta decimal.Decimal) (*CollectionAccount, error) {
	var acct CollectionAccount
	err := sqlx.GetContext(ctx, ext, &acct,
		`SELECT id, collection_id, balance, created_at, updated_at
		 FROM collection_accounts
		 WHERE id = $1
		 FOR UPDATE`,
		id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, db.TranslateError(err)
	}

	newBalance := acct.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	err = sqlx.GetContext(ctx, ext, &acct,
		`UPDATE collection_accounts
		 SET balance = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING id, collection_id, balance, created_at, updated_at`,
		newBalance, id,
	)
	if err != nil {
		return nil, db.TranslateError(err)
	}

	return &acct, nil
}
