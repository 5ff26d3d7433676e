package account

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
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const selectAccountByUserID = `
	SELECT id, user_id, balance, created_at, updated_at
	FROM accounts
	WHERE user_id = $1
`

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) FindByUserID(ctx context.Context, ext sqlx.ExtContext, userID string) (*Account, error) {
	var acct Account
	err := sqlx.GetContext(ctx, ext, &acct, selectAccountByUserID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, db.TranslateError(err)
	}

	return &acct, nil
}

func (r *repository) GetOrCreate(ctx context.Context, ext sqlx.ExtContext, userID string) (*Account, error) {
	acct, err := r.FindByUserID(ctx, ext, userID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	var created Account
	err = sqlx.GetContext(ctx, ext, &created,
		`INSERT INTO accounts (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance, created_at, updated_at`,
		userID,
	)
	if err != nil {
		// Lost a create race with a concurrent transaction; the row exists now.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return r.FindByUserID(ctx, ext, userID)
		}
		return nil, db.TranslateError(err)
	}

	logger.Info("created holder account", "user_id", userID, "account_id", created.ID)
	metrics.RecordAccountCreated("holder")

	return &created, nil
}

// AdjustBalanceLocked takes the row lock, applies delta and persists the new
// balance. The lock is held until the surrounding transaction ends, so this
// must only be called inside an open transaction scope.
func (r *repository) AdjustBalanceLocked(ctx context.Context, ext sqlx.ExtContext, accountID string, delta decimal.Decimal) (*Account, error) {
	var acct Account
	err := sqlx.GetContext(ctx, ext, &acct,
		`SELECT id, user_id, balance, created_at, updated_at
		 FROM accounts
		 WHERE id = $1
		 FOR UPDATE`,
		accountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, db.TranslateError(err)
	}

	newBalance := acct.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	err = sqlx.GetContext(ctx, ext, &acct,
		`UPDATE accounts
		 SET balance = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING id, user_id, balance, created_at, updated_at`,
		newBalance, accountID,
	)
	if err != nil {
		return nil, db.TranslateError(err)
	}

	return &acct, nil
}
