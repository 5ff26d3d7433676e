package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"feewallet/internal/account"
	"feewallet/internal/collection"
	"feewallet/internal/ledger"
	"feewallet/internal/logger"
	"feewallet/internal/metrics"
)

// Store is the transaction-scope protocol the coordinator runs on; each
// operation is one scoped unit, a savepoint when nested under an outer
// transaction. Satisfied by *db.Store.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, ext sqlx.ExtContext) error) error
	DB() *sqlx.DB
}

// Service executes the four transfer operations. Each call is atomic: the
// balance mutations and the ledger append of one operation commit or roll
// back together.
type Service interface {
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (*ledger.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*ledger.Transaction, error)
	Pay(ctx context.Context, userID, collectionID, studentID string, amount decimal.Decimal, description string) (*ledger.Transaction, error)
	Refund(ctx context.Context, userID, collectionID string, amount decimal.Decimal, description string) (*ledger.Transaction, error)

	History(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error)
	SummarizePayments(ctx context.Context, pairs []ledger.SummaryPair) ([]ledger.PaymentSummary, error)
}

type service struct {
	store       Store
	accounts    account.Repository
	collections collection.Repository
	records     ledger.Repository
}

func NewService(store Store, accounts account.Repository, collections collection.Repository, records ledger.Repository) Service {
	return &service{
		store:       store,
		accounts:    accounts,
		collections: collections,
		records:     records,
	}
}

// validAmount is the gate every operation's amount passes before any store
// interaction: strictly positive, at most two decimal places. Balances are
// scale-2 fixed point; sub-cent amounts would otherwise round silently in
// the store.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -2
}

func (s *service) Deposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (*ledger.Transaction, error) {
	if !validAmount(amount) {
		return nil, ledger.ErrInvalidAmount
	}

	var txn *ledger.Transaction
	err := s.timed(ctx, ledger.TypeDeposit, func(ctx context.Context, ext sqlx.ExtContext) error {
		acct, err := s.accounts.GetOrCreate(ctx, ext, userID)
		if err != nil {
			return err
		}

		if _, err := s.accounts.AdjustBalanceLocked(ctx, ext, acct.ID, amount); err != nil {
			return err
		}

		desc := description
		if desc == "" {
			desc = "Simulated deposit completed"
		}
		externalID := "sim_dep_" + uuid.NewString()

		txn, err = s.records.Append(ctx, ext, ledger.Transaction{
			AccountID:             acct.ID,
			Type:                  ledger.TypeDeposit,
			Status:                ledger.StatusCompleted,
			Amount:                amount,
			Description:           &desc,
			ExternalTransactionID: &externalID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("deposit completed", "user_id", userID, "amount", amount.StringFixed(2))
	return txn, nil
}

// Withdraw debits immediately to reserve the funds and records the
// withdrawal as PENDING; final settlement is confirmed by the external
// payout provider outside this engine.
func (s *service) Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*ledger.Transaction, error) {
	if !validAmount(amount) {
		return nil, ledger.ErrInvalidAmount
	}

	var txn *ledger.Transaction
	err := s.timed(ctx, ledger.TypeWithdrawal, func(ctx context.Context, ext sqlx.ExtContext) error {
		acct, err := s.accounts.GetOrCreate(ctx, ext, userID)
		if err != nil {
			return err
		}

		if _, err := s.accounts.AdjustBalanceLocked(ctx, ext, acct.ID, amount.Neg()); err != nil {
			return err
		}

		desc := "Withdrawal request"
		externalID := "sim_wd_" + uuid.NewString()

		txn, err = s.records.Append(ctx, ext, ledger.Transaction{
			AccountID:             acct.ID,
			Type:                  ledger.TypeWithdrawal,
			Status:                ledger.StatusPending,
			Amount:                amount,
			Description:           &desc,
			ExternalTransactionID: &externalID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("withdrawal requested", "user_id", userID, "amount", amount.StringFixed(2))
	return txn, nil
}

func (s *service) Pay(ctx context.Context, userID, collectionID, studentID string, amount decimal.Decimal, description string) (*ledger.Transaction, error) {
	if !validAmount(amount) {
		return nil, ledger.ErrInvalidAmount
	}

	var txn *ledger.Transaction
	err := s.timed(ctx, ledger.TypePayment, func(ctx context.Context, ext sqlx.ExtContext) error {
		acct, err := s.accounts.GetOrCreate(ctx, ext, userID)
		if err != nil {
			return err
		}
		coll, err := s.collections.GetOrCreate(ctx, ext, collectionID)
		if err != nil {
			return err
		}

		if err := s.lockAndTransfer(ctx, ext, acct.ID, coll.ID, amount.Neg(), amount); err != nil {
			return err
		}

		desc := description
		if desc == "" {
			desc = fmt.Sprintf("Payment for collection %s", collectionID)
		}

		txn, err = s.records.Append(ctx, ext, ledger.Transaction{
			AccountID:    acct.ID,
			Type:         ledger.TypePayment,
			Status:       ledger.StatusCompleted,
			Amount:       amount,
			Description:  &desc,
			CollectionID: &collectionID,
			StudentID:    &studentID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("payment completed",
		"user_id", userID, "collection_id", collectionID, "student_id", studentID,
		"amount", amount.StringFixed(2))
	return txn, nil
}

// Refund moves funds back from a collection account to a holder account.
// Both accounts must already exist; refunds never create them.
func (s *service) Refund(ctx context.Context, userID, collectionID string, amount decimal.Decimal, description string) (*ledger.Transaction, error) {
	if !validAmount(amount) {
		return nil, ledger.ErrInvalidAmount
	}

	var txn *ledger.Transaction
	err := s.timed(ctx, ledger.TypeRefund, func(ctx context.Context, ext sqlx.ExtContext) error {
		acct, err := s.accounts.FindByUserID(ctx, ext, userID)
		if err != nil {
			return err
		}
		coll, err := s.collections.FindByCollectionID(ctx, ext, collectionID)
		if err != nil {
			return err
		}

		if err := s.lockAndTransfer(ctx, ext, acct.ID, coll.ID, amount, amount.Neg()); err != nil {
			return err
		}

		desc := description
		if desc == "" {
			desc = fmt.Sprintf("Refund from collection %s", collectionID)
		}

		txn, err = s.records.Append(ctx, ext, ledger.Transaction{
			AccountID:    acct.ID,
			Type:         ledger.TypeRefund,
			Status:       ledger.StatusCompleted,
			Amount:       amount,
			Description:  &desc,
			CollectionID: &collectionID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("refund completed",
		"user_id", userID, "collection_id", collectionID, "amount", amount.StringFixed(2))
	return txn, nil
}

// lockAndTransfer is the single choke point where both row locks are taken.
// The holder account is always locked before the collection account, for
// payments and refunds alike; one global lock order means two operations on
// the same account pair can never wait on each other in a cycle.
func (s *service) lockAndTransfer(ctx context.Context, ext sqlx.ExtContext, accountID, collectionAccountID string, holderDelta, collectionDelta decimal.Decimal) error {
	if _, err := s.accounts.AdjustBalanceLocked(ctx, ext, accountID, holderDelta); err != nil {
		return err
	}
	if _, err := s.collections.AdjustBalanceLocked(ctx, ext, collectionAccountID, collectionDelta); err != nil {
		return err
	}
	return nil
}

func (s *service) History(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
	acct, err := s.accounts.FindByUserID(ctx, s.store.DB(), userID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return []ledger.Transaction{}, nil
		}
		return nil, err
	}

	return s.records.ListByAccount(ctx, s.store.DB(), acct.ID, limit, offset)
}

func (s *service) SummarizePayments(ctx context.Context, pairs []ledger.SummaryPair) ([]ledger.PaymentSummary, error) {
	if len(pairs) == 0 {
		return []ledger.PaymentSummary{}, nil
	}

	return s.records.SummarizePayments(ctx, s.store.DB(), pairs)
}

// timed wraps one scoped operation with its settlement metrics.
func (s *service) timed(ctx context.Context, opType ledger.Type, fn func(ctx context.Context, ext sqlx.ExtContext) error) error {
	start := time.Now()
	err := s.store.WithinTx(ctx, fn)
	duration := time.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.RecordSettlement(string(opType), "completed", duration)
	case errors.Is(err, account.ErrInsufficientFunds), errors.Is(err, collection.ErrInsufficientFunds):
		metrics.RecordInsufficientFunds(string(opType))
		metrics.RecordSettlement(string(opType), "rejected", duration)
	default:
		metrics.RecordSettlement(string(opType), "failed", duration)
	}

	return err
}
