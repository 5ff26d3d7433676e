package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrLockTimeout is returned when a row lock could not be acquired
	// within the configured lock_timeout. Safe to retry the whole operation.
	ErrLockTimeout = errors.New("lock wait timed out")

	// ErrStoreUnavailable covers transient store failures: lost connections,
	// serialization failures, deadlock detection. Safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store wraps the database handle and owns the transaction scope protocol.
// Every settlement operation runs inside WithinTx; nested WithinTx calls
// become savepoints, so a caller can compose several operations into one
// outer transaction and still get per-operation rollback.
type Store struct {
	db            *sqlx.DB
	lockTimeoutMS int
}

func NewStore(db *sqlx.DB, lockTimeoutMS int) *Store {
	return &Store{db: db, lockTimeoutMS: lockTimeoutMS}
}

// DB exposes the raw handle for read-only paths that must not join a
// write transaction (history listing, payment summaries).
func (s *Store) DB() *sqlx.DB {
	return s.db
}

type txCtxKey struct{}

type txScope struct {
	tx    *sqlx.Tx
	depth int
}

// WithinTx runs fn inside a transaction scope. The top-level call opens a
// real transaction and applies the configured lock_timeout; calls nested
// under an already-open scope run inside a savepoint that is released on
// success and rolled back on error, leaving the outer transaction intact.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, ext sqlx.ExtContext) error) error {
	if scope, ok := ctx.Value(txCtxKey{}).(*txScope); ok {
		return s.withinSavepoint(ctx, scope, fn)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return TranslateError(err)
	}
	defer tx.Rollback()

	if s.lockTimeoutMS > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeoutMS)); err != nil {
			return TranslateError(err)
		}
	}

	scope := &txScope{tx: tx}
	ctx = context.WithValue(ctx, txCtxKey{}, scope)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return TranslateError(tx.Commit())
}

func (s *Store) withinSavepoint(ctx context.Context, scope *txScope, fn func(ctx context.Context, ext sqlx.ExtContext) error) error {
	scope.depth++
	name := fmt.Sprintf("sp_%d", scope.depth)
	defer func() { scope.depth-- }()

	if _, err := scope.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return TranslateError(err)
	}

	if err := fn(ctx, scope.tx); err != nil {
		if _, rbErr := scope.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return TranslateError(rbErr)
		}
		return err
	}

	if _, err := scope.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return TranslateError(err)
	}

	return nil
}

// TranslateError maps driver-level failures onto the store error taxonomy.
// Deterministic business errors pass through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03": // lock_not_available
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if pqErr.Code.Class() == "08" { // connection exceptions
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return err
	}

	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return err
}
