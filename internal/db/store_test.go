package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func setupStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	store := NewStore(sqlxDB, 5000)

	closer := func() { sqlxDB.Close() }
	return store, mock, closer
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	store, mock, close := setupStoreMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '5000ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance = balance")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, ext sqlx.ExtContext) error {
		_, err := ext.ExecContext(ctx, "UPDATE accounts SET balance = balance")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store, mock, close := setupStoreMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '5000ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("insufficient funds")
	err := store.WithinTx(context.Background(), func(ctx context.Context, ext sqlx.ExtContext) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedCallUsesSavepoint(t *testing.T) {
	store, mock, close := setupStoreMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '5000ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT sp_1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT sp_1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, ext sqlx.ExtContext) error {
		return store.WithinTx(ctx, func(ctx context.Context, ext sqlx.ExtContext) error {
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_NestedErrorRollsBackToSavepoint(t *testing.T) {
	store, mock, close := setupStoreMock(t)
	defer close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '5000ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SAVEPOINT sp_1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT sp_1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	boom := errors.New("insufficient funds")
	err := store.WithinTx(context.Background(), func(ctx context.Context, ext sqlx.ExtContext) error {
		innerErr := store.WithinTx(ctx, func(ctx context.Context, ext sqlx.ExtContext) error {
			return boom
		})
		require.ErrorIs(t, innerErr, boom)
		// The outer scope survives the inner rollback.
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	require.NoError(t, TranslateError(nil))

	lockErr := TranslateError(&pq.Error{Code: "55P03"})
	require.ErrorIs(t, lockErr, ErrLockTimeout)

	deadlockErr := TranslateError(&pq.Error{Code: "40P01"})
	require.ErrorIs(t, deadlockErr, ErrStoreUnavailable)

	serialErr := TranslateError(&pq.Error{Code: "40001"})
	require.ErrorIs(t, serialErr, ErrStoreUnavailable)

	connErr := TranslateError(&pq.Error{Code: "08006"})
	require.ErrorIs(t, connErr, ErrStoreUnavailable)

	txDone := TranslateError(sql.ErrTxDone)
	require.ErrorIs(t, txDone, ErrStoreUnavailable)

	// Business and constraint errors pass through untouched.
	unique := &pq.Error{Code: "23505"}
	require.Equal(t, error(unique), TranslateError(unique))
}
