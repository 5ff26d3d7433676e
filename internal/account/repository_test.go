package account

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func accountRows(id, userID string, balance string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}).
		AddRow(id, userID, balance, now, now)
}

func TestFindByUserID_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(accountRows("acct-1", "user-1", "50.00"))

	acct, err := repo.FindByUserID(context.Background(), db, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "acct-1", acct.ID)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("50.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUserID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}))

	acct, err := repo.FindByUserID(context.Background(), db, "missing")

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Nil(t, acct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_Existing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(accountRows("acct-1", "user-1", "12.50"))

	acct, err := repo.GetOrCreate(context.Background(), db, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "acct-1", acct.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_CreatesOnMiss(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts (user_id) VALUES ($1) RETURNING id, user_id, balance, created_at, updated_at")).
		WithArgs("user-2").
		WillReturnRows(accountRows("acct-2", "user-2", "0.00"))

	acct, err := repo.GetOrCreate(context.Background(), db, "user-2")

	require.NoError(t, err)
	assert.Equal(t, "acct-2", acct.ID)
	assert.True(t, acct.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreate_LostCreateRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("user-3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts (user_id)")).
		WithArgs("user-3").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance, created_at, updated_at FROM accounts WHERE user_id = $1")).
		WithArgs("user-3").
		WillReturnRows(accountRows("acct-3", "user-3", "0.00"))

	acct, err := repo.GetOrCreate(context.Background(), db, "user-3")

	require.NoError(t, err)
	assert.Equal(t, "acct-3", acct.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceLocked_Credit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("acct-1").
		WillReturnRows(accountRows("acct-1", "user-1", "10.00"))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(decimal.RequireFromString("35.50"), "acct-1").
		WillReturnRows(accountRows("acct-1", "user-1", "35.50"))

	acct, err := repo.AdjustBalanceLocked(context.Background(), db, "acct-1", decimal.RequireFromString("25.50"))

	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("35.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceLocked_InsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("acct-1").
		WillReturnRows(accountRows("acct-1", "user-1", "10.00"))

	acct, err := repo.AdjustBalanceLocked(context.Background(), db, "acct-1", decimal.RequireFromString("-10.01"))

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Nil(t, acct)
	// No UPDATE was expected: the debit must not reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceLocked_ExactBalanceDebit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("acct-1").
		WillReturnRows(accountRows("acct-1", "user-1", "10.00"))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(decimal.RequireFromString("0.00"), "acct-1").
		WillReturnRows(accountRows("acct-1", "user-1", "0.00"))

	acct, err := repo.AdjustBalanceLocked(context.Background(), db, "acct-1", decimal.RequireFromString("-10.00"))

	require.NoError(t, err)
	assert.True(t, acct.Balance.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalanceLocked_MissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository()

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance", "created_at", "updated_at"}))

	acct, err := repo.AdjustBalanceLocked(context.Background(), db, "ghost", decimal.RequireFromString("5.00"))

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Nil(t, acct)
	assert.NoError(t, mock.ExpectationsWereMet())
}
