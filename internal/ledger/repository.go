package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"feewallet/internal/db"
)

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Append(ctx context.Context, ext sqlx.ExtContext, txn Transaction) (*Transaction, error) {
	err := sqlx.GetContext(ctx, ext, &txn,
		`INSERT INTO transactions (account_id, type, status, amount, description, collection_id, student_id, external_transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, account_id, type, status, amount, timestamp, description, collection_id, student_id, external_transaction_id`,
		txn.AccountID, txn.Type, txn.Status, txn.Amount,
		txn.Description, txn.CollectionID, txn.StudentID, txn.ExternalTransactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", db.TranslateError(err))
	}

	return &txn, nil
}

func (r *repository) ListByAccount(ctx context.Context, ext sqlx.ExtContext, accountID string, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	txns := []Transaction{}
	err := sqlx.SelectContext(ctx, ext, &txns,
		`SELECT id, account_id, type, status, amount, timestamp, description, collection_id, student_id, external_transaction_id
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY timestamp DESC
		 LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", db.TranslateError(err))
	}

	return txns, nil
}

// SummarizePayments totals COMPLETED PAYMENT amounts for every requested
// pair in a single grouped query; cost stays bounded by the batch size, not
// by one round-trip per pair. Results come back in request order.
func (r *repository) SummarizePayments(ctx context.Context, ext sqlx.ExtContext, pairs []SummaryPair) ([]PaymentSummary, error) {
	if len(pairs) == 0 {
		return []PaymentSummary{}, nil
	}

	conds := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	for i, pair := range pairs {
		conds = append(conds, fmt.Sprintf("(collection_id = $%d AND student_id = $%d)", i*2+1, i*2+2))
		args = append(args, pair.CollectionID, pair.StudentID)
	}

	query := `
		SELECT collection_id, student_id, COALESCE(SUM(amount), 0.00) AS total_paid
		FROM transactions
		WHERE type = 'PAYMENT' AND status = 'COMPLETED'
		  AND (` + strings.Join(conds, " OR ") + `)
		GROUP BY collection_id, student_id`

	rows := []PaymentSummary{}
	if err := sqlx.SelectContext(ctx, ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("summarize payments: %w", db.TranslateError(err))
	}

	totals := make(map[SummaryPair]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[SummaryPair{CollectionID: row.CollectionID, StudentID: row.StudentID}] = row.TotalPaid
	}

	summaries := make([]PaymentSummary, 0, len(pairs))
	for _, pair := range pairs {
		total, ok := totals[pair]
		if !ok {
			total = decimal.Zero
		}
		summaries = append(summaries, PaymentSummary{
			CollectionID: pair.CollectionID,
			StudentID:    pair.StudentID,
			TotalPaid:    total,
		})
	}

	return summaries, nil
}
