package collection

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionAccount pools the payments of many holders toward one
// collection. Keyed by the collection id issued by the collections service.
type CollectionAccount struct {
	ID           string          `db:"id" json:"id"`
	CollectionID string          `db:"collection_id" json:"collection_id"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
