package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a holder wallet keyed by the external user id. The balance is
// a scale-2 decimal and never goes negative at any committed state.
type Account struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Balance   decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
