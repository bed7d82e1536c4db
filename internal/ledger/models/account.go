package models

import (
	"time"

	"github.com/shopspring/decimal"

	"paychain/pkg/domain"
)

// Account holds the balance for one principal. Balances are mutated only
// through ledger transfers; the ledger does not enforce a non-negative
// balance — the pre-check belongs to callers.
type Account struct {
	ID        domain.AccountID
	Principal string
	Balance   decimal.Decimal
	CreatedAt time.Time
}
