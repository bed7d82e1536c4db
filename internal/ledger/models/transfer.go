package models

import (
	"time"

	"github.com/shopspring/decimal"

	"paychain/pkg/domain"
)

// Transfer is the immutable record of one completed fund movement. RuleID is
// set when the transfer was produced by a scheduled rule.
type Transfer struct {
	ID          domain.TransferID
	From        domain.AccountID
	To          domain.AccountID
	Amount      decimal.Decimal
	Description string
	RuleID      *domain.RuleID
	CreatedAt   time.Time
}

// RuleTransferLink associates one rule occurrence with the transfer it
// produced. It is written atomically with the transfer so the audit trail
// cannot show an occurrence without its money movement.
type RuleTransferLink struct {
	RuleID      domain.RuleID
	TransferID  domain.TransferID
	ProcessedAt time.Time
}
