package models

import (
	"time"

	"github.com/shopspring/decimal"

	"paychain/pkg/domain"
)

// Receipt is the collectible artifact issued for one interactive transfer.
// The snapshot freezes the transfer details at issue time so later account
// changes never alter a receipt.
type Receipt struct {
	ID         domain.ReceiptID
	TransferID domain.TransferID
	AccountID  domain.AccountID
	ImageURL   string
	Snapshot   Snapshot
	IssuedAt   time.Time
}

// Snapshot is the immutable transfer summary embedded in a receipt.
type Snapshot struct {
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	TransferredAt time.Time       `json:"transferred_at"`
}
