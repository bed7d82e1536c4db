// Package store persists receipts. Implementations return
// sentinel.ErrNotFound and sentinel.ErrConflict; the service translates.
package store

import (
	"context"

	"paychain/internal/receipts/models"
	"paychain/pkg/domain"
)

// Store is the receipt persistence contract. A transfer carries at most one
// receipt; Create reports a conflict for a second receipt on the same
// transfer.
type Store interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByTransfer(ctx context.Context, transferID domain.TransferID) (*models.Receipt, error)
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Receipt, error)
}
