// Package store defines the ledger persistence contract and its
// implementations. ApplyTransfer is the atomicity boundary: debit, credit,
// transfer record and optional rule link commit together or not at all.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"paychain/internal/ledger/models"
	"paychain/pkg/domain"
)

// Store is the ledger persistence contract.
type Store interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	FindAccount(ctx context.Context, id domain.AccountID) (*models.Account, error)
	FindAccountByPrincipal(ctx context.Context, principal string) (*models.Account, error)
	Balance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error)

	// ApplyTransfer debits transfer.From, credits transfer.To, records the
	// transfer, and writes link when non-nil — all in one transaction.
	// Failure leaves balances untouched.
	ApplyTransfer(ctx context.Context, transfer *models.Transfer, link *models.RuleTransferLink) error

	FindTransfer(ctx context.Context, id domain.TransferID) (*models.Transfer, error)
	ListTransfers(ctx context.Context) ([]*models.Transfer, error)
	ListTransfersByAccount(ctx context.Context, id domain.AccountID) ([]*models.Transfer, error)

	// RuleHasTransfers reports whether any transfer is linked to the rule.
	// The schedule service refuses hard deletion while this holds.
	RuleHasTransfers(ctx context.Context, id domain.RuleID) (bool, error)

	// CountRuleTransfers returns how many transfers are linked to the rule.
	// The processor compares this against the rule's occurrence count to
	// detect a committed transfer whose schedule advance never landed.
	CountRuleTransfers(ctx context.Context, id domain.RuleID) (int, error)
}
