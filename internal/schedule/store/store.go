// Package store defines the rule persistence contract. Execute is the
// atomicity boundary for scheduling state: a rule's occurrence counter and
// next-due date only ever change inside one Execute mutation, so no reader
// observes one advanced without the other.
package store

import (
	"context"
	"time"

	"paychain/internal/schedule/models"
	"paychain/pkg/domain"
)

// Store is the rule persistence contract.
type Store interface {
	Create(ctx context.Context, rule *models.Rule) error
	FindByID(ctx context.Context, id domain.RuleID) (*models.Rule, error)
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Rule, error)

	// ListDue returns every active rule with a non-nil next-due date at or
	// before asOf, ordered by next-due date then rule ID for determinism.
	ListDue(ctx context.Context, asOf time.Time) ([]*models.Rule, error)

	// Execute atomically applies fn to the stored rule under the store's
	// lock (row lock in postgres, per-store mutex in memory). When fn
	// returns an error the mutation is discarded and the error returned.
	Execute(ctx context.Context, id domain.RuleID, fn func(*models.Rule) error) error

	Delete(ctx context.Context, id domain.RuleID) error
}
