// Package events defines the outbound event contract. Completed transfers
// are published for downstream consumers (receipts, tagging, analytics)
// which never re-enter the core.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCompleted is emitted once per successful transfer.
type TransferCompleted struct {
	TransferID    string          `json:"transfer_id"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	RuleID        string          `json:"rule_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	ScheduledRule bool            `json:"scheduled_rule"`
}

// Publisher delivers events to downstream consumers. Publishing is
// best-effort for the money path: the ledger logs a failed publish but never
// rolls back a committed transfer because of it.
type Publisher interface {
	PublishTransferCompleted(ctx context.Context, event TransferCompleted) error
}

// Noop discards all events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishTransferCompleted(context.Context, TransferCompleted) error { return nil }

// Fanout delivers each event to every publisher. Delivery keeps going past
// failures; the first error is returned after all publishers ran.
type Fanout []Publisher

func (f Fanout) PublishTransferCompleted(ctx context.Context, event TransferCompleted) error {
	var first error
	for _, p := range f {
		if err := p.PublishTransferCompleted(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
