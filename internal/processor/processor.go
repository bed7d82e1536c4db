// Package processor runs the due cycle: it selects due rules, moves the
// money through the ledger exactly once per due occurrence, and advances
// each rule's schedule. The processor owns no persistent state of its own.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"paychain/internal/calendar"
	ledgermodels "paychain/internal/ledger/models"
	"paychain/internal/processor/metrics"
	"paychain/internal/schedule/models"
	"paychain/internal/schedule/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/requestcontext"
)

// Ledger is the slice of the ledger service the processor needs.
type Ledger interface {
	ResolveRecipient(ctx context.Context, principal string) (*ledgermodels.Account, error)
	Balance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to domain.AccountID, amount decimal.Decimal, description string, ruleID *domain.RuleID) (*ledgermodels.Transfer, error)
	RuleTransferCount(ctx context.Context, id domain.RuleID) (int, error)
}

// Processor coordinates due cycles over the rule store and the ledger.
type Processor struct {
	rules    store.Store
	ledger   Ledger
	leaser   Leaser
	logger   *slog.Logger
	metrics  *metrics.Metrics
	leaseTTL time.Duration
}

// Option configures the Processor.
type Option func(*Processor)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLeaseTTL overrides the default one-minute rule lease TTL.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(p *Processor) { p.leaseTTL = ttl }
}

// New creates a Processor.
func New(rules store.Store, ledger Ledger, leaser Leaser, logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		rules:    rules,
		ledger:   ledger,
		leaser:   leaser,
		logger:   logger,
		leaseTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunDueCycle processes every rule due as of the given date and returns the
// cycle report. Rules are processed independently: one rule's failure never
// aborts the others. Only a failure to read the due list at all is fatal to
// the cycle.
//
// Checkpoint granularity is one rule: cancelling ctx between rules leaves
// every processed rule fully consistent and every unprocessed rule untouched.
func (p *Processor) RunDueCycle(ctx context.Context, asOf time.Time) (*Report, error) {
	asOf = calendar.DateOf(asOf)
	start := time.Now()

	due, err := p.rules.ListDue(ctx, asOf)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "read due rules failed")
	}

	report := &Report{AsOf: asOf}
	for _, rule := range due {
		if err := ctx.Err(); err != nil {
			return report, derrors.Wrap(err, derrors.CodeInternal, "due cycle interrupted")
		}
		p.processRule(ctx, asOf, rule.ID, report)
	}

	if p.metrics != nil {
		p.metrics.CyclesRun.Inc()
		p.metrics.ObserveCycle(start)
	}
	p.logger.InfoContext(ctx, "due cycle finished",
		"as_of", asOf.Format(time.DateOnly),
		"due", len(due),
		"processed", report.Processed,
		"skipped_insufficient_funds", report.SkippedInsufficient,
		"skipped_no_recipient", report.SkippedNoRecipient,
		"deactivated_expired", report.DeactivatedExpired,
		"deactivated_exhausted", report.DeactivatedExhausted,
		"repaired", report.Repaired,
		"failed", report.Failed,
	)
	return report, nil
}

// errNoLongerDue aborts a schedule mutation when the leased rule turned out
// to be already handled (or edited away from dueness) since the due list was
// read.
var errNoLongerDue = errors.New("rule no longer due")

func (p *Processor) processRule(ctx context.Context, asOf time.Time, id domain.RuleID, report *Report) {
	token, acquired, err := p.leaser.Acquire(ctx, id, p.leaseTTL)
	if err != nil {
		p.ruleFailed(ctx, id, report, fmt.Errorf("acquire lease: %w", err))
		return
	}
	if !acquired {
		// Another cycle holds this rule; it will handle the occurrence.
		report.SkippedContended++
		p.skipped(ctx, id, "contended")
		return
	}
	defer func() {
		if err := p.leaser.Release(ctx, id, token); err != nil {
			p.logger.WarnContext(ctx, "rule lease release failed",
				"rule_id", id.String(),
				"error", err.Error(),
			)
		}
	}()

	// Re-read under the lease: the due list snapshot may be stale by the
	// time this rule's turn comes.
	rule, err := p.rules.FindByID(ctx, id)
	if err != nil {
		p.ruleFailed(ctx, id, report, fmt.Errorf("reload rule: %w", err))
		return
	}
	if !rule.DueAt(asOf) {
		report.SkippedContended++
		p.skipped(ctx, id, "no longer due")
		return
	}

	now := requestcontext.Now(ctx)

	if rule.Exhausted() {
		if err := p.deactivate(ctx, id, now); err != nil {
			p.ruleFailed(ctx, id, report, err)
			return
		}
		report.DeactivatedExhausted++
		p.skipped(ctx, id, "exhausted")
		return
	}
	if rule.ExpiredAt(asOf) {
		if err := p.deactivate(ctx, id, now); err != nil {
			p.ruleFailed(ctx, id, report, err)
			return
		}
		report.DeactivatedExpired++
		p.skipped(ctx, id, "expired")
		return
	}

	// A prior cycle may have committed the transfer and then lost the
	// schedule advance. The rule link count is the ground truth for how many
	// occurrences were actually paid; when it runs ahead of the rule's own
	// counter, advance the schedule without moving money again.
	paid, err := p.ledger.RuleTransferCount(ctx, id)
	if err != nil {
		p.ruleFailed(ctx, id, report, err)
		return
	}
	if paid > rule.OccurrencesMade {
		if err := p.advance(ctx, id, asOf, now); err != nil {
			p.ruleFailed(ctx, id, report, err)
			return
		}
		report.Repaired++
		p.logger.WarnContext(ctx, "schedule advance repaired",
			"rule_id", id.String(),
			"transfers_linked", paid,
			"occurrences_recorded", rule.OccurrencesMade,
		)
		if p.metrics != nil {
			p.metrics.RulesSkipped.WithLabelValues("advance repaired").Inc()
		}
		return
	}

	recipient, err := p.ledger.ResolveRecipient(ctx, rule.RecipientPrincipal)
	if err != nil {
		if derrors.HasCode(err, derrors.CodeNotFound) {
			// Soft skip: the rule stays active and due, retried next cycle.
			report.SkippedNoRecipient++
			p.skipped(ctx, id, "recipient not found")
			return
		}
		p.ruleFailed(ctx, id, report, err)
		return
	}

	balance, err := p.ledger.Balance(ctx, rule.AccountID)
	if err != nil {
		p.ruleFailed(ctx, id, report, err)
		return
	}
	if balance.Cmp(rule.Amount) < 0 {
		// Soft skip: the rule stays active and due, retried next cycle.
		report.SkippedInsufficient++
		p.skipped(ctx, id, "insufficient funds")
		return
	}

	description := fmt.Sprintf("%s (Automated payment #%d)", rule.Description, rule.OccurrencesMade+1)
	transfer, err := p.ledger.Transfer(ctx, rule.AccountID, recipient.ID, rule.Amount, description, &rule.ID)
	if err != nil {
		// Hard failure for this rule only: nothing was applied, the rule is
		// untouched, the cycle moves on.
		p.ruleFailed(ctx, id, report, err)
		return
	}

	if err := p.advance(ctx, id, asOf, now); err != nil {
		// The transfer is committed and its rule link recorded; only the
		// schedule advance failed. The next cycle repairs it from the link
		// count before paying again.
		p.logger.ErrorContext(ctx, "schedule advance failed after transfer",
			"rule_id", id.String(),
			"transfer_id", transfer.ID.String(),
			"error", err.Error(),
		)
		report.Failed++
		if p.metrics != nil {
			p.metrics.RuleFailures.Inc()
		}
		return
	}

	report.Processed++
	report.Transfers = append(report.Transfers, transfer)
	if p.metrics != nil {
		p.metrics.RulesProcessed.Inc()
	}
}

// advance records the occurrence and moves the schedule forward, guarded by a
// dueness re-check inside the conditional mutation.
func (p *Processor) advance(ctx context.Context, id domain.RuleID, asOf, now time.Time) error {
	return p.rules.Execute(ctx, id, func(r *models.Rule) error {
		if !r.DueAt(asOf) {
			return errNoLongerDue
		}
		r.RecordOccurrence(asOf, now)
		return nil
	})
}

func (p *Processor) deactivate(ctx context.Context, id domain.RuleID, now time.Time) error {
	return p.rules.Execute(ctx, id, func(r *models.Rule) error {
		r.Deactivate(now)
		return nil
	})
}

func (p *Processor) skipped(ctx context.Context, id domain.RuleID, reason string) {
	p.logger.InfoContext(ctx, "rule skipped",
		"rule_id", id.String(),
		"reason", reason,
	)
	if p.metrics != nil {
		p.metrics.RulesSkipped.WithLabelValues(reason).Inc()
	}
}

func (p *Processor) ruleFailed(ctx context.Context, id domain.RuleID, report *Report, err error) {
	p.logger.ErrorContext(ctx, "rule processing failed",
		"rule_id", id.String(),
		"error", err.Error(),
	)
	report.Failed++
	if p.metrics != nil {
		p.metrics.RuleFailures.Inc()
	}
}
