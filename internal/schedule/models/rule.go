package models

import (
	"time"

	"github.com/shopspring/decimal"

	"paychain/internal/calendar"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
)

// Rule is one recurring-payment definition together with its mutable
// scheduling state. The schedule store owns NextDue, OccurrencesMade,
// LastProcessed and Active; they advance together, never independently.
//
// Invariant: an active rule has a non-nil NextDue. The only way an active
// rule loses its NextDue is the terminal ONCE step, which deactivates it in
// the same mutation.
type Rule struct {
	ID                 domain.RuleID
	AccountID          domain.AccountID
	RecipientPrincipal string
	Amount             decimal.Decimal
	Description        string
	Frequency          calendar.Frequency
	StartDate          time.Time
	EndDate            *time.Time
	MaxPayments        *int
	Active             bool
	NextDue            *time.Time
	OccurrencesMade    int
	LastProcessed      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewRule validates the definition and returns a rule ready to store:
// zero occurrences, first due date at the start date, active.
func NewRule(id domain.RuleID, accountID domain.AccountID, recipient string, amount decimal.Decimal, description string, freq calendar.Frequency, startDate time.Time, endDate *time.Time, maxPayments *int, now time.Time) (*Rule, error) {
	if accountID.IsNil() {
		return nil, derrors.New(derrors.CodeBadRequest, "owning account is required")
	}
	if recipient == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "recipient principal is required")
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, derrors.New(derrors.CodeBadRequest, "amount must be positive")
	}
	if !freq.Valid() {
		return nil, derrors.New(derrors.CodeBadRequest, "unknown frequency")
	}
	start := calendar.DateOf(startDate)
	if endDate != nil {
		if freq == calendar.FrequencyOnce {
			return nil, derrors.New(derrors.CodeBadRequest, "a one-time payment cannot have an end date")
		}
		end := calendar.DateOf(*endDate)
		if end.Before(start) {
			return nil, derrors.New(derrors.CodeBadRequest, "end date is before start date")
		}
		endDate = &end
	}
	if maxPayments != nil && *maxPayments <= 0 {
		return nil, derrors.New(derrors.CodeBadRequest, "max payments must be positive")
	}

	firstDue := start
	return &Rule{
		ID:                 id,
		AccountID:          accountID,
		RecipientPrincipal: recipient,
		Amount:             amount,
		Description:        description,
		Frequency:          freq,
		StartDate:          start,
		EndDate:            endDate,
		MaxPayments:        maxPayments,
		Active:             true,
		NextDue:            &firstDue,
		OccurrencesMade:    0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// DueAt reports whether the rule is due as of the given date.
func (r *Rule) DueAt(asOf time.Time) bool {
	return r.Active && r.NextDue != nil && !r.NextDue.After(calendar.DateOf(asOf))
}

// Exhausted reports whether the rule has reached its payment cap.
func (r *Rule) Exhausted() bool {
	return r.MaxPayments != nil && r.OccurrencesMade >= *r.MaxPayments
}

// ExpiredAt reports whether the rule's end date lies before asOf.
func (r *Rule) ExpiredAt(asOf time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(calendar.DateOf(asOf))
}

// RecordOccurrence advances the scheduling state after one successful
// transfer: occurrence counter, last-processed timestamp and next due date
// move together. The rule deactivates on the terminal ONCE step and on
// exhaustion.
func (r *Rule) RecordOccurrence(asOf, now time.Time) {
	r.OccurrencesMade++
	r.LastProcessed = &now
	r.NextDue = calendar.NextOccurrence(asOf, r.Frequency)
	if r.Frequency == calendar.FrequencyOnce || r.Exhausted() {
		r.Active = false
	}
	r.UpdatedAt = now
}

// Deactivate soft-disables the rule, the preferred end state for audit
// integrity.
func (r *Rule) Deactivate(now time.Time) {
	r.Active = false
	r.UpdatedAt = now
}

// Reschedule recomputes NextDue after a user edit of the start date or
// frequency: from the last processed date when the rule has fired before,
// otherwise from the start date.
func (r *Rule) Reschedule() {
	if r.LastProcessed != nil {
		r.NextDue = calendar.NextOccurrence(calendar.DateOf(*r.LastProcessed), r.Frequency)
		return
	}
	start := r.StartDate
	r.NextDue = &start
}
