// Package service implements the rule lifecycle around the schedule store:
// validated creation, patch-style edits that keep the next-due date
// consistent, and soft deactivation. The processor talks to the store
// directly; this service backs the user-facing CRUD surface.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"paychain/internal/calendar"
	"paychain/internal/schedule/models"
	"paychain/internal/schedule/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
	"paychain/pkg/requestcontext"
)

// LinkChecker reports whether transfers reference a rule. Implemented by the
// ledger store; kept as a local interface so this package does not depend on
// the ledger.
type LinkChecker interface {
	RuleHasTransfers(ctx context.Context, id domain.RuleID) (bool, error)
}

// Service orchestrates rule CRUD.
type Service struct {
	rules store.Store
	links LinkChecker
}

// New creates the rule service. links may be nil, in which case hard deletes
// are always permitted.
func New(rules store.Store, links LinkChecker) *Service {
	return &Service{rules: rules, links: links}
}

// CreateParams captures a new rule definition.
type CreateParams struct {
	AccountID          domain.AccountID
	RecipientPrincipal string
	Amount             decimal.Decimal
	Description        string
	Frequency          calendar.Frequency
	StartDate          time.Time
	EndDate            *time.Time
	MaxPayments        *int
}

// Create validates and stores a new rule. Invalid definitions are rejected
// synchronously and never stored.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Rule, error) {
	rule, err := models.NewRule(
		domain.NewRuleID(), params.AccountID, params.RecipientPrincipal,
		params.Amount, params.Description, params.Frequency,
		params.StartDate, params.EndDate, params.MaxPayments,
		requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "store rule failed")
	}
	return rule, nil
}

// Get returns one rule.
func (s *Service) Get(ctx context.Context, id domain.RuleID) (*models.Rule, error) {
	rule, err := s.rules.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "rule not found")
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "rule lookup failed")
	}
	return rule, nil
}

// ListByAccount returns the rules owned by an account.
func (s *Service) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Rule, error) {
	rules, err := s.rules.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "list rules failed")
	}
	return rules, nil
}

// UpdateParams is a patch: nil fields are left unchanged.
type UpdateParams struct {
	RecipientPrincipal *string
	Amount             *decimal.Decimal
	Description        *string
	Frequency          *calendar.Frequency
	StartDate          *time.Time
	EndDate            *time.Time
	ClearEndDate       bool
	MaxPayments        *int
	Active             *bool
}

// Update applies a user edit. Editing the start date or frequency recomputes
// the next-due date: from the last processed date when the rule has fired
// before, otherwise from the start date.
func (s *Service) Update(ctx context.Context, id domain.RuleID, params UpdateParams) (*models.Rule, error) {
	var updated *models.Rule
	err := s.rules.Execute(ctx, id, func(rule *models.Rule) error {
		if params.RecipientPrincipal != nil {
			if *params.RecipientPrincipal == "" {
				return derrors.New(derrors.CodeBadRequest, "recipient principal is required")
			}
			rule.RecipientPrincipal = *params.RecipientPrincipal
		}
		if params.Amount != nil {
			if params.Amount.Cmp(decimal.Zero) <= 0 {
				return derrors.New(derrors.CodeBadRequest, "amount must be positive")
			}
			rule.Amount = *params.Amount
		}
		if params.Description != nil {
			rule.Description = *params.Description
		}
		if params.MaxPayments != nil {
			if *params.MaxPayments <= 0 {
				return derrors.New(derrors.CodeBadRequest, "max payments must be positive")
			}
			mp := *params.MaxPayments
			rule.MaxPayments = &mp
		}
		if params.ClearEndDate {
			rule.EndDate = nil
		} else if params.EndDate != nil {
			end := calendar.DateOf(*params.EndDate)
			rule.EndDate = &end
		}

		scheduleChanged := false
		if params.StartDate != nil {
			rule.StartDate = calendar.DateOf(*params.StartDate)
			scheduleChanged = true
		}
		if params.Frequency != nil {
			if !params.Frequency.Valid() {
				return derrors.New(derrors.CodeBadRequest, "unknown frequency")
			}
			rule.Frequency = *params.Frequency
			scheduleChanged = true
		}
		if rule.Frequency == calendar.FrequencyOnce && rule.EndDate != nil {
			return derrors.New(derrors.CodeBadRequest, "a one-time payment cannot have an end date")
		}
		if rule.EndDate != nil && rule.EndDate.Before(rule.StartDate) {
			return derrors.New(derrors.CodeBadRequest, "end date is before start date")
		}
		if scheduleChanged {
			rule.Reschedule()
		}
		if params.Active != nil {
			rule.Active = *params.Active
			if rule.Active && rule.NextDue == nil {
				return derrors.New(derrors.CodeBadRequest, "rule has no further occurrences")
			}
		}
		rule.UpdatedAt = requestcontext.Now(ctx)
		cp := *rule
		updated = &cp
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "rule not found")
	}
	if err != nil {
		if derrors.CodeOf(err) != derrors.CodeInternal {
			return nil, err
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "update rule failed")
	}
	return updated, nil
}

// Deactivate soft-disables a rule; the preferred alternative to deletion.
func (s *Service) Deactivate(ctx context.Context, id domain.RuleID) (*models.Rule, error) {
	var updated *models.Rule
	err := s.rules.Execute(ctx, id, func(rule *models.Rule) error {
		rule.Deactivate(requestcontext.Now(ctx))
		cp := *rule
		updated = &cp
		return nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "rule not found")
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "deactivate rule failed")
	}
	return updated, nil
}

// Delete hard-removes a rule. Refused while any transfer references it —
// deactivate instead to keep the audit trail intact.
func (s *Service) Delete(ctx context.Context, id domain.RuleID) error {
	if s.links != nil {
		linked, err := s.links.RuleHasTransfers(ctx, id)
		if err != nil {
			return derrors.Wrap(err, derrors.CodeInternal, "link check failed")
		}
		if linked {
			return derrors.New(derrors.CodeConflict, "rule has recorded transfers; deactivate it instead")
		}
	}
	err := s.rules.Delete(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return derrors.New(derrors.CodeNotFound, "rule not found")
	}
	if err != nil {
		return derrors.Wrap(err, derrors.CodeInternal, "delete rule failed")
	}
	return nil
}
