package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"paychain/internal/calendar"
	"paychain/pkg/derrors"
)

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, derrors.New(derrors.CodeBadRequest, field+" must be a YYYY-MM-DD date")
	}
	return t, nil
}

// CreateRuleRequest is the HTTP request body for POST /scheduled-payments.
type CreateRuleRequest struct {
	RecipientPrincipal string `json:"recipient_principal"`
	Amount             string `json:"amount"`
	Description        string `json:"description"`
	Frequency          string `json:"frequency"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date,omitempty"`
	MaxPayments        *int   `json:"max_payments,omitempty"`

	parsedAmount    decimal.Decimal
	parsedFrequency calendar.Frequency
	parsedStart     time.Time
	parsedEnd       *time.Time
}

// Validate validates and parses the request. Cross-field rules (end date vs
// frequency, end before start) live in the rule model; this only covers
// syntax.
func (r *CreateRuleRequest) Validate() error {
	r.RecipientPrincipal = strings.TrimSpace(r.RecipientPrincipal)
	if r.RecipientPrincipal == "" {
		return derrors.New(derrors.CodeBadRequest, "recipient_principal is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return derrors.New(derrors.CodeBadRequest, "amount must be a decimal number")
	}
	r.parsedAmount = amount

	freq := calendar.Frequency(strings.ToUpper(strings.TrimSpace(r.Frequency)))
	if !freq.Valid() {
		return derrors.New(derrors.CodeBadRequest, "unknown frequency")
	}
	r.parsedFrequency = freq

	if r.StartDate == "" {
		return derrors.New(derrors.CodeBadRequest, "start_date is required")
	}
	start, err := parseDate(r.StartDate, "start_date")
	if err != nil {
		return err
	}
	r.parsedStart = start

	if r.EndDate != "" {
		end, err := parseDate(r.EndDate, "end_date")
		if err != nil {
			return err
		}
		r.parsedEnd = &end
	}

	r.Description = strings.TrimSpace(r.Description)
	if len(r.Description) > 256 {
		return derrors.New(derrors.CodeBadRequest, "description must be at most 256 characters")
	}
	return nil
}

// UpdateRuleRequest is the HTTP request body for PATCH
// /scheduled-payments/{id}. Absent fields are left unchanged; an explicit
// empty end_date clears the end date.
type UpdateRuleRequest struct {
	RecipientPrincipal *string `json:"recipient_principal,omitempty"`
	Amount             *string `json:"amount,omitempty"`
	Description        *string `json:"description,omitempty"`
	Frequency          *string `json:"frequency,omitempty"`
	StartDate          *string `json:"start_date,omitempty"`
	EndDate            *string `json:"end_date,omitempty"`
	MaxPayments        *int    `json:"max_payments,omitempty"`
	Active             *bool   `json:"active,omitempty"`

	parsedAmount    *decimal.Decimal
	parsedFrequency *calendar.Frequency
	parsedStart     *time.Time
	parsedEnd       *time.Time
	clearEndDate    bool
}

// Validate validates and parses the patch.
func (r *UpdateRuleRequest) Validate() error {
	if r.Amount != nil {
		amount, err := decimal.NewFromString(strings.TrimSpace(*r.Amount))
		if err != nil {
			return derrors.New(derrors.CodeBadRequest, "amount must be a decimal number")
		}
		r.parsedAmount = &amount
	}
	if r.Frequency != nil {
		freq := calendar.Frequency(strings.ToUpper(strings.TrimSpace(*r.Frequency)))
		if !freq.Valid() {
			return derrors.New(derrors.CodeBadRequest, "unknown frequency")
		}
		r.parsedFrequency = &freq
	}
	if r.StartDate != nil {
		start, err := parseDate(*r.StartDate, "start_date")
		if err != nil {
			return err
		}
		r.parsedStart = &start
	}
	if r.EndDate != nil {
		if *r.EndDate == "" {
			r.clearEndDate = true
		} else {
			end, err := parseDate(*r.EndDate, "end_date")
			if err != nil {
				return err
			}
			r.parsedEnd = &end
		}
	}
	if r.Description != nil && len(*r.Description) > 256 {
		return derrors.New(derrors.CodeBadRequest, "description must be at most 256 characters")
	}
	return nil
}
