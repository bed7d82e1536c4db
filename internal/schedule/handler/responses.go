package handler

import (
	"time"

	"paychain/internal/schedule/models"
)

// RuleResponse is the HTTP shape of one scheduled payment rule.
type RuleResponse struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	RecipientPrincipal string    `json:"recipient_principal"`
	Amount             string    `json:"amount"`
	Description        string    `json:"description"`
	Frequency          string    `json:"frequency"`
	StartDate          string    `json:"start_date"`
	EndDate            *string   `json:"end_date,omitempty"`
	MaxPayments        *int      `json:"max_payments,omitempty"`
	Active             bool      `json:"active"`
	NextDue            *string   `json:"next_payment_date,omitempty"`
	OccurrencesMade    int       `json:"payments_made"`
	LastProcessed      *string   `json:"last_processed,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

// FromRule converts a domain rule to its HTTP shape.
func FromRule(rule *models.Rule) *RuleResponse {
	resp := &RuleResponse{
		ID:                 rule.ID.String(),
		AccountID:          rule.AccountID.String(),
		RecipientPrincipal: rule.RecipientPrincipal,
		Amount:             rule.Amount.String(),
		Description:        rule.Description,
		Frequency:          string(rule.Frequency),
		StartDate:          rule.StartDate.Format(time.DateOnly),
		EndDate:            dateString(rule.EndDate),
		MaxPayments:        rule.MaxPayments,
		Active:             rule.Active,
		NextDue:            dateString(rule.NextDue),
		OccurrencesMade:    rule.OccurrencesMade,
		CreatedAt:          rule.CreatedAt,
		UpdatedAt:          rule.UpdatedAt,
	}
	if rule.LastProcessed != nil {
		s := rule.LastProcessed.Format(time.RFC3339)
		resp.LastProcessed = &s
	}
	return resp
}

// FromRules converts a list of rules, never returning a nil slice.
func FromRules(rules []*models.Rule) []*RuleResponse {
	out := make([]*RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, FromRule(rule))
	}
	return out
}
