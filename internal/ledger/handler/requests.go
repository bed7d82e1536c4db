package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	"paychain/pkg/derrors"
)

// TransferRequest is the HTTP request body for POST /transfers.
type TransferRequest struct {
	RecipientPrincipal string `json:"recipient_principal"`
	Amount             string `json:"amount"`
	Description        string `json:"description"`

	parsedAmount decimal.Decimal
}

// Validate validates and parses the request.
func (r *TransferRequest) Validate() error {
	r.RecipientPrincipal = strings.TrimSpace(r.RecipientPrincipal)
	if r.RecipientPrincipal == "" {
		return derrors.New(derrors.CodeBadRequest, "recipient_principal is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return derrors.New(derrors.CodeBadRequest, "amount must be a decimal number")
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return derrors.New(derrors.CodeBadRequest, "amount must be positive")
	}
	r.parsedAmount = amount

	r.Description = strings.TrimSpace(r.Description)
	if len(r.Description) > 256 {
		return derrors.New(derrors.CodeBadRequest, "description must be at most 256 characters")
	}
	return nil
}

// ParsedAmount returns the amount parsed by Validate.
func (r *TransferRequest) ParsedAmount() decimal.Decimal {
	return r.parsedAmount
}
