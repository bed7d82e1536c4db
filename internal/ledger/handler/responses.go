package handler

import (
	"time"

	"paychain/internal/ledger/models"
)

// TransferResponse is the HTTP shape of one recorded transfer.
type TransferResponse struct {
	ID          string    `json:"id"`
	From        string    `json:"from_account_id"`
	To          string    `json:"to_account_id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	RuleID      *string   `json:"rule_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// BalanceResponse is the HTTP response for GET /accounts/balance.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Principal string `json:"principal"`
	Balance   string `json:"balance"`
}

// FromTransfer converts a domain transfer to its HTTP shape.
func FromTransfer(t *models.Transfer) *TransferResponse {
	resp := &TransferResponse{
		ID:          t.ID.String(),
		From:        t.From.String(),
		To:          t.To.String(),
		Amount:      t.Amount.String(),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
	if t.RuleID != nil {
		ruleID := t.RuleID.String()
		resp.RuleID = &ruleID
	}
	return resp
}

// FromTransfers converts a list of transfers, never returning a nil slice.
func FromTransfers(transfers []*models.Transfer) []*TransferResponse {
	out := make([]*TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, FromTransfer(t))
	}
	return out
}
