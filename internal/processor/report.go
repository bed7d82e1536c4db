package processor

import (
	"time"

	"paychain/internal/ledger/models"
)

// Report summarizes one due cycle.
type Report struct {
	AsOf                 time.Time          `json:"as_of"`
	Processed            int                `json:"processed"`
	SkippedInsufficient  int                `json:"skipped_insufficient_funds"`
	SkippedNoRecipient   int                `json:"skipped_no_recipient"`
	DeactivatedExpired   int                `json:"deactivated_expired"`
	DeactivatedExhausted int                `json:"deactivated_exhausted"`
	Repaired             int                `json:"repaired"`
	Failed               int                `json:"failed"`
	SkippedContended     int                `json:"skipped_contended"`
	Transfers            []*models.Transfer `json:"transfers"`
}

// Total returns how many due rules the cycle examined.
func (r *Report) Total() int {
	return r.Processed + r.SkippedInsufficient + r.SkippedNoRecipient +
		r.DeactivatedExpired + r.DeactivatedExhausted + r.Repaired +
		r.Failed + r.SkippedContended
}
