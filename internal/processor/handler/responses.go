package handler

import (
	"time"

	ledgerhandler "paychain/internal/ledger/handler"
	"paychain/internal/processor"
)

// ReportResponse is the HTTP shape of one due-cycle report. Transfers reuse
// the ledger's transfer shape so the admin endpoint serializes them the same
// way GET /transfers does.
type ReportResponse struct {
	AsOf                 string                            `json:"as_of"`
	Processed            int                               `json:"processed"`
	SkippedInsufficient  int                               `json:"skipped_insufficient_funds"`
	SkippedNoRecipient   int                               `json:"skipped_no_recipient"`
	DeactivatedExpired   int                               `json:"deactivated_expired"`
	DeactivatedExhausted int                               `json:"deactivated_exhausted"`
	Repaired             int                               `json:"repaired"`
	Failed               int                               `json:"failed"`
	SkippedContended     int                               `json:"skipped_contended"`
	Transfers            []*ledgerhandler.TransferResponse `json:"transfers"`
}

// FromReport converts a due-cycle report to its HTTP shape.
func FromReport(report *processor.Report) *ReportResponse {
	return &ReportResponse{
		AsOf:                 report.AsOf.Format(time.DateOnly),
		Processed:            report.Processed,
		SkippedInsufficient:  report.SkippedInsufficient,
		SkippedNoRecipient:   report.SkippedNoRecipient,
		DeactivatedExpired:   report.DeactivatedExpired,
		DeactivatedExhausted: report.DeactivatedExhausted,
		Repaired:             report.Repaired,
		Failed:               report.Failed,
		SkippedContended:     report.SkippedContended,
		Transfers:            ledgerhandler.FromTransfers(report.Transfers),
	}
}
