package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	ledgermodels "paychain/internal/ledger/models"
	"paychain/internal/processor"
	"paychain/pkg/domain"
)

type stubRunner struct {
	report   *processor.Report
	lastAsOf time.Time
}

func (r *stubRunner) RunDueCycle(_ context.Context, asOf time.Time) (*processor.Report, error) {
	r.lastAsOf = asOf
	return r.report, nil
}

func newAdminRouter(report *processor.Report) (chi.Router, *stubRunner) {
	runner := &stubRunner{report: report}
	router := chi.NewRouter()
	New(runner, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)
	return router, runner
}

func TestRunEndpointSerializesTransfersAsJSONShapes(t *testing.T) {
	ruleID := domain.NewRuleID()
	transfer := &ledgermodels.Transfer{
		ID:          domain.NewTransferID(),
		From:        domain.NewAccountID(),
		To:          domain.NewAccountID(),
		Amount:      decimal.NewFromInt(25),
		Description: "rent (Automated payment #1)",
		RuleID:      &ruleID,
		CreatedAt:   time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	router, _ := newAdminRouter(&processor.Report{
		AsOf:      time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Processed: 1,
		Transfers: []*ledgermodels.Transfer{transfer},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/due-cycle/run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AsOf      string `json:"as_of"`
		Processed int    `json:"processed"`
		Transfers []struct {
			ID     string  `json:"id"`
			From   string  `json:"from_account_id"`
			To     string  `json:"to_account_id"`
			Amount string  `json:"amount"`
			RuleID *string `json:"rule_id"`
		} `json:"transfers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if resp.AsOf != "2024-01-01" || resp.Processed != 1 {
		t.Fatalf("unexpected report header: %+v", resp)
	}
	if len(resp.Transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(resp.Transfers))
	}
	got := resp.Transfers[0]
	if got.ID != transfer.ID.String() || got.From != transfer.From.String() || got.To != transfer.To.String() {
		t.Fatalf("transfer ids must serialize as UUID strings, got %+v", got)
	}
	if got.Amount != "25" {
		t.Fatalf("expected amount 25, got %q", got.Amount)
	}
	if got.RuleID == nil || *got.RuleID != ruleID.String() {
		t.Fatalf("expected rule id %s, got %v", ruleID.String(), got.RuleID)
	}
}

func TestRunEndpointParsesAsOf(t *testing.T) {
	router, runner := newAdminRouter(&processor.Report{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/due-cycle/run?as_of=2024-03-15", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := runner.lastAsOf.Format(time.DateOnly); got != "2024-03-15" {
		t.Fatalf("expected as_of 2024-03-15 forwarded to the runner, got %s", got)
	}
}

func TestRunEndpointRejectsMalformedAsOf(t *testing.T) {
	router, _ := newAdminRouter(&processor.Report{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/due-cycle/run?as_of=March-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed as_of, got %d", rec.Code)
	}
}
