package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paychain/internal/ledger"
	ledgerstore "paychain/internal/ledger/store"
	"paychain/internal/platform/middleware"
	"paychain/internal/schedule/service"
	"paychain/internal/schedule/store"
)

func newRuleRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledgerSt := ledgerstore.NewInMemory()
	accounts := ledger.New(ledgerSt, logger)
	for _, principal := range []string{"alice", "bob"} {
		if _, err := accounts.CreateAccount(context.Background(), principal, decimal.NewFromInt(100)); err != nil {
			t.Fatalf("seed account %s: %v", principal, err)
		}
	}
	rules := service.New(store.NewInMemory(), ledgerSt)
	router := chi.NewRouter()
	router.Use(middleware.Principal)
	New(rules, accounts, logger).Register(router)
	return router
}

func doJSON(router chi.Router, method, target, principal string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		req.Header.Set("X-Principal-ID", principal)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createRule(t *testing.T, router chi.Router, principal string) string {
	t.Helper()
	rec := doJSON(router, http.MethodPost, "/scheduled-payments", principal, map[string]any{
		"recipient_principal": "bob",
		"amount":              "25",
		"description":         "rent",
		"frequency":           "WEEKLY",
		"start_date":          "2024-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating rule, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp.ID
}

func TestCreateAndGetRule(t *testing.T) {
	router := newRuleRouter(t)
	id := createRule(t, router, "alice")

	rec := doJSON(router, http.MethodGet, "/scheduled-payments/"+id, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rule struct {
		Frequency       string `json:"frequency"`
		NextPaymentDate string `json:"next_payment_date"`
		PaymentsMade    int    `json:"payments_made"`
		Active          bool   `json:"active"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if rule.Frequency != "WEEKLY" || rule.NextPaymentDate != "2024-01-01" || rule.PaymentsMade != 0 || !rule.Active {
		t.Fatalf("unexpected rule: %+v", rule)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	router := newRuleRouter(t)

	cases := []map[string]any{
		{"recipient_principal": "", "amount": "25", "frequency": "WEEKLY", "start_date": "2024-01-01"},
		{"recipient_principal": "bob", "amount": "zero", "frequency": "WEEKLY", "start_date": "2024-01-01"},
		{"recipient_principal": "bob", "amount": "25", "frequency": "HOURLY", "start_date": "2024-01-01"},
		{"recipient_principal": "bob", "amount": "25", "frequency": "WEEKLY", "start_date": "January 1"},
		{"recipient_principal": "bob", "amount": "25", "frequency": "ONCE", "start_date": "2024-01-01", "end_date": "2024-02-01"},
		{"recipient_principal": "bob", "amount": "25", "frequency": "WEEKLY", "start_date": "2024-03-01", "end_date": "2024-02-01"},
	}
	for i, payload := range cases {
		rec := doJSON(router, http.MethodPost, "/scheduled-payments", "alice", payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
}

func TestUpdateRuleReschedules(t *testing.T) {
	router := newRuleRouter(t)
	id := createRule(t, router, "alice")

	rec := doJSON(router, http.MethodPatch, "/scheduled-payments/"+id, "alice", map[string]any{
		"start_date": "2024-06-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rule struct {
		StartDate       string `json:"start_date"`
		NextPaymentDate string `json:"next_payment_date"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if rule.StartDate != "2024-06-01" || rule.NextPaymentDate != "2024-06-01" {
		t.Fatalf("expected reschedule to 2024-06-01, got %+v", rule)
	}
}

func TestRulesAreOwnerScoped(t *testing.T) {
	router := newRuleRouter(t)
	id := createRule(t, router, "alice")

	rec := doJSON(router, http.MethodGet, "/scheduled-payments/"+id, "bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign rule, got %d", rec.Code)
	}

	listRec := doJSON(router, http.MethodGet, "/scheduled-payments", "bob", nil)
	var rules []json.RawMessage
	if err := json.NewDecoder(listRec.Body).Decode(&rules); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected no rules for bob, got %d", len(rules))
	}
}

func TestDeactivateAndDeleteRule(t *testing.T) {
	router := newRuleRouter(t)
	id := createRule(t, router, "alice")

	rec := doJSON(router, http.MethodPost, "/scheduled-payments/"+id+"/deactivate", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deactivating, got %d", rec.Code)
	}
	var rule struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rule); err != nil {
		t.Fatalf("decode rule: %v", err)
	}
	if rule.Active {
		t.Fatalf("expected rule inactive after deactivate")
	}

	delRec := doJSON(router, http.MethodDelete, "/scheduled-payments/"+id, "alice", nil)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 deleting, got %d", delRec.Code)
	}
	getRec := doJSON(router, http.MethodGet, "/scheduled-payments/"+id, "alice", nil)
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getRec.Code)
	}
}
