// Package handler exposes the scheduled-payment CRUD endpoints. Every route
// operates on the authenticated principal's own rules; foreign rules read as
// not found.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	ledgermodels "paychain/internal/ledger/models"
	"paychain/internal/schedule/models"
	"paychain/internal/schedule/service"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/httputil"
	"paychain/pkg/requestcontext"
)

// Service defines the rule operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*models.Rule, error)
	Get(ctx context.Context, id domain.RuleID) (*models.Rule, error)
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Rule, error)
	Update(ctx context.Context, id domain.RuleID, params service.UpdateParams) (*models.Rule, error)
	Deactivate(ctx context.Context, id domain.RuleID) (*models.Rule, error)
	Delete(ctx context.Context, id domain.RuleID) error
}

// Accounts resolves the caller's ledger account.
type Accounts interface {
	AccountByPrincipal(ctx context.Context, principal string) (*ledgermodels.Account, error)
}

// Handler wires scheduled-payment endpoints to the rule service.
type Handler struct {
	service  Service
	accounts Accounts
	logger   *slog.Logger
}

// New constructs a scheduled-payment handler.
func New(service Service, accounts Accounts, logger *slog.Logger) *Handler {
	return &Handler{service: service, accounts: accounts, logger: logger}
}

// Register mounts scheduled-payment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/scheduled-payments", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{ruleID}", h.HandleGet)
		r.Patch("/{ruleID}", h.HandleUpdate)
		r.Post("/{ruleID}/deactivate", h.HandleDeactivate)
		r.Delete("/{ruleID}", h.HandleDelete)
	})
}

// HandleCreate handles POST /scheduled-payments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.callerAccount(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRuleRequest](w, r, h.logger)
	if !ok {
		return
	}

	rule, err := h.service.Create(ctx, service.CreateParams{
		AccountID:          account.ID,
		RecipientPrincipal: req.RecipientPrincipal,
		Amount:             req.parsedAmount,
		Description:        req.Description,
		Frequency:          req.parsedFrequency,
		StartDate:          req.parsedStart,
		EndDate:            req.parsedEnd,
		MaxPayments:        req.MaxPayments,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rule created",
		"request_id", requestcontext.RequestID(ctx),
		"rule_id", rule.ID.String(),
		"frequency", string(rule.Frequency),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromRule(rule))
}

// HandleList handles GET /scheduled-payments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.callerAccount(w, ctx)
	if !ok {
		return
	}
	rules, err := h.service.ListByAccount(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRules(rules))
}

// HandleGet handles GET /scheduled-payments/{ruleID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.ownedRule(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRule(rule))
}

// HandleUpdate handles PATCH /scheduled-payments/{ruleID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rule, ok := h.ownedRule(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRuleRequest](w, r, h.logger)
	if !ok {
		return
	}

	updated, err := h.service.Update(ctx, rule.ID, service.UpdateParams{
		RecipientPrincipal: req.RecipientPrincipal,
		Amount:             req.parsedAmount,
		Description:        req.Description,
		Frequency:          req.parsedFrequency,
		StartDate:          req.parsedStart,
		EndDate:            req.parsedEnd,
		ClearEndDate:       req.clearEndDate,
		MaxPayments:        req.MaxPayments,
		Active:             req.Active,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rule updated",
		"request_id", requestcontext.RequestID(ctx),
		"rule_id", rule.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRule(updated))
}

// HandleDeactivate handles POST /scheduled-payments/{ruleID}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rule, ok := h.ownedRule(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Deactivate(ctx, rule.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRule(updated))
}

// HandleDelete handles DELETE /scheduled-payments/{ruleID}. Rules with
// recorded transfers cannot be deleted, only deactivated.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rule, ok := h.ownedRule(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, rule.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rule deleted",
		"request_id", requestcontext.RequestID(ctx),
		"rule_id", rule.ID.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) callerAccount(w http.ResponseWriter, ctx context.Context) (*ledgermodels.Account, bool) {
	principal := requestcontext.Principal(ctx)
	if principal == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	account, err := h.accounts.AccountByPrincipal(ctx, principal)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return account, true
}

// ownedRule parses the path id, loads the rule and checks ownership.
// A foreign rule reads as not found so rule ids cannot be probed.
func (h *Handler) ownedRule(w http.ResponseWriter, r *http.Request) (*models.Rule, bool) {
	ctx := r.Context()

	account, ok := h.callerAccount(w, ctx)
	if !ok {
		return nil, false
	}
	id, err := domain.ParseRuleID(chi.URLParam(r, "ruleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	rule, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	if rule.AccountID != account.ID {
		httputil.WriteError(w, derrors.New(derrors.CodeNotFound, "rule not found"))
		return nil, false
	}
	return rule, true
}
