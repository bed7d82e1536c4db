// Package handler exposes the interactive ledger endpoints. Unlike the
// due-cycle processor, an interactive transfer that would overdraw the sender
// is rejected outright rather than retried.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"paychain/internal/ledger/models"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/httputil"
	"paychain/pkg/requestcontext"
)

// Service defines the ledger operations the HTTP layer needs.
type Service interface {
	AccountByPrincipal(ctx context.Context, principal string) (*models.Account, error)
	ResolveRecipient(ctx context.Context, principal string) (*models.Account, error)
	Balance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to domain.AccountID, amount decimal.Decimal, description string, ruleID *domain.RuleID) (*models.Transfer, error)
	TransfersByAccount(ctx context.Context, id domain.AccountID) ([]*models.Transfer, error)
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transfers", h.HandleTransfer)
	r.Get("/transfers", h.HandleListTransfers)
	r.Get("/accounts/balance", h.HandleBalance)
}

// HandleTransfer handles POST /transfers.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	sender, ok := h.senderAccount(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger)
	if !ok {
		return
	}

	recipient, err := h.service.ResolveRecipient(ctx, req.RecipientPrincipal)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Interactive transfers are pre-checked; the ledger itself does not
	// enforce non-negative balances.
	balance, err := h.service.Balance(ctx, sender.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if balance.Cmp(req.ParsedAmount()) < 0 {
		httputil.WriteError(w, derrors.New(derrors.CodeInsufficientFunds, "balance is insufficient for this transfer"))
		return
	}

	transfer, err := h.service.Transfer(ctx, sender.ID, recipient.ID, req.ParsedAmount(), req.Description, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "interactive transfer failed",
			"request_id", requestcontext.RequestID(ctx),
			"from_account_id", sender.ID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "interactive transfer completed",
		"request_id", requestcontext.RequestID(ctx),
		"transfer_id", transfer.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromTransfer(transfer))
}

// HandleBalance handles GET /accounts/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.senderAccount(w, ctx)
	if !ok {
		return
	}
	balance, err := h.service.Balance(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BalanceResponse{
		AccountID: account.ID.String(),
		Principal: account.Principal,
		Balance:   balance.String(),
	})
}

// HandleListTransfers handles GET /transfers.
func (h *Handler) HandleListTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.senderAccount(w, ctx)
	if !ok {
		return
	}
	transfers, err := h.service.TransfersByAccount(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransfers(transfers))
}

func (h *Handler) senderAccount(w http.ResponseWriter, ctx context.Context) (*models.Account, bool) {
	principal := requestcontext.Principal(ctx)
	if principal == "" {
		httputil.WriteError(w, derrors.New(derrors.CodeUnauthorized, "authentication required"))
		return nil, false
	}
	account, err := h.service.AccountByPrincipal(ctx, principal)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return account, true
}
