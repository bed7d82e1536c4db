// Package handler exposes the read-only receipt endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	ledgermodels "paychain/internal/ledger/models"
	"paychain/internal/receipts/models"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/httputil"
	"paychain/pkg/requestcontext"
)

// Service defines the receipt operations the HTTP layer needs.
type Service interface {
	ByTransfer(ctx context.Context, transferID domain.TransferID) (*models.Receipt, error)
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Receipt, error)
}

// Accounts resolves the caller's ledger account.
type Accounts interface {
	AccountByPrincipal(ctx context.Context, principal string) (*ledgermodels.Account, error)
}

// Handler wires receipt endpoints to the receipt service.
type Handler struct {
	service  Service
	accounts Accounts
	logger   *slog.Logger
}

// New constructs a receipt handler.
func New(service Service, accounts Accounts, logger *slog.Logger) *Handler {
	return &Handler{service: service, accounts: accounts, logger: logger}
}

// Register mounts receipt endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/receipts", h.HandleList)
	r.Get("/transfers/{transferID}/receipt", h.HandleByTransfer)
}

// ReceiptResponse is the HTTP shape of one receipt.
type ReceiptResponse struct {
	ID         string          `json:"id"`
	TransferID string          `json:"transfer_id"`
	ImageURL   string          `json:"image_url"`
	Snapshot   models.Snapshot `json:"snapshot"`
	IssuedAt   time.Time       `json:"issued_at"`
}

// FromReceipt converts a domain receipt to its HTTP shape.
func FromReceipt(receipt *models.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		ID:         receipt.ID.String(),
		TransferID: receipt.TransferID.String(),
		ImageURL:   receipt.ImageURL,
		Snapshot:   receipt.Snapshot,
		IssuedAt:   receipt.IssuedAt,
	}
}

// HandleList handles GET /receipts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.callerAccount(w, ctx)
	if !ok {
		return
	}
	receipts, err := h.service.ListByAccount(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*ReceiptResponse, 0, len(receipts))
	for _, receipt := range receipts {
		out = append(out, FromReceipt(receipt))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleByTransfer handles GET /transfers/{transferID}/receipt. Receipts on
// another account's transfers read as not found.
func (h *Handler) HandleByTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.callerAccount(w, ctx)
	if !ok {
		return
	}
	transferID, err := domain.ParseTransferID(chi.URLParam(r, "transferID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	receipt, err := h.service.ByTransfer(ctx, transferID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if receipt.AccountID != account.ID {
		httputil.WriteError(w, derrors.New(derrors.CodeNotFound, "receipt not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromReceipt(receipt))
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
