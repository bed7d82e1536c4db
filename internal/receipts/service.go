// Package receipts issues a collectible receipt artifact for each
// interactive transfer. It is a pure downstream consumer of transfer
// events and never calls back into the ledger.
package receipts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"paychain/internal/events"
	"paychain/internal/receipts/models"
	"paychain/internal/receipts/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
	"paychain/pkg/requestcontext"
)

const defaultImageBaseURL = "https://receipts.paychain.dev"

// Service issues and serves receipts.
type Service struct {
	store        store.Store
	logger       *slog.Logger
	imageBaseURL string
}

// Option configures the Service.
type Option func(*Service)

// WithImageBaseURL overrides the base URL receipt images are served from.
func WithImageBaseURL(baseURL string) Option {
	return func(s *Service) { s.imageBaseURL = baseURL }
}

// New creates a receipt service over the given store.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        st,
		logger:       logger,
		imageBaseURL: defaultImageBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishTransferCompleted issues a receipt for the transfer behind the
// event. Scheduled-rule transfers carry no receipt; their audit trail is the
// rule-transfer link. Satisfies events.Publisher so the service can sit in a
// publisher fan-out.
func (s *Service) PublishTransferCompleted(ctx context.Context, event events.TransferCompleted) error {
	if event.ScheduledRule {
		return nil
	}
	_, err := s.issue(ctx, event)
	return err
}

// issue creates the receipt for one transfer, idempotently: re-delivery of
// the same event returns the existing receipt.
func (s *Service) issue(ctx context.Context, event events.TransferCompleted) (*models.Receipt, error) {
	transferID, err := domain.ParseTransferID(event.TransferID)
	if err != nil {
		return nil, err
	}
	accountID, err := domain.ParseAccountID(event.FromAccount)
	if err != nil {
		return nil, err
	}

	if existing, err := s.store.FindByTransfer(ctx, transferID); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "receipt lookup failed")
	}

	receipt := &models.Receipt{
		ID:         domain.NewReceiptID(),
		TransferID: transferID,
		AccountID:  accountID,
		Snapshot: models.Snapshot{
			FromAccount:   event.FromAccount,
			ToAccount:     event.ToAccount,
			Amount:        event.Amount,
			Description:   event.Description,
			TransferredAt: event.OccurredAt,
		},
		IssuedAt: requestcontext.Now(ctx),
	}
	receipt.ImageURL = fmt.Sprintf("%s/%s.png", s.imageBaseURL, receipt.ID.String())

	err = s.store.Create(ctx, receipt)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost an issue race; the winner's receipt is the receipt.
		return s.ByTransfer(ctx, transferID)
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "store receipt failed")
	}

	s.logger.InfoContext(ctx, "receipt issued",
		"receipt_id", receipt.ID.String(),
		"transfer_id", transferID.String(),
	)
	return receipt, nil
}

// ByTransfer returns the receipt issued for a transfer.
func (s *Service) ByTransfer(ctx context.Context, transferID domain.TransferID) (*models.Receipt, error) {
	receipt, err := s.store.FindByTransfer(ctx, transferID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "receipt not found")
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "receipt lookup failed")
	}
	return receipt, nil
}

// ListByAccount returns the receipts owned by an account, oldest first.
func (s *Service) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Receipt, error) {
	list, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "list receipts failed")
	}
	return list, nil
}

var _ events.Publisher = (*Service)(nil)
