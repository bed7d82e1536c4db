// Package ledger owns account balances and the atomic transfer operation.
//
// Two deliberate policy splits, preserved from observed product behavior:
//   - The ledger does not reject transfers that drive a balance negative.
//     The balance pre-check belongs to callers (the processor and the
//     interactive transfer handler both perform it).
//   - Unknown recipient principals get a zero-balance placeholder account in
//     lenient mode (the default). Strict mode turns that into a not-found.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"paychain/internal/events"
	"paychain/internal/ledger/metrics"
	"paychain/internal/ledger/models"
	"paychain/internal/ledger/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
	"paychain/pkg/requestcontext"
)

// Service coordinates transfers against the ledger store. Concurrent
// transfers touching the same account are serialized by per-account locks;
// a transfer takes both its locks in a fixed global order (lower account id
// first) so two opposite transfers cannot deadlock.
type Service struct {
	store     store.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	strict    bool

	mapMu sync.Mutex
	muMap map[domain.AccountID]*sync.Mutex
}

// Option configures the Service.
type Option func(*Service)

// WithPublisher sets the transfer-completed event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStrictRecipients disables placeholder provisioning for unknown
// recipient principals.
func WithStrictRecipients(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// New creates a ledger service over the given store.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		publisher: events.Noop{},
		logger:    logger,
		muMap:     make(map[domain.AccountID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) accountLock(id domain.AccountID) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	if _, ok := s.muMap[id]; !ok {
		s.muMap[id] = &sync.Mutex{}
	}
	return s.muMap[id]
}

// lockPair acquires both account locks in fixed global order and returns the
// unlock function. Self-transfers take a single lock.
func (s *Service) lockPair(a, b domain.AccountID) func() {
	if a == b {
		mu := s.accountLock(a)
		mu.Lock()
		return mu.Unlock
	}
	first, second := s.accountLock(a), s.accountLock(b)
	if b.String() < a.String() {
		first, second = second, first
	}
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

// Transfer atomically moves amount from one account to the other and records
// the immutable Transfer. When ruleID is set the rule-transfer link is
// written in the same transaction. Either everything applies or nothing does.
func (s *Service) Transfer(ctx context.Context, from, to domain.AccountID, amount decimal.Decimal, description string, ruleID *domain.RuleID) (*models.Transfer, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, derrors.New(derrors.CodeBadRequest, "amount must be positive")
	}
	if from == to {
		// Permitted, but worth noticing in the logs.
		s.logger.WarnContext(ctx, "self-transfer",
			"account_id", from.String(),
			"amount", amount.String(),
		)
	}

	start := time.Now()
	unlock := s.lockPair(from, to)
	defer unlock()

	now := requestcontext.Now(ctx)
	transfer := &models.Transfer{
		ID:          domain.NewTransferID(),
		From:        from,
		To:          to,
		Amount:      amount,
		Description: description,
		RuleID:      ruleID,
		CreatedAt:   now,
	}
	var link *models.RuleTransferLink
	if ruleID != nil {
		link = &models.RuleTransferLink{
			RuleID:      *ruleID,
			TransferID:  transfer.ID,
			ProcessedAt: now,
		}
	}

	if err := s.store.ApplyTransfer(ctx, transfer, link); err != nil {
		if s.metrics != nil {
			s.metrics.TransferFailures.Inc()
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, derrors.Wrap(err, derrors.CodeNotFound, "account not found")
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "transfer failed")
	}

	s.publishCompleted(ctx, transfer)
	if s.metrics != nil {
		s.metrics.TransfersCompleted.Inc()
		s.metrics.ObserveTransfer(start)
	}
	return transfer, nil
}

// publishCompleted emits the downstream event. The transfer is already
// committed; a publish failure is logged, never propagated.
func (s *Service) publishCompleted(ctx context.Context, transfer *models.Transfer) {
	event := events.TransferCompleted{
		TransferID:    transfer.ID.String(),
		FromAccount:   transfer.From.String(),
		ToAccount:     transfer.To.String(),
		Amount:        transfer.Amount,
		Description:   transfer.Description,
		OccurredAt:    transfer.CreatedAt,
		ScheduledRule: transfer.RuleID != nil,
	}
	if transfer.RuleID != nil {
		event.RuleID = transfer.RuleID.String()
	}
	if err := s.publisher.PublishTransferCompleted(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "transfer event publish failed",
			"transfer_id", transfer.ID.String(),
			"error", err.Error(),
		)
	}
}

// Balance returns the current balance for an account.
func (s *Service) Balance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error) {
	balance, err := s.store.Balance(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return decimal.Zero, derrors.New(derrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return decimal.Zero, derrors.Wrap(err, derrors.CodeInternal, "balance lookup failed")
	}
	return balance, nil
}

// ResolveRecipient maps a recipient principal to an account. In lenient mode
// an unknown principal gets a zero-balance placeholder account; in strict
// mode it is a not-found.
func (s *Service) ResolveRecipient(ctx context.Context, principal string) (*models.Account, error) {
	if principal == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "recipient principal is required")
	}
	account, err := s.store.FindAccountByPrincipal(ctx, principal)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "recipient lookup failed")
	}
	if s.strict {
		return nil, derrors.New(derrors.CodeNotFound, "recipient not found")
	}
	return s.provisionPlaceholder(ctx, principal)
}

func (s *Service) provisionPlaceholder(ctx context.Context, principal string) (*models.Account, error) {
	account := &models.Account{
		ID:        domain.NewAccountID(),
		Principal: principal,
		Balance:   decimal.Zero,
		CreatedAt: requestcontext.Now(ctx),
	}
	err := s.store.CreateAccount(ctx, account)
	if errors.Is(err, sentinel.ErrConflict) {
		// Lost a provisioning race; the winner's account is the one we want.
		return s.store.FindAccountByPrincipal(ctx, principal)
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "provision recipient account failed")
	}
	s.logger.InfoContext(ctx, "provisioned placeholder account",
		"principal", principal,
		"account_id", account.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.AccountsProvisioned.Inc()
	}
	return account, nil
}

// CreateAccount registers an account for a principal with a starting
// balance. Used by the registration glue and dev seeding.
func (s *Service) CreateAccount(ctx context.Context, principal string, startingBalance decimal.Decimal) (*models.Account, error) {
	if principal == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "principal is required")
	}
	if startingBalance.IsNegative() {
		return nil, derrors.New(derrors.CodeBadRequest, "starting balance must not be negative")
	}
	account := &models.Account{
		ID:        domain.NewAccountID(),
		Principal: principal,
		Balance:   startingBalance,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, derrors.New(derrors.CodeConflict, "principal already has an account")
		}
		return nil, derrors.Wrap(err, derrors.CodeInternal, "create account failed")
	}
	return account, nil
}

// AccountByPrincipal returns the account registered for a principal.
func (s *Service) AccountByPrincipal(ctx context.Context, principal string) (*models.Account, error) {
	account, err := s.store.FindAccountByPrincipal(ctx, principal)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "account lookup failed")
	}
	return account, nil
}

// TransfersByAccount lists the transfers an account participated in.
func (s *Service) TransfersByAccount(ctx context.Context, id domain.AccountID) ([]*models.Transfer, error) {
	transfers, err := s.store.ListTransfersByAccount(ctx, id)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "list transfers failed")
	}
	return transfers, nil
}

// RuleTransferCount returns how many transfers a rule has produced. The
// processor compares it against the rule's recorded occurrence count to spot
// a committed transfer whose schedule advance was lost.
func (s *Service) RuleTransferCount(ctx context.Context, id domain.RuleID) (int, error) {
	n, err := s.store.CountRuleTransfers(ctx, id)
	if err != nil {
		return 0, derrors.Wrap(err, derrors.CodeInternal, "count rule transfers failed")
	}
	return n, nil
}

// TransferByID returns one immutable transfer record.
func (s *Service) TransferByID(ctx context.Context, id domain.TransferID) (*models.Transfer, error) {
	transfer, err := s.store.FindTransfer(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, derrors.New(derrors.CodeNotFound, "transfer not found")
	}
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "transfer lookup failed")
	}
	return transfer, nil
}
