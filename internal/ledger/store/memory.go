package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"paychain/internal/ledger/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// InMemory keeps the ledger in process memory. It favors clarity over
// performance and is the development and test default. One mutex guards all
// state, which makes ApplyTransfer trivially atomic: every precondition is
// checked before the first mutation.
type InMemory struct {
	mu          sync.RWMutex
	accounts    map[domain.AccountID]*models.Account
	byPrincipal map[string]domain.AccountID
	transfers   []*models.Transfer
	links       []*models.RuleTransferLink
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts:    make(map[domain.AccountID]*models.Account),
		byPrincipal: make(map[string]domain.AccountID),
	}
}

func (s *InMemory) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byPrincipal[account.Principal]; ok {
		return sentinel.ErrConflict
	}
	cp := *account
	s.accounts[account.ID] = &cp
	s.byPrincipal[account.Principal] = account.ID
	return nil
}

func (s *InMemory) FindAccount(_ context.Context, id domain.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *InMemory) FindAccountByPrincipal(_ context.Context, principal string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPrincipal[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *InMemory) Balance(_ context.Context, id domain.AccountID) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return decimal.Zero, sentinel.ErrNotFound
	}
	return account.Balance, nil
}

func (s *InMemory) ApplyTransfer(_ context.Context, transfer *models.Transfer, link *models.RuleTransferLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[transfer.From]
	if !ok {
		return sentinel.ErrNotFound
	}
	to, ok := s.accounts[transfer.To]
	if !ok {
		return sentinel.ErrNotFound
	}

	from.Balance = from.Balance.Sub(transfer.Amount)
	to.Balance = to.Balance.Add(transfer.Amount)

	cp := *transfer
	s.transfers = append(s.transfers, &cp)
	if link != nil {
		lcp := *link
		s.links = append(s.links, &lcp)
	}
	return nil
}

func (s *InMemory) FindTransfer(_ context.Context, id domain.TransferID) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transfers {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListTransfers(_ context.Context) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) ListTransfersByAccount(_ context.Context, id domain.AccountID) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transfer
	for _, t := range s.transfers {
		if t.From == id || t.To == id {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) RuleHasTransfers(_ context.Context, id domain.RuleID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.RuleID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) CountRuleTransfers(_ context.Context, id domain.RuleID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.links {
		if l.RuleID == id {
			n++
		}
	}
	return n, nil
}

var _ Store = (*InMemory)(nil)
