package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"paychain/internal/ledger/models"
	"paychain/internal/ledger/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
)

type LedgerServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.ctx = context.Background()
}

func (s *LedgerServiceSuite) newAccount(principal string, balance int64) *models.Account {
	account, err := s.service.CreateAccount(s.ctx, principal, decimal.NewFromInt(balance))
	s.Require().NoError(err)
	return account
}

func (s *LedgerServiceSuite) balance(id domain.AccountID) decimal.Decimal {
	balance, err := s.service.Balance(s.ctx, id)
	s.Require().NoError(err)
	return balance
}

func (s *LedgerServiceSuite) TestTransfer() {
	s.Run("moves funds and records the transfer", func() {
		alice := s.newAccount("alice", 100)
		bob := s.newAccount("bob", 0)

		transfer, err := s.service.Transfer(s.ctx, alice.ID, bob.ID, decimal.NewFromInt(20), "rent", nil)
		s.Require().NoError(err)
		s.False(transfer.ID.IsNil())
		s.Nil(transfer.RuleID)

		s.True(s.balance(alice.ID).Equal(decimal.NewFromInt(80)))
		s.True(s.balance(bob.ID).Equal(decimal.NewFromInt(20)))

		got, err := s.service.TransferByID(s.ctx, transfer.ID)
		s.Require().NoError(err)
		s.True(got.Amount.Equal(decimal.NewFromInt(20)))
	})

	s.Run("rejects non-positive amounts", func() {
		alice := s.newAccount("alice2", 100)
		bob := s.newAccount("bob2", 0)

		_, err := s.service.Transfer(s.ctx, alice.ID, bob.ID, decimal.Zero, "", nil)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))

		_, err = s.service.Transfer(s.ctx, alice.ID, bob.ID, decimal.NewFromInt(-5), "", nil)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})

	s.Run("permits driving the balance negative", func() {
		// The pre-check is a caller concern; the ledger is a mechanism.
		alice := s.newAccount("alice3", 10)
		bob := s.newAccount("bob3", 0)

		_, err := s.service.Transfer(s.ctx, alice.ID, bob.ID, decimal.NewFromInt(50), "", nil)
		s.Require().NoError(err)
		s.True(s.balance(alice.ID).Equal(decimal.NewFromInt(-40)))
	})

	s.Run("permits self-transfer", func() {
		alice := s.newAccount("alice4", 100)

		_, err := s.service.Transfer(s.ctx, alice.ID, alice.ID, decimal.NewFromInt(30), "note to self", nil)
		s.Require().NoError(err)
		s.True(s.balance(alice.ID).Equal(decimal.NewFromInt(100)))
	})

	s.Run("unknown sender is a not-found", func() {
		bob := s.newAccount("bob5", 0)
		_, err := s.service.Transfer(s.ctx, domain.NewAccountID(), bob.ID, decimal.NewFromInt(1), "", nil)
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})

	s.Run("rule transfer records the link", func() {
		alice := s.newAccount("alice6", 100)
		bob := s.newAccount("bob6", 0)
		ruleID := domain.NewRuleID()

		transfer, err := s.service.Transfer(s.ctx, alice.ID, bob.ID, decimal.NewFromInt(5), "sub", &ruleID)
		s.Require().NoError(err)
		s.Require().NotNil(transfer.RuleID)
		s.Equal(ruleID, *transfer.RuleID)

		linked, err := s.store.RuleHasTransfers(s.ctx, ruleID)
		s.Require().NoError(err)
		s.True(linked)

		count, err := s.service.RuleTransferCount(s.ctx, ruleID)
		s.Require().NoError(err)
		s.Equal(1, count)

		count, err = s.service.RuleTransferCount(s.ctx, domain.NewRuleID())
		s.Require().NoError(err)
		s.Equal(0, count)
	})
}

// failingStore simulates a storage failure mid-transfer.
type failingStore struct {
	store.Store
}

func (f *failingStore) ApplyTransfer(context.Context, *models.Transfer, *models.RuleTransferLink) error {
	return errors.New("disk on fire")
}

func (s *LedgerServiceSuite) TestTransferAtomicity() {
	alice := s.newAccount("alice7", 100)
	bob := s.newAccount("bob7", 50)

	broken := New(&failingStore{Store: s.store}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := broken.Transfer(s.ctx, alice.ID, bob.ID, decimal.NewFromInt(20), "", nil)
	s.Require().Error(err)
	s.True(derrors.HasCode(err, derrors.CodeInternal))

	// A failed transfer leaves no observable balance change.
	s.True(s.balance(alice.ID).Equal(decimal.NewFromInt(100)))
	s.True(s.balance(bob.ID).Equal(decimal.NewFromInt(50)))
}

// Total system balance is invariant across any number of successful
// transfers, including concurrent ones hitting the same accounts.
func (s *LedgerServiceSuite) TestTotalBalanceConservation() {
	alice := s.newAccount("alice8", 500)
	bob := s.newAccount("bob8", 500)
	carol := s.newAccount("carol8", 500)

	ids := []domain.AccountID{alice.ID, bob.ID, carol.ID}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := ids[i%3]
			to := ids[(i+1)%3]
			_, err := s.service.Transfer(s.ctx, from, to, decimal.NewFromInt(7), "", nil)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(s.balance(id))
	}
	s.True(total.Equal(decimal.NewFromInt(1500)), "total balance must be conserved, got %s", total)
}

func (s *LedgerServiceSuite) TestResolveRecipient() {
	s.Run("returns existing account", func() {
		bob := s.newAccount("bob9", 25)
		got, err := s.service.ResolveRecipient(s.ctx, "bob9")
		s.Require().NoError(err)
		s.Equal(bob.ID, got.ID)
	})

	s.Run("lenient mode provisions a placeholder", func() {
		got, err := s.service.ResolveRecipient(s.ctx, "stranger")
		s.Require().NoError(err)
		s.Equal("stranger", got.Principal)
		s.True(got.Balance.IsZero())

		// Idempotent: resolving again returns the same account.
		again, err := s.service.ResolveRecipient(s.ctx, "stranger")
		s.Require().NoError(err)
		s.Equal(got.ID, again.ID)
	})

	s.Run("strict mode refuses unknown principals", func() {
		strictSvc := New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)), WithStrictRecipients(true))
		_, err := strictSvc.ResolveRecipient(s.ctx, "nobody")
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})

	s.Run("empty principal is a bad request", func() {
		_, err := s.service.ResolveRecipient(s.ctx, "")
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})
}

func (s *LedgerServiceSuite) TestCreateAccount() {
	s.Run("duplicate principal conflicts", func() {
		s.newAccount("dup", 0)
		_, err := s.service.CreateAccount(s.ctx, "dup", decimal.Zero)
		s.True(derrors.HasCode(err, derrors.CodeConflict))
	})

	s.Run("negative starting balance rejected", func() {
		_, err := s.service.CreateAccount(s.ctx, "neg", decimal.NewFromInt(-1))
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})
}
