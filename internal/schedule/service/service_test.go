package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"paychain/internal/calendar"
	"paychain/internal/schedule/models"
	"paychain/internal/schedule/store"
	"paychain/pkg/derrors"
	"paychain/pkg/domain"
	"paychain/pkg/requestcontext"
)

type RuleServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	links   *stubLinks
	service *Service
	ctx     context.Context
}

type stubLinks struct {
	linked map[domain.RuleID]bool
}

func (s *stubLinks) RuleHasTransfers(_ context.Context, id domain.RuleID) (bool, error) {
	return s.linked[id], nil
}

func TestRuleServiceSuite(t *testing.T) {
	suite.Run(t, new(RuleServiceSuite))
}

func (s *RuleServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.links = &stubLinks{linked: make(map[domain.RuleID]bool)}
	s.service = New(s.store, s.links)
	s.ctx = context.Background()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *RuleServiceSuite) validParams() CreateParams {
	return CreateParams{
		AccountID:          domain.NewAccountID(),
		RecipientPrincipal: "merchant",
		Amount:             decimal.NewFromInt(20),
		Description:        "gym",
		Frequency:          calendar.FrequencyWeekly,
		StartDate:          date(2024, time.January, 1),
	}
}

func (s *RuleServiceSuite) TestCreate() {
	s.Run("stores a valid rule with first due at start", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)
		s.True(rule.Active)
		s.Equal(0, rule.OccurrencesMade)
		s.Require().NotNil(rule.NextDue)
		s.Equal(date(2024, time.January, 1), *rule.NextDue)
	})

	s.Run("rejects non-positive amount", func() {
		params := s.validParams()
		params.Amount = decimal.Zero
		_, err := s.service.Create(s.ctx, params)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})

	s.Run("rejects once with end date", func() {
		params := s.validParams()
		params.Frequency = calendar.FrequencyOnce
		end := date(2024, time.June, 1)
		params.EndDate = &end
		_, err := s.service.Create(s.ctx, params)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})

	s.Run("rejects end date before start date", func() {
		params := s.validParams()
		end := date(2023, time.December, 1)
		params.EndDate = &end
		_, err := s.service.Create(s.ctx, params)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})

	s.Run("rejects unknown frequency", func() {
		params := s.validParams()
		params.Frequency = calendar.Frequency("sometimes")
		_, err := s.service.Create(s.ctx, params)
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))
	})

	s.Run("invalid rule is never stored", func() {
		params := s.validParams()
		params.Amount = decimal.NewFromInt(-3)
		_, err := s.service.Create(s.ctx, params)
		s.Require().Error(err)

		rules, err := s.service.ListByAccount(s.ctx, params.AccountID)
		s.Require().NoError(err)
		s.Empty(rules)
	})
}

func (s *RuleServiceSuite) TestUpdate() {
	s.Run("patches fields without touching the schedule", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		amount := decimal.NewFromInt(35)
		updated, err := s.service.Update(s.ctx, rule.ID, UpdateParams{Amount: &amount})
		s.Require().NoError(err)
		s.True(updated.Amount.Equal(amount))
		s.Equal(*rule.NextDue, *updated.NextDue)
	})

	s.Run("frequency change before first firing reschedules from start", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		monthly := calendar.FrequencyMonthly
		updated, err := s.service.Update(s.ctx, rule.ID, UpdateParams{Frequency: &monthly})
		s.Require().NoError(err)
		s.Require().NotNil(updated.NextDue)
		s.Equal(rule.StartDate, *updated.NextDue)
	})

	s.Run("frequency change after firing reschedules from last processed", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		processed := date(2024, time.January, 8)
		s.Require().NoError(s.store.Execute(s.ctx, rule.ID, func(r *models.Rule) error {
			r.RecordOccurrence(processed, processed)
			return nil
		}))

		monthly := calendar.FrequencyMonthly
		updated, err := s.service.Update(s.ctx, rule.ID, UpdateParams{Frequency: &monthly})
		s.Require().NoError(err)
		s.Require().NotNil(updated.NextDue)
		s.Equal(date(2024, time.February, 8), *updated.NextDue)
	})

	s.Run("invalid patch leaves the rule unchanged", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		bad := decimal.NewFromInt(-1)
		_, err = s.service.Update(s.ctx, rule.ID, UpdateParams{Amount: &bad})
		s.True(derrors.HasCode(err, derrors.CodeBadRequest))

		found, err := s.service.Get(s.ctx, rule.ID)
		s.Require().NoError(err)
		s.True(found.Amount.Equal(rule.Amount))
	})

	s.Run("unknown rule is a not-found", func() {
		_, err := s.service.Update(s.ctx, domain.NewRuleID(), UpdateParams{})
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})
}

func (s *RuleServiceSuite) TestDeactivateAndDelete() {
	s.Run("deactivate flips the active flag", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		updated, err := s.service.Deactivate(s.ctx, rule.ID)
		s.Require().NoError(err)
		s.False(updated.Active)
	})

	s.Run("delete refuses rules with recorded transfers", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)
		s.links.linked[rule.ID] = true

		err = s.service.Delete(s.ctx, rule.ID)
		s.True(derrors.HasCode(err, derrors.CodeConflict))

		_, err = s.service.Get(s.ctx, rule.ID)
		s.Require().NoError(err)
	})

	s.Run("delete removes unreferenced rules", func() {
		rule, err := s.service.Create(s.ctx, s.validParams())
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(s.ctx, rule.ID))
		_, err = s.service.Get(s.ctx, rule.ID)
		s.True(derrors.HasCode(err, derrors.CodeNotFound))
	})
}

func (s *RuleServiceSuite) TestRequestScopedTime() {
	fixed := date(2024, time.March, 1)
	ctx := requestcontext.WithTime(s.ctx, fixed)

	rule, err := s.service.Create(ctx, s.validParams())
	s.Require().NoError(err)
	s.Equal(fixed, rule.CreatedAt)
}
