package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"paychain/internal/calendar"
	"paychain/internal/schedule/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// InMemory keeps rules in process memory; the development and test default.
type InMemory struct {
	mu    sync.RWMutex
	rules map[domain.RuleID]*models.Rule
}

func NewInMemory() *InMemory {
	return &InMemory{rules: make(map[domain.RuleID]*models.Rule)}
}

func (s *InMemory) Create(_ context.Context, rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *rule
	s.rules[rule.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.RuleID) (*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rule
	return &cp, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID domain.AccountID) ([]*models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Rule
	for _, rule := range s.rules {
		if rule.AccountID == accountID {
			cp := *rule
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) ListDue(_ context.Context, asOf time.Time) ([]*models.Rule, error) {
	asOf = calendar.DateOf(asOf)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Rule
	for _, rule := range s.rules {
		if rule.Active && rule.NextDue != nil && !rule.NextDue.After(asOf) {
			cp := *rule
			out = append(out, &cp)
		}
	}
	// Deterministic processing order: due date, then rule id.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDue.Equal(*out[j].NextDue) {
			return out[i].NextDue.Before(*out[j].NextDue)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) Execute(_ context.Context, id domain.RuleID, fn func(*models.Rule) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Mutate a copy; commit only when fn succeeds.
	cp := *rule
	if err := fn(&cp); err != nil {
		return err
	}
	s.rules[id] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id domain.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

var _ Store = (*InMemory)(nil)
