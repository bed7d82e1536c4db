package store

import (
	"context"
	"sort"
	"sync"

	"paychain/internal/receipts/models"
	"paychain/pkg/domain"
	"paychain/pkg/platform/sentinel"
)

// InMemory keeps receipts in process memory, the development and test
// default.
type InMemory struct {
	mu         sync.RWMutex
	byID       map[domain.ReceiptID]*models.Receipt
	byTransfer map[domain.TransferID]domain.ReceiptID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[domain.ReceiptID]*models.Receipt),
		byTransfer: make(map[domain.TransferID]domain.ReceiptID),
	}
}

func (s *InMemory) Create(_ context.Context, receipt *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTransfer[receipt.TransferID]; ok {
		return sentinel.ErrConflict
	}
	cp := *receipt
	s.byID[receipt.ID] = &cp
	s.byTransfer[receipt.TransferID] = receipt.ID
	return nil
}

func (s *InMemory) FindByTransfer(_ context.Context, transferID domain.TransferID) (*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTransfer[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID domain.AccountID) ([]*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Receipt
	for _, receipt := range s.byID {
		if receipt.AccountID == accountID {
			cp := *receipt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

var _ Store = (*InMemory)(nil)
