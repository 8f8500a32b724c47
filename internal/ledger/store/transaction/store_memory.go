package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger rows in a mutex-guarded map. Rows are never
// deleted; MarkProcessed only moves a pending row to a terminal status.
type InMemoryStore struct {
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{transactions: make(map[id.TransactionID]*models.Transaction)}
}

func (s *InMemoryStore) Create(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.transactions[t.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, txID id.TransactionID) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[txID]
	if !ok {
		return models.Transaction{}, sentinel.ErrNotFound
	}
	return *t, nil
}

func (s *InMemoryStore) FindPendingByRequest(_ context.Context, requestID string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.RequestID == requestID && t.Status == models.TxStatusPending {
			return *t, nil
		}
	}
	return models.Transaction{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindPendingByTuple(_ context.Context, userID id.UserID, txType models.TransactionType, amount float64) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var oldest *models.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && t.Type == txType && t.Amount == amount && t.Status == models.TxStatusPending {
			if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
				oldest = t
			}
		}
	}
	if oldest == nil {
		return models.Transaction{}, sentinel.ErrNotFound
	}
	return *oldest, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, txID id.TransactionID, status models.TransactionStatus, txHash string, actor id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[txID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.Status != models.TxStatusPending {
		return fmt.Errorf("transaction already %s: %w", t.Status, sentinel.ErrConflict)
	}
	t.Status = status
	if txHash != "" {
		t.TransactionHash = txHash
	}
	t.ProcessedBy = actor
	t.ProcessedAt = &at
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Transaction, error) {
	return s.list(func(t *models.Transaction) bool { return t.UserID == userID })
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Transaction, error) {
	return s.list(func(*models.Transaction) bool { return true })
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]models.Transaction, error) {
	return s.list(func(t *models.Transaction) bool { return t.Status == models.TxStatusPending })
}

func (s *InMemoryStore) list(keep func(*models.Transaction) bool) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, t := range s.transactions {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
