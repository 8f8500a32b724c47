package withdrawal

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

// InMemoryStore keeps withdrawals in a mutex-guarded map.
type InMemoryStore struct {
	mu          sync.RWMutex
	withdrawals map[id.WithdrawalID]*models.Withdrawal
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{withdrawals: make(map[id.WithdrawalID]*models.Withdrawal)}
}

func (s *InMemoryStore) Create(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.withdrawals[w.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, withdrawalID id.WithdrawalID) (models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.withdrawals[withdrawalID]
	if !ok {
		return models.Withdrawal{}, sentinel.ErrNotFound
	}
	return *w, nil
}

func (s *InMemoryStore) UpdateDecision(_ context.Context, withdrawalID id.WithdrawalID, status models.RequestStatus, txHash, notes string, actor id.UserID, at time.Time) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[withdrawalID]
	if !ok {
		return models.Withdrawal{}, sentinel.ErrNotFound
	}
	if !w.Status.CanTransitionTo(status) {
		return models.Withdrawal{}, fmt.Errorf("withdrawal already %s: %w", w.Status, sentinel.ErrConflict)
	}
	w.Status = status
	if status == models.StatusApproved && txHash != "" {
		w.TransactionHash = txHash
	}
	if notes != "" {
		w.AdminNotes = notes
	}
	w.ApprovedBy = actor
	w.ApprovedAt = &at
	return *w, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Withdrawal, error) {
	return s.list(func(w *models.Withdrawal) bool { return w.UserID == userID })
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Withdrawal, error) {
	return s.list(func(*models.Withdrawal) bool { return true })
}

func (s *InMemoryStore) ListTerminal(_ context.Context) ([]models.Withdrawal, error) {
	return s.list(func(w *models.Withdrawal) bool { return w.Status.Terminal() })
}

func (s *InMemoryStore) SumApproved(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, w := range s.withdrawals {
		if w.Status == models.StatusApproved {
			sum += w.Amount
		}
	}
	return sum, nil
}

func (s *InMemoryStore) CountPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, w := range s.withdrawals {
		if w.Status == models.StatusPending {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) list(keep func(*models.Withdrawal) bool) ([]models.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if keep(w) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
