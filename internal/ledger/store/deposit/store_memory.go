package deposit

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

// InMemoryStore keeps deposits in a mutex-guarded map. UpdateDecision checks
// and writes under the same lock, so a deposit can be decided exactly once.
type InMemoryStore struct {
	mu       sync.RWMutex
	deposits map[id.DepositID]*models.Deposit
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{deposits: make(map[id.DepositID]*models.Deposit)}
}

func (s *InMemoryStore) Create(_ context.Context, d *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.deposits[d.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, depositID id.DepositID) (models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deposits[depositID]
	if !ok {
		return models.Deposit{}, sentinel.ErrNotFound
	}
	return *d, nil
}

func (s *InMemoryStore) UpdateDecision(_ context.Context, depositID id.DepositID, status models.RequestStatus, notes string, actor id.UserID, at time.Time) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[depositID]
	if !ok {
		return models.Deposit{}, sentinel.ErrNotFound
	}
	if !d.Status.CanTransitionTo(status) {
		return models.Deposit{}, fmt.Errorf("deposit already %s: %w", d.Status, sentinel.ErrConflict)
	}
	d.Status = status
	if notes != "" {
		d.AdminNotes = notes
	}
	d.ApprovedBy = actor
	d.ApprovedAt = &at
	return *d, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Deposit, error) {
	return s.list(func(d *models.Deposit) bool { return d.UserID == userID })
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Deposit, error) {
	return s.list(func(*models.Deposit) bool { return true })
}

func (s *InMemoryStore) ListTerminal(_ context.Context) ([]models.Deposit, error) {
	return s.list(func(d *models.Deposit) bool { return d.Status.Terminal() })
}

func (s *InMemoryStore) ListPendingRegistrations(_ context.Context) ([]models.Deposit, error) {
	return s.list(func(d *models.Deposit) bool {
		return d.IsRegistrationDeposit && d.Status == models.StatusPending
	})
}

func (s *InMemoryStore) SumApproved(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, d := range s.deposits {
		if d.Status == models.StatusApproved {
			sum += d.Amount
		}
	}
	return sum, nil
}

func (s *InMemoryStore) CountPending(_ context.Context, registration bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, d := range s.deposits {
		if d.Status == models.StatusPending && d.IsRegistrationDeposit == registration {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) list(keep func(*models.Deposit) bool) ([]models.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Deposit
	for _, d := range s.deposits {
		if keep(d) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
