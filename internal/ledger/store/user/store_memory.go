package user

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

// InMemoryStore keeps users in a mutex-guarded map. The single lock makes
// every read-modify-write (balance deltas, level grants) a serialized unit,
// which is exactly the atomicity the approval flows need.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
	byName  map[string]id.UserID
	byCode  map[string]id.UserID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
		byName:  make(map[string]id.UserID),
		byCode:  make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return fmt.Errorf("email %q: %w", u.Email, sentinel.ErrConflict)
	}
	if _, taken := s.byName[u.Username]; taken {
		return fmt.Errorf("username %q: %w", u.Username, sentinel.ErrConflict)
	}
	if _, taken := s.byCode[u.ReferralCode]; taken {
		return fmt.Errorf("referral code %q: %w", u.ReferralCode, sentinel.ErrConflict)
	}

	cp := cloneUser(u)
	s.users[u.ID] = cp
	s.byEmail[u.Email] = u.ID
	s.byName[u.Username] = u.ID
	s.byCode[u.ReferralCode] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	return *cloneUser(u), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	return *cloneUser(s.users[userID]), nil
}

func (s *InMemoryStore) FindByReferralCode(_ context.Context, code string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byCode[code]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	return *cloneUser(s.users[userID]), nil
}

// Update rewrites identity and profile fields. Balance-bearing fields are
// deliberately copied from the caller as-is: the admin user update is the
// one flow allowed to set balances directly.
func (s *InMemoryStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if other, taken := s.byEmail[u.Email]; taken && other != u.ID {
		return fmt.Errorf("email %q: %w", u.Email, sentinel.ErrConflict)
	}
	if other, taken := s.byName[u.Username]; taken && other != u.ID {
		return fmt.Errorf("username %q: %w", u.Username, sentinel.ErrConflict)
	}
	delete(s.byEmail, old.Email)
	delete(s.byName, old.Username)
	s.byEmail[u.Email] = u.ID
	s.byName[u.Username] = u.ID
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.byName, u.Username)
	delete(s.byCode, u.ReferralCode)
	delete(s.users, userID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, onlyActive bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if !onlyActive || u.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) ApplyBalanceDelta(_ context.Context, userID id.UserID, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if u.Balance+delta < 0 {
		return fmt.Errorf("balance %.2f cannot absorb %.2f: %w", u.Balance, delta, sentinel.ErrInvalidState)
	}
	u.Balance += delta
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) AddTotals(_ context.Context, userID id.UserID, deposits, withdrawals float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.TotalDeposits += deposits
	u.TotalWithdrawals += withdrawals
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) SetActivation(_ context.Context, userID id.UserID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.IsActive = active
	u.RegistrationDepositVerified = active
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) SetRegistrationPaid(_ context.Context, userID id.UserID, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.RegistrationDepositPaid = true
	u.RegistrationDepositAmount = amount
	u.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) GrantLevel(_ context.Context, userID id.UserID, level int, reward float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if u.HasLevel(level) {
		return false, nil
	}
	u.AchievedLevels = append(u.AchievedLevels, level)
	u.Balance += reward
	u.ReferralEarnings += reward
	u.UpdatedAt = time.Now()
	return true, nil
}

func (s *InMemoryStore) RecordLogin(_ context.Context, userID id.UserID, at time.Time, device string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.LastLogin = at
	u.LastLoginDevice = device
	return nil
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.AchievedLevels = append([]int(nil), u.AchievedLevels...)
	return &cp
}
