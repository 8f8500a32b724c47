package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"suci/internal/ledger/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *UserStoreSuite) seed(username string, balance float64) models.User {
	u := models.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Balance:      balance,
		ReferralCode: id.NewReferralCode(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.Require().NoError(s.store.Create(s.ctx, &u))
	return u
}

func (s *UserStoreSuite) TestCreateRejectsDuplicates() {
	first := s.seed("alice", 0)

	dup := models.User{
		ID:           id.NewUserID(),
		Username:     "alice2",
		Email:        first.Email,
		ReferralCode: id.NewReferralCode(),
	}
	s.ErrorIs(s.store.Create(s.ctx, &dup), sentinel.ErrConflict)

	dup.Email = "other@example.com"
	dup.Username = first.Username
	s.ErrorIs(s.store.Create(s.ctx, &dup), sentinel.ErrConflict)
}

func (s *UserStoreSuite) TestApplyBalanceDeltaRefusesOverdraft() {
	u := s.seed("bob", 50)

	err := s.store.ApplyBalanceDelta(s.ctx, u.ID, -60)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(50.0, got.Balance, "failed delta must leave balance untouched")
}

func (s *UserStoreSuite) TestConcurrentBalanceDeltasSumExactly() {
	u := s.seed("carol", 0)

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.ApplyBalanceDelta(s.ctx, u.ID, 10))
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(float64(workers*10), got.Balance)
}

func (s *UserStoreSuite) TestConcurrentDebitsNeverOverdraw() {
	u := s.seed("dave", 100)

	const workers = 30
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.store.ApplyBalanceDelta(s.ctx, u.ID, -10)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(10, succeeded, "only ten 10-unit debits fit in 100")

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(0.0, got.Balance)
}

func (s *UserStoreSuite) TestGrantLevelIsIdempotent() {
	u := s.seed("erin", 0)

	granted, err := s.store.GrantLevel(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.True(granted)

	granted, err = s.store.GrantLevel(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.False(granted, "second grant of the same level must be refused")

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(10.0, got.Balance)
	s.Equal(10.0, got.ReferralEarnings)
	s.Equal([]int{1}, got.AchievedLevels)
}

func (s *UserStoreSuite) TestGrantLevelConcurrentCreditsOnce() {
	u := s.seed("frank", 0)

	const workers = 20
	var wg sync.WaitGroup
	grants := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := s.store.GrantLevel(s.ctx, u.ID, 2, 25)
			s.NoError(err)
			grants <- granted
		}()
	}
	wg.Wait()
	close(grants)

	var winners int
	for g := range grants {
		if g {
			winners++
		}
	}
	s.Equal(1, winners)

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(25.0, got.Balance)
	s.Equal([]int{2}, got.AchievedLevels)
}

func (s *UserStoreSuite) TestSetActivationKeepsFlagsInSync() {
	u := s.seed("grace", 0)

	s.Require().NoError(s.store.SetActivation(s.ctx, u.ID, true))
	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(got.IsActive)
	s.True(got.RegistrationDepositVerified)

	s.Require().NoError(s.store.SetActivation(s.ctx, u.ID, false))
	got, err = s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)
	s.False(got.RegistrationDepositVerified)
}

func (s *UserStoreSuite) TestFindReturnsCopies() {
	u := s.seed("henry", 0)
	_, err := s.store.GrantLevel(s.ctx, u.ID, 1, 5)
	s.Require().NoError(err)

	got, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	got.AchievedLevels[0] = 99

	again, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal([]int{1}, again.AchievedLevels, "callers must not be able to mutate store state")
}
