//go:build integration

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
	"suci/pkg/testutil/containers"
)

type UserPostgresSuite struct {
	suite.Suite
	ctx context.Context
	pg  *containers.PostgresContainer
	st  *PostgresStore
}

func TestUserPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, &UserPostgresSuite{pg: containers.NewPostgresContainer(t)})
}

func (s *UserPostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.st = NewPostgres(s.pg.DB)
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *UserPostgresSuite) seed(username string, balance float64) models.User {
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
	s.Require().NoError(s.st.Create(s.ctx, &u))
	return u
}

func (s *UserPostgresSuite) TestCreateAndFindRoundTrip() {
	u := s.seed("alice", 25)

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Username, got.Username)
	s.Equal(25.0, got.Balance)

	byEmail, err := s.st.FindByEmail(s.ctx, u.Email)
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	byCode, err := s.st.FindByReferralCode(s.ctx, u.ReferralCode)
	s.Require().NoError(err)
	s.Equal(u.ID, byCode.ID)

	_, err = s.st.FindByID(s.ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *UserPostgresSuite) TestCreateRejectsDuplicates() {
	u := s.seed("alice", 0)

	dup := models.User{
		ID:           id.NewUserID(),
		Username:     "alice2",
		Email:        u.Email,
		ReferralCode: id.NewReferralCode(),
	}
	s.ErrorIs(s.st.Create(s.ctx, &dup), sentinel.ErrConflict)
}

func (s *UserPostgresSuite) TestBalanceDeltaIsGuardedByCheckConstraint() {
	u := s.seed("bob", 50)

	s.Require().NoError(s.st.ApplyBalanceDelta(s.ctx, u.ID, -30))
	s.ErrorIs(s.st.ApplyBalanceDelta(s.ctx, u.ID, -30), sentinel.ErrInvalidState)

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(20.0, got.Balance)
}

func (s *UserPostgresSuite) TestConcurrentDebitsNeverOverdraw() {
	u := s.seed("carol", 100)

	const workers = 30
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.st.ApplyBalanceDelta(s.ctx, u.ID, -10)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	s.Equal(10, succeeded)

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(0.0, got.Balance)
}

func (s *UserPostgresSuite) TestGrantLevelIsIdempotent() {
	u := s.seed("dave", 0)

	granted, err := s.st.GrantLevel(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.True(granted)

	granted, err = s.st.GrantLevel(s.ctx, u.ID, 1, 10)
	s.Require().NoError(err)
	s.False(granted, "a level is credited at most once")

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(10.0, got.Balance)
	s.Equal([]int{1}, got.AchievedLevels)
	s.Equal(10.0, got.ReferralEarnings)
}

func (s *UserPostgresSuite) TestConcurrentGrantLevelSingleWinner() {
	u := s.seed("erin", 0)

	const workers = 10
	wins := make(chan bool, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := s.st.GrantLevel(s.ctx, u.ID, 2, 25)
			s.NoError(err)
			wins <- granted
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	s.Equal(1, winners)

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(25.0, got.Balance)
}

func (s *UserPostgresSuite) TestActivationLifecycle() {
	u := s.seed("frank", 0)

	s.Require().NoError(s.st.SetRegistrationPaid(s.ctx, u.ID, 60))
	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(got.RegistrationDepositPaid)
	s.Equal(60.0, got.RegistrationDepositAmount)

	s.Require().NoError(s.st.SetActivation(s.ctx, u.ID, true))
	got, err = s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(got.IsActive)
	s.True(got.RegistrationDepositVerified)

	n, err := s.st.Count(s.ctx, true)
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *UserPostgresSuite) TestUpdatePersistsRegistrationAndReferrerFields() {
	referrer := s.seed("ref", 0)
	u := s.seed("henry", 0)

	s.Require().NoError(s.st.SetRegistrationPaid(s.ctx, u.ID, 60))

	// rejection clears the paid flag; the row must reflect that or the user
	// can never submit again
	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	got.RegistrationDepositPaid = false
	got.RegistrationDepositAmount = 0
	got.ReferredBy = referrer.ID
	s.Require().NoError(s.st.Update(s.ctx, &got))

	reread, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.False(reread.RegistrationDepositPaid)
	s.Zero(reread.RegistrationDepositAmount)
	s.Equal(referrer.ID, reread.ReferredBy)

	// resubmission after the reset
	s.Require().NoError(s.st.SetRegistrationPaid(s.ctx, u.ID, 60))
	reread, err = s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.True(reread.RegistrationDepositPaid)
	s.Equal(60.0, reread.RegistrationDepositAmount)
}

func (s *UserPostgresSuite) TestRecordLogin() {
	u := s.seed("grace", 0)
	at := time.Now().UTC().Truncate(time.Second)

	s.Require().NoError(s.st.RecordLogin(s.ctx, u.ID, at, "Chrome on Mac OS X"))

	got, err := s.st.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Chrome on Mac OS X", got.LastLoginDevice)
	s.WithinDuration(at, got.LastLogin, time.Second)
}
