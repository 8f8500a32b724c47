//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ledgermodels "suci/internal/ledger/models"
	userstore "suci/internal/ledger/store/user"
	"suci/internal/referral/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
	"suci/pkg/testutil/containers"
)

type ReferralPostgresSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	st    *PostgresStore
	users *userstore.PostgresStore
}

func TestReferralPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, &ReferralPostgresSuite{pg: containers.NewPostgresContainer(t)})
}

func (s *ReferralPostgresSuite) SetupTest() {
	s.ctx = context.Background()
	s.st = NewPostgres(s.pg.DB)
	s.users = userstore.NewPostgres(s.pg.DB)
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

// seedUser satisfies the referrals foreign keys.
func (s *ReferralPostgresSuite) seedUser(username string) id.UserID {
	u := ledgermodels.User{
		ID:           id.NewUserID(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		ReferralCode: id.NewReferralCode(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.Require().NoError(s.users.Create(s.ctx, &u))
	return u.ID
}

func (s *ReferralPostgresSuite) TestPlacementAlternatesSides() {
	referrer := s.seedUser("root")

	sides := make([]models.Side, 0, 6)
	for i := 0; i < 6; i++ {
		child := s.seedUser("child" + string(rune('a'+i)))
		edge, err := s.st.PlaceUnder(s.ctx, referrer, child)
		s.Require().NoError(err)
		sides = append(sides, edge.Side)
	}

	s.Equal([]models.Side{
		models.SideLeft, models.SideRight,
		models.SideLeft, models.SideRight,
		models.SideLeft, models.SideRight,
	}, sides)
}

func (s *ReferralPostgresSuite) TestReferredCanBePlacedOnlyOnce() {
	referrer := s.seedUser("root")
	other := s.seedUser("other")
	child := s.seedUser("child")

	_, err := s.st.PlaceUnder(s.ctx, referrer, child)
	s.Require().NoError(err)

	_, err = s.st.PlaceUnder(s.ctx, other, child)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ReferralPostgresSuite) TestConcurrentPlacementsBalance() {
	referrer := s.seedUser("root")

	const children = 20
	ids := make([]id.UserID, children)
	for i := range ids {
		ids[i] = s.seedUser("bulk" + string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, childID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.st.PlaceUnder(s.ctx, referrer, childID)
			s.NoError(err)
		}()
	}
	wg.Wait()

	edges, err := s.st.ListByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Len(edges, children)

	left, right := 0, 0
	for _, e := range edges {
		switch e.Side {
		case models.SideLeft:
			left++
		case models.SideRight:
			right++
		}
	}
	s.Equal(children/2, left, "races must not skew the alternation")
	s.Equal(children/2, right)
}

func (s *ReferralPostgresSuite) TestActivationCounts() {
	referrer := s.seedUser("root")
	a := s.seedUser("a")
	b := s.seedUser("b")
	for _, child := range []id.UserID{a, b} {
		_, err := s.st.PlaceUnder(s.ctx, referrer, child)
		s.Require().NoError(err)
	}

	n, err := s.st.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Zero(n)

	s.Require().NoError(s.st.SetActive(s.ctx, a, true))
	n, err = s.st.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Require().NoError(s.st.SetActive(s.ctx, a, false))
	n, err = s.st.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Zero(n)

	total, err := s.st.CountByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Equal(2, total)
}

func (s *ReferralPostgresSuite) TestFindByReferred() {
	referrer := s.seedUser("root")
	child := s.seedUser("child")

	_, err := s.st.FindByReferred(s.ctx, child)
	s.ErrorIs(err, sentinel.ErrNotFound)

	placed, err := s.st.PlaceUnder(s.ctx, referrer, child)
	s.Require().NoError(err)

	got, err := s.st.FindByReferred(s.ctx, child)
	s.Require().NoError(err)
	s.Equal(placed.ID, got.ID)
	s.Equal(referrer, got.ReferrerID)
}
