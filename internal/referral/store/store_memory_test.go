package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"suci/internal/referral/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

type ReferralStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
}

func TestReferralStoreSuite(t *testing.T) {
	suite.Run(t, new(ReferralStoreSuite))
}

func (s *ReferralStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemory()
}

func (s *ReferralStoreSuite) TestSidesAlternate() {
	referrer := id.UserID("root")
	var sides []models.Side
	for i := range 6 {
		edge, err := s.store.PlaceUnder(s.ctx, referrer, id.UserID(fmt.Sprintf("child-%d", i)))
		s.Require().NoError(err)
		sides = append(sides, edge.Side)
	}
	s.Equal([]models.Side{
		models.SideLeft, models.SideRight,
		models.SideLeft, models.SideRight,
		models.SideLeft, models.SideRight,
	}, sides)
}

func (s *ReferralStoreSuite) TestPlacementIsPerReferrer() {
	edge1, err := s.store.PlaceUnder(s.ctx, "a", "a-child")
	s.Require().NoError(err)
	edge2, err := s.store.PlaceUnder(s.ctx, "b", "b-child")
	s.Require().NoError(err)

	s.Equal(models.SideLeft, edge1.Side)
	s.Equal(models.SideLeft, edge2.Side, "each referrer's count starts at zero")
}

func (s *ReferralStoreSuite) TestReferredUserPlacedOnce() {
	_, err := s.store.PlaceUnder(s.ctx, "a", "child")
	s.Require().NoError(err)

	_, err = s.store.PlaceUnder(s.ctx, "b", "child")
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ReferralStoreSuite) TestConcurrentPlacementsBalance() {
	referrer := id.UserID("root")

	const children = 40
	var wg sync.WaitGroup
	for i := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.PlaceUnder(s.ctx, referrer, id.UserID(fmt.Sprintf("c-%d", i)))
			s.NoError(err)
		}()
	}
	wg.Wait()

	edges, err := s.store.ListByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Len(edges, children)

	var left, right int
	for _, e := range edges {
		if e.Side == models.SideLeft {
			left++
		} else {
			right++
		}
	}
	s.Equal(children/2, left, "alternation must hold under concurrency")
	s.Equal(children/2, right)
}

func (s *ReferralStoreSuite) TestSetActiveOnMissingEdgeIsNoop() {
	s.NoError(s.store.SetActive(s.ctx, "nobody", true))
}

func (s *ReferralStoreSuite) TestCountActiveTracksToggles() {
	referrer := id.UserID("root")
	for i := range 3 {
		_, err := s.store.PlaceUnder(s.ctx, referrer, id.UserID(fmt.Sprintf("c-%d", i)))
		s.Require().NoError(err)
	}

	n, err := s.store.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Zero(n, "edges start inactive")

	s.Require().NoError(s.store.SetActive(s.ctx, "c-0", true))
	s.Require().NoError(s.store.SetActive(s.ctx, "c-1", true))
	n, err = s.store.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Require().NoError(s.store.SetActive(s.ctx, "c-0", false))
	n, err = s.store.CountActiveByReferrer(s.ctx, referrer)
	s.Require().NoError(err)
	s.Equal(1, n)
}
