package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"suci/internal/referral/models"
	"suci/internal/referral/store"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// codebook resolves referral codes from a fixed map, standing in for the
// user store.
type codebook map[string]id.UserID

func (c codebook) FindReferrerByCode(_ context.Context, code string) (id.UserID, error) {
	owner, ok := c[code]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return owner, nil
}

type ReferralServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.InMemoryStore
	codes codebook
	svc   *Service
}

func TestReferralServiceSuite(t *testing.T) {
	suite.Run(t, new(ReferralServiceSuite))
}

func (s *ReferralServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.codes = codebook{"ALICE1": "user-alice"}
	s.svc = New(s.store, s.codes, zap.NewNop())
}

func (s *ReferralServiceSuite) TestPlaceAlternatesSides() {
	first, err := s.svc.Place(s.ctx, "user-bob", "ALICE1")
	s.Require().NoError(err)
	s.Require().NotNil(first)
	s.Equal(models.SideLeft, first.Side)
	s.False(first.IsActive)

	second, err := s.svc.Place(s.ctx, "user-carol", "ALICE1")
	s.Require().NoError(err)
	s.Require().NotNil(second)
	s.Equal(models.SideRight, second.Side)
}

func (s *ReferralServiceSuite) TestPlaceWithoutCodeIsNoop() {
	edge, err := s.svc.Place(s.ctx, "user-bob", "")
	s.NoError(err)
	s.Nil(edge)

	edge, err = s.svc.Place(s.ctx, "user-bob", "NOPE")
	s.NoError(err, "an unknown code is not the new user's fault")
	s.Nil(edge)
}

func (s *ReferralServiceSuite) TestPlaceRejectsSelfReferral() {
	_, err := s.svc.Place(s.ctx, "user-alice", "ALICE1")
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *ReferralServiceSuite) TestPlaceOnlyOnce() {
	s.codes["DAVE22"] = "user-dave"

	_, err := s.svc.Place(s.ctx, "user-bob", "ALICE1")
	s.Require().NoError(err)

	_, err = s.svc.Place(s.ctx, "user-bob", "DAVE22")
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ReferralServiceSuite) TestActivationRoundTrip() {
	_, err := s.svc.Place(s.ctx, "user-bob", "ALICE1")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Activate(s.ctx, "user-bob"))
	edge, err := s.svc.Referrer(s.ctx, "user-bob")
	s.Require().NoError(err)
	s.Require().NotNil(edge)
	s.True(edge.IsActive)

	s.Require().NoError(s.svc.Deactivate(s.ctx, "user-bob"))
	edge, err = s.svc.Referrer(s.ctx, "user-bob")
	s.Require().NoError(err)
	s.False(edge.IsActive)
}

func (s *ReferralServiceSuite) TestReferrerNilWhenUnplaced() {
	edge, err := s.svc.Referrer(s.ctx, "user-loner")
	s.NoError(err)
	s.Nil(edge)
}

func (s *ReferralServiceSuite) TestStatsFor() {
	children := []id.UserID{"b", "c", "d", "e"}
	for _, child := range children {
		_, err := s.svc.Place(s.ctx, child, "ALICE1")
		s.Require().NoError(err)
	}
	s.Require().NoError(s.svc.Activate(s.ctx, "b"))
	s.Require().NoError(s.svc.Activate(s.ctx, "d"))

	stats, err := s.svc.StatsFor(s.ctx, "user-alice")
	s.Require().NoError(err)
	s.Equal(Stats{Total: 4, Active: 2, Left: 2, Right: 2}, stats)

	direct, err := s.svc.Direct(s.ctx, "user-alice")
	s.Require().NoError(err)
	s.Len(direct, 4)
}
