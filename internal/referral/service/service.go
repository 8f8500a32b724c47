// Package service owns referral placement and the activation state of
// referral edges.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"suci/internal/referral/models"
	"suci/internal/referral/store"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// UserResolver is the slice of the user store placement needs: turning a
// referral code into its owner.
type UserResolver interface {
	FindReferrerByCode(ctx context.Context, code string) (id.UserID, error)
}

type Service struct {
	store store.Store
	users UserResolver
	log   *zap.Logger
}

func New(store store.Store, users UserResolver, log *zap.Logger) *Service {
	return &Service{store: store, users: users, log: log}
}

// Place attaches a new user under the owner of the referral code. The side
// comes from the referrer's child count at insert time, alternating
// left/right; count and insert are one atomic unit in the store, so two
// concurrent registrations under the same referrer always land on different
// sides. An unknown or empty code places nothing and is not an error: the
// user simply joins without a referrer.
func (s *Service) Place(ctx context.Context, referredID id.UserID, referralCode string) (*models.Referral, error) {
	if referralCode == "" {
		return nil, nil
	}
	referrerID, err := s.users.FindReferrerByCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.log.Info("unknown referral code, placing without referrer",
				zap.String("code", referralCode), zap.String("user_id", string(referredID)))
			return nil, nil
		}
		return nil, err
	}
	if referrerID == referredID {
		return nil, errors.Join(sentinel.ErrInvalidInput, errors.New("cannot refer yourself"))
	}

	edge, err := s.store.PlaceUnder(ctx, referrerID, referredID)
	if err != nil {
		return nil, err
	}
	s.log.Info("referral placed",
		zap.String("referrer_id", string(referrerID)),
		zap.String("referred_id", string(referredID)),
		zap.String("side", string(edge.Side)))
	return &edge, nil
}

// Activate marks the edge owned by the referred user active. Users without
// an edge are a no-op.
func (s *Service) Activate(ctx context.Context, referredID id.UserID) error {
	return s.store.SetActive(ctx, referredID, true)
}

// Deactivate marks the edge owned by the referred user inactive.
func (s *Service) Deactivate(ctx context.Context, referredID id.UserID) error {
	return s.store.SetActive(ctx, referredID, false)
}

// Referrer returns the edge pointing at the referred user's referrer, or nil
// when the user joined without one.
func (s *Service) Referrer(ctx context.Context, referredID id.UserID) (*models.Referral, error) {
	edge, err := s.store.FindByReferred(ctx, referredID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// Direct lists a user's direct referrals.
func (s *Service) Direct(ctx context.Context, referrerID id.UserID) ([]models.Referral, error) {
	return s.store.ListByReferrer(ctx, referrerID)
}

// Stats is the per-user referral summary shown on the dashboard.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

func (s *Service) StatsFor(ctx context.Context, referrerID id.UserID) (Stats, error) {
	edges, err := s.store.ListByReferrer(ctx, referrerID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(edges)}
	for _, e := range edges {
		if e.IsActive {
			stats.Active++
		}
		if e.Side == models.SideLeft {
			stats.Left++
		} else {
			stats.Right++
		}
	}
	return stats, nil
}
