package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"suci/internal/referral/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// InMemoryStore holds the placement tree under one mutex, so the
// count-then-insert in PlaceUnder is trivially serialized.
type InMemoryStore struct {
	mu         sync.RWMutex
	byReferred map[id.UserID]*models.Referral
	byReferrer map[id.UserID][]id.UserID // insertion order preserved
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byReferred: make(map[id.UserID]*models.Referral),
		byReferrer: make(map[id.UserID][]id.UserID),
	}
}

func (s *InMemoryStore) PlaceUnder(_ context.Context, referrerID, referredID id.UserID) (models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, placed := s.byReferred[referredID]; placed {
		return models.Referral{}, fmt.Errorf("user already placed: %w", sentinel.ErrConflict)
	}

	edge := &models.Referral{
		ID:         id.NewReferralID(),
		ReferrerID: referrerID,
		ReferredID: referredID,
		Side:       models.SideForPosition(len(s.byReferrer[referrerID])),
		IsActive:   false,
		CreatedAt:  time.Now(),
	}
	s.byReferred[referredID] = edge
	s.byReferrer[referrerID] = append(s.byReferrer[referrerID], referredID)
	return *edge, nil
}

func (s *InMemoryStore) FindByReferred(_ context.Context, referredID id.UserID) (models.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.byReferred[referredID]
	if !ok {
		return models.Referral{}, sentinel.ErrNotFound
	}
	return *edge, nil
}

func (s *InMemoryStore) SetActive(_ context.Context, referredID id.UserID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	edge, ok := s.byReferred[referredID]
	if !ok {
		return nil
	}
	edge.IsActive = active
	return nil
}

func (s *InMemoryStore) ListByReferrer(_ context.Context, referrerID id.UserID) ([]models.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	children := s.byReferrer[referrerID]
	out := make([]models.Referral, 0, len(children))
	for _, referredID := range children {
		out = append(out, *s.byReferred[referredID])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CountByReferrer(_ context.Context, referrerID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byReferrer[referrerID]), nil
}

func (s *InMemoryStore) CountActiveByReferrer(_ context.Context, referrerID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	for _, referredID := range s.byReferrer[referrerID] {
		if s.byReferred[referredID].IsActive {
			n++
		}
	}
	return n, nil
}
