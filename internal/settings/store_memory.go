package settings

import (
	"context"
	"sort"
	"sync"
	"time"

	"suci/pkg/platform/sentinel"
)

// InMemoryStore keeps settings in a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	settings map[string]Setting
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{settings: make(map[string]Setting)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if setting, ok := s.settings[key]; ok {
		return setting, nil
	}
	return Setting{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Set(_ context.Context, key, value, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.settings[key]
	if description == "" {
		description = existing.Description
	}
	s.settings[key] = Setting{Key: key, Value: value, Description: description, UpdatedAt: time.Now()}
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Setting, 0, len(s.settings))
	for _, setting := range s.settings {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
