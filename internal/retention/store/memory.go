// Package store persists legal holds.
package store

import (
	"context"
	"sort"
	"sync"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	holds map[id.UserID]models.LegalHold
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{holds: make(map[id.UserID]models.LegalHold)}
}

// Set creates or replaces the user's hold.
func (s *InMemoryStore) Set(_ context.Context, hold models.LegalHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.UserID] = hold
	return nil
}

// Clear removes the hold. A user without one is sentinel.ErrNotFound.
func (s *InMemoryStore) Clear(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holds[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.holds, userID)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID) (*models.LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holds[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &h, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.LegalHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LegalHold, 0, len(s.holds))
	for _, h := range s.holds {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SetAt.Before(out[j].SetAt) })
	return out, nil
}
