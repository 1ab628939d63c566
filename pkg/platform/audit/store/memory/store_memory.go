package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	id "faceguard/pkg/domain"
	audit "faceguard/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.UserID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	s.events[event.UserID] = append(s.events[event.UserID], event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListAll returns all audit events across all users, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []audit.Event
	for _, userEvents := range s.events {
		all = append(all, userEvents...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	return all, nil
}

// ExpiredEvents returns up to limit events recorded before cutoff, oldest first.
func (s *InMemoryStore) ExpiredEvents(ctx context.Context, cutoff time.Time, limit int) ([]audit.Event, error) {
	all, _ := s.ListAll(ctx)
	var out []audit.Event
	for _, e := range all {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// DeleteEvent removes one event. Deleting an unknown event is not an error.
func (s *InMemoryStore) DeleteEvent(_ context.Context, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, events := range s.events {
		for i, e := range events {
			if e.ID == eventID {
				s.events[userID] = append(events[:i:i], events[i+1:]...)
				return nil
			}
		}
	}
	return nil
}
