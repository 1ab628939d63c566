// Package store persists review queue entries.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceguard/internal/review/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ReviewEntryID]*models.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.ReviewEntryID]*models.Entry)}
}

func (s *InMemoryStore) Create(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.entries {
		if existing.AttemptID == e.AttemptID {
			return sentinel.ErrConflict
		}
	}
	s.entries[e.ID] = clone(e)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.ReviewEntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

// ListPending orders by priority descending, then oldest first.
func (s *InMemoryStore) ListPending(_ context.Context, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.Status == models.StatusPending {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Claim moves a pending entry to the decision's status. A decided entry
// returns sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) Claim(_ context.Context, d models.Decision) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[d.EntryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if e.Status != models.StatusPending {
		return nil, sentinel.ErrAlreadyUsed
	}
	at := d.At
	e.Status = d.Status
	e.ReviewedBy = d.ReviewerID
	e.ReviewNotes = d.Notes
	e.ReviewedAt = &at
	return clone(e), nil
}

// Unclaim reverts a claim whose result could not be recorded.
func (s *InMemoryStore) Unclaim(_ context.Context, entryID id.ReviewEntryID, claimed models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok || e.Status != claimed {
		return nil
	}
	e.Status = models.StatusPending
	e.ReviewedBy = ""
	e.ReviewNotes = ""
	e.ReviewedAt = nil
	return nil
}

func (s *InMemoryStore) ClearCandidate(_ context.Context, entryID id.ReviewEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[entryID]; ok {
		e.Candidate = nil
	}
	return nil
}

// ExpiredTerminal returns decided entries reviewed before the cutoff.
func (s *InMemoryStore) ExpiredTerminal(_ context.Context, cutoff time.Time, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Entry
	for _, e := range s.entries {
		if e.Status.IsTerminal() && e.ReviewedAt != nil && e.ReviewedAt.Before(cutoff) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewedAt.Before(*out[j].ReviewedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, entryID id.ReviewEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entryID)
	return nil
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	c.FlagReasons = append(c.FlagReasons[:0:0], e.FlagReasons...)
	if e.Candidate != nil {
		cand := *e.Candidate
		cand.Embedding = append([]float64(nil), e.Candidate.Embedding...)
		cand.PhotoMatchScores = append([]float64(nil), e.Candidate.PhotoMatchScores...)
		c.Candidate = &cand
	}
	if e.ReviewedAt != nil {
		at := *e.ReviewedAt
		c.ReviewedAt = &at
	}
	return &c
}
