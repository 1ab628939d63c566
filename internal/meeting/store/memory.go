// Package store persists meeting check records and their denial decisions.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceguard/internal/meeting/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

type recordKey struct {
	meeting id.MeetingID
	user    id.UserID
}

type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[recordKey]*models.Record
	decisions map[recordKey]*models.DenialDecision
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[recordKey]*models.Record),
		decisions: make(map[recordKey]*models.DenialDecision),
	}
}

// Claim inserts rec as CHECKING when no record exists. A final record is
// returned with sentinel.ErrAlreadyUsed. A CHECKING record started before
// staleBefore is taken over; a fresher one is sentinel.ErrConflict.
func (s *InMemoryStore) Claim(_ context.Context, rec *models.Record, staleBefore time.Time) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{rec.MeetingID, rec.UserID}
	existing, ok := s.records[key]
	if !ok {
		c := rec.Clone()
		c.State = models.StateChecking
		s.records[key] = c
		return c.Clone(), nil
	}
	if existing.State.IsFinal() {
		return existing.Clone(), sentinel.ErrAlreadyUsed
	}
	if !existing.StartedAt.Before(staleBefore) {
		return nil, sentinel.ErrConflict
	}
	existing.StartedAt = rec.StartedAt
	existing.TransactionID = rec.TransactionID
	return existing.Clone(), nil
}

// Finalize writes the final state of a record claimed at rec.StartedAt, plus
// its decision when one is given. Anything else is sentinel.ErrInvalidState.
func (s *InMemoryStore) Finalize(_ context.Context, rec *models.Record, decision *models.DenialDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{rec.MeetingID, rec.UserID}
	existing, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.State != models.StateChecking || !existing.StartedAt.Equal(rec.StartedAt) {
		return sentinel.ErrInvalidState
	}
	if decision != nil {
		if _, dup := s.decisions[key]; dup {
			return sentinel.ErrConflict
		}
		s.decisions[key] = decision.Clone()
	}
	s.records[key] = rec.Clone()
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, meetingID id.MeetingID, userID id.UserID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordKey{meetingID, userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) FindDecision(_ context.Context, meetingID id.MeetingID, userID id.UserID) (*models.DenialDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[recordKey{meetingID, userID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// PendingDecisions returns undispatched decisions, oldest first.
func (s *InMemoryStore) PendingDecisions(_ context.Context, limit int) ([]*models.DenialDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DenialDecision
	for _, d := range s.decisions {
		if d.DispatchedAt == nil {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) MarkDispatched(_ context.Context, decisionID id.DecisionID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.decisions {
		if d.ID == decisionID {
			if d.DispatchedAt == nil {
				d.DispatchedAt = &at
			}
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// ExpiredRecords returns final records checked before the cutoff.
func (s *InMemoryStore) ExpiredRecords(_ context.Context, cutoff time.Time, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, r := range s.records {
		if r.State.IsFinal() && r.CheckedAt != nil && r.CheckedAt.Before(cutoff) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedAt.Before(*out[j].CheckedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteRecord removes a record and its dispatched decision. A pending
// decision stays until the dispatcher has delivered it.
func (s *InMemoryStore) DeleteRecord(_ context.Context, meetingID id.MeetingID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{meetingID, userID}
	delete(s.records, key)
	if d, ok := s.decisions[key]; ok && d.DispatchedAt != nil {
		delete(s.decisions, key)
	}
	return nil
}
