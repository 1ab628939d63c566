package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

// InMemoryStore keeps everything under one mutex, which serializes the CAS.
type InMemoryStore struct {
	mu         sync.RWMutex
	statuses   map[id.UserID]*models.VerificationStatus
	attempts   map[id.AttemptID]*models.Attempt
	byUser     map[id.UserID][]id.AttemptID
	embeddings map[id.EmbeddingID]*models.FaceEmbedding
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		statuses:   make(map[id.UserID]*models.VerificationStatus),
		attempts:   make(map[id.AttemptID]*models.Attempt),
		byUser:     make(map[id.UserID][]id.AttemptID),
		embeddings: make(map[id.EmbeddingID]*models.FaceEmbedding),
	}
}

func (s *InMemoryStore) FindStatus(_ context.Context, userID id.UserID) (*models.VerificationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *InMemoryStore) Commit(_ context.Context, c Commit) error {
	if c.Status == nil {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.statuses[c.Status.UserID]
	switch {
	case c.ExpectedVersion == 0 && ok:
		return sentinel.ErrConflict
	case c.ExpectedVersion != 0 && (!ok || existing.Version != c.ExpectedVersion):
		return sentinel.ErrConflict
	}
	if c.Attempt != nil {
		if _, dup := s.attempts[c.Attempt.ID]; dup {
			return sentinel.ErrConflict
		}
		for _, aid := range s.byUser[c.Attempt.UserID] {
			if s.attempts[aid].AttemptNumber == c.Attempt.AttemptNumber {
				return sentinel.ErrConflict
			}
		}
	}

	next := c.Status.Clone()
	next.Version = c.ExpectedVersion + 1
	s.statuses[next.UserID] = next
	c.Status.Version = next.Version

	if c.Attempt != nil {
		a := cloneAttempt(c.Attempt)
		s.attempts[a.ID] = a
		s.byUser[a.UserID] = append(s.byUser[a.UserID], a.ID)
	}
	if c.Embedding != nil {
		e := cloneEmbedding(c.Embedding)
		if e.Kind == models.EmbeddingIdentity {
			for _, prev := range s.embeddings {
				if prev.UserID == e.UserID && prev.Current {
					prev.Current = false
					at := e.CreatedAt
					prev.SupersededAt = &at
				}
			}
			e.Current = true
		} else {
			e.Current = false
		}
		s.embeddings[e.ID] = e
	}
	return nil
}

func (s *InMemoryStore) FindAttempt(_ context.Context, attemptID id.AttemptID) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAttempt(a), nil
}

// ListAttempts returns the user's attempts in attempt order.
func (s *InMemoryStore) ListAttempts(_ context.Context, userID id.UserID) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Attempt, 0, len(s.byUser[userID]))
	for _, aid := range s.byUser[userID] {
		if a, ok := s.attempts[aid]; ok {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (s *InMemoryStore) FindAttemptByDigest(_ context.Context, digest string) (*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Attempt
	for _, a := range s.attempts {
		if a.MediaDigest != digest || digest == "" {
			continue
		}
		if found == nil || a.AttemptedAt.Before(found.AttemptedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneAttempt(found), nil
}

func (s *InMemoryStore) CurrentEmbedding(_ context.Context, userID id.UserID) (*models.FaceEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.embeddings {
		if e.UserID == userID && e.Current {
			return cloneEmbedding(e), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) BanReferences(_ context.Context) ([]*models.FaceEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.FaceEmbedding
	for _, e := range s.embeddings {
		if e.Kind == models.EmbeddingBanReference {
			out = append(out, cloneEmbedding(e))
		}
	}
	return out, nil
}

// ListStaleInFlight returns users whose in-flight attempt started before the cutoff.
func (s *InMemoryStore) ListStaleInFlight(_ context.Context, before time.Time, limit int) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []id.UserID
	for uid, st := range s.statuses {
		if st.InFlightAttemptID == nil || st.InFlightStartedAt == nil || !st.InFlightStartedAt.Before(before) {
			continue
		}
		out = append(out, uid)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) ExpiredAttempts(_ context.Context, cutoff time.Time, limit int) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for _, a := range s.attempts {
		if a.AttemptedAt.Before(cutoff) {
			out = append(out, cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.Before(out[j].AttemptedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) DeleteAttempt(_ context.Context, attemptID id.AttemptID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil
	}
	delete(s.attempts, attemptID)
	ids := s.byUser[a.UserID]
	for i, aid := range ids {
		if aid == attemptID {
			s.byUser[a.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// LatestEmbedding returns the user's newest embedding of any kind.
func (s *InMemoryStore) LatestEmbedding(_ context.Context, userID id.UserID) (*models.FaceEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.FaceEmbedding
	for _, e := range s.embeddings {
		if e.UserID != userID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneEmbedding(latest), nil
}

// ExpiredEmbeddings returns superseded identity embeddings and failed-attempt
// selfies older than the cutoff. Current embeddings and ban references are
// never returned.
func (s *InMemoryStore) ExpiredEmbeddings(_ context.Context, cutoff time.Time, limit int) ([]*models.FaceEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.FaceEmbedding
	for _, e := range s.embeddings {
		if e.Current || e.Kind == models.EmbeddingBanReference {
			continue
		}
		if embeddingAge(e).Before(cutoff) {
			out = append(out, cloneEmbedding(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return embeddingAge(out[i]).Before(embeddingAge(out[j])) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func embeddingAge(e *models.FaceEmbedding) time.Time {
	if e.SupersededAt != nil {
		return *e.SupersededAt
	}
	return e.CreatedAt
}

func (s *InMemoryStore) DeleteEmbedding(_ context.Context, embeddingID id.EmbeddingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.embeddings[embeddingID]; ok && !e.Current && e.Kind != models.EmbeddingBanReference {
		delete(s.embeddings, embeddingID)
	}
	return nil
}

func cloneAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	c.PhotoMatchScores = append([]float64(nil), a.PhotoMatchScores...)
	if a.ReviewEntryID != nil {
		v := *a.ReviewEntryID
		c.ReviewEntryID = &v
	}
	return &c
}

func cloneEmbedding(e *models.FaceEmbedding) *models.FaceEmbedding {
	c := *e
	c.Vector = append([]float64(nil), e.Vector...)
	if e.SupersededAt != nil {
		v := *e.SupersededAt
		c.SupersededAt = &v
	}
	return &c
}
