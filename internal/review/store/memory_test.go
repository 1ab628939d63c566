package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/review/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

func newEntry(priority int, createdAt time.Time) *models.Entry {
	return &models.Entry{
		ID:          id.NewReviewEntryID(),
		UserID:      id.UserID(uuid.New()),
		AttemptID:   id.NewAttemptID(),
		Status:      models.StatusPending,
		FlagReasons: []evaluator.FlagReason{evaluator.FlagGrayBand},
		Priority:    priority,
		Candidate:   &models.Candidate{Embedding: []float64{1, 0}},
		CreatedAt:   createdAt,
	}
}

func TestInMemoryStore_Ordering(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	low := newEntry(10, t0)
	highOld := newEntry(80, t0)
	highNew := newEntry(80, t0.Add(time.Minute))
	for _, e := range []*models.Entry{highNew, low, highOld} {
		require.NoError(t, s.Create(ctx, e))
	}

	pending, err := s.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, highOld.ID, pending[0].ID)
	assert.Equal(t, highNew.ID, pending[1].ID)
	assert.Equal(t, low.ID, pending[2].ID)

	limited, err := s.ListPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInMemoryStore_Claim(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := newEntry(50, now)
	require.NoError(t, s.Create(ctx, e))

	t.Run("duplicate attempt is a conflict", func(t *testing.T) {
		dup := newEntry(50, now)
		dup.AttemptID = e.AttemptID
		assert.ErrorIs(t, s.Create(ctx, dup), sentinel.ErrConflict)
	})

	t.Run("first claim wins", func(t *testing.T) {
		claimed, err := s.Claim(ctx, models.Decision{EntryID: e.ID, Status: models.StatusApproved, ReviewerID: "r1", At: now})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, claimed.Status)

		_, err = s.Claim(ctx, models.Decision{EntryID: e.ID, Status: models.StatusRejected, ReviewerID: "r2", At: now})
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
	})

	t.Run("unclaim only reverts the matching claim", func(t *testing.T) {
		require.NoError(t, s.Unclaim(ctx, e.ID, models.StatusRejected))
		found, err := s.FindByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, found.Status)

		require.NoError(t, s.Unclaim(ctx, e.ID, models.StatusApproved))
		found, err = s.FindByID(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, found.Status)
		assert.Nil(t, found.ReviewedAt)
	})

	t.Run("missing entry", func(t *testing.T) {
		_, err := s.Claim(ctx, models.Decision{EntryID: id.NewReviewEntryID(), Status: models.StatusApproved})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestInMemoryStore_Retention(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	decided := newEntry(10, now.Add(-800*24*time.Hour))
	pending := newEntry(10, now.Add(-800*24*time.Hour))
	require.NoError(t, s.Create(ctx, decided))
	require.NoError(t, s.Create(ctx, pending))
	_, err := s.Claim(ctx, models.Decision{EntryID: decided.ID, Status: models.StatusRejected, ReviewerID: "r", At: now.Add(-790 * 24 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, s.ClearCandidate(ctx, decided.ID))

	expired, err := s.ExpiredTerminal(ctx, now.Add(-730*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1, "pending entries are never expired")
	assert.Equal(t, decided.ID, expired[0].ID)
	assert.Nil(t, expired[0].Candidate)

	require.NoError(t, s.Delete(ctx, decided.ID))
	_, err = s.FindByID(ctx, decided.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
