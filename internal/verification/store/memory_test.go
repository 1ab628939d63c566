package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestInMemoryCommitCAS(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	userID := id.UserID(uuid.New())

	st := models.NewStatus(userID, now)
	require.NoError(t, s.Commit(ctx, Commit{Status: st}))
	assert.Equal(t, int64(1), st.Version)

	err := s.Commit(ctx, Commit{Status: models.NewStatus(userID, now)})
	assert.ErrorIs(t, err, sentinel.ErrConflict, "second insert loses")

	stale := st.Clone()
	st.Status = models.StatusPending
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: 1}))
	assert.Equal(t, int64(2), st.Version)

	err = s.Commit(ctx, Commit{Status: stale, ExpectedVersion: stale.Version})
	assert.ErrorIs(t, err, sentinel.ErrConflict, "stale version loses")

	found, err := s.FindStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, found.Status)
}

func TestInMemoryConcurrentCommitsOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	userID := id.UserID(uuid.New())
	st := models.NewStatus(userID, now)
	require.NoError(t, s.Commit(ctx, Commit{Status: st}))

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := st.Clone()
			c.AttemptsTotal++
			err := s.Commit(ctx, Commit{Status: c, ExpectedVersion: 1})
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(goroutines-1), conflicts.Load())
	found, err := s.FindStatus(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.AttemptsTotal)
}

func TestInMemoryEmbeddingsAppendThenMarkCurrent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	userID := id.UserID(uuid.New())
	st := models.NewStatus(userID, now)
	require.NoError(t, s.Commit(ctx, Commit{Status: st}))

	first := &models.FaceEmbedding{ID: id.NewEmbeddingID(), UserID: userID, Kind: models.EmbeddingIdentity, Vector: []float64{1, 0}, CreatedAt: now}
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Embedding: first}))
	second := &models.FaceEmbedding{ID: id.NewEmbeddingID(), UserID: userID, Kind: models.EmbeddingIdentity, Vector: []float64{0, 1}, CreatedAt: now.Add(time.Hour)}
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Embedding: second}))

	current, err := s.CurrentEmbedding(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	expired, err := s.ExpiredEmbeddings(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, first.ID, expired[0].ID)
	assert.Equal(t, []float64{1, 0}, expired[0].Vector, "superseded vector is untouched")

	require.NoError(t, s.DeleteEmbedding(ctx, second.ID))
	_, err = s.CurrentEmbedding(ctx, userID)
	require.NoError(t, err, "current embedding is never deleted")
}

func TestInMemoryBanReferencesOutliveRetention(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	userID := id.UserID(uuid.New())
	st := models.NewStatus(userID, now)
	require.NoError(t, s.Commit(ctx, Commit{Status: st}))

	selfie := &models.FaceEmbedding{ID: id.NewEmbeddingID(), UserID: userID, Kind: models.EmbeddingAttempt, Vector: []float64{1, 0}, CreatedAt: now}
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Embedding: selfie}))
	ban := &models.FaceEmbedding{ID: id.NewEmbeddingID(), UserID: userID, Kind: models.EmbeddingBanReference, Vector: []float64{0, 1}, CreatedAt: now.Add(time.Minute)}
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Embedding: ban}))

	latest, err := s.LatestEmbedding(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, ban.ID, latest.ID)
	_, err = s.LatestEmbedding(ctx, id.UserID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	expired, err := s.ExpiredEmbeddings(ctx, now.Add(400*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, selfie.ID, expired[0].ID)

	require.NoError(t, s.DeleteEmbedding(ctx, ban.ID))
	refs, err := s.BanReferences(ctx)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, ban.ID, refs[0].ID)
}

func TestInMemoryAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	userID := id.UserID(uuid.New())
	st := models.NewStatus(userID, now)
	require.NoError(t, s.Commit(ctx, Commit{Status: st}))

	a := &models.Attempt{ID: id.NewAttemptID(), UserID: userID, AttemptNumber: 1, AttemptedAt: now, Result: models.ResultAgeFail, MediaDigest: "abc"}
	require.NoError(t, s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Attempt: a}))

	dup := *a
	dup.ID = id.NewAttemptID()
	err := s.Commit(ctx, Commit{Status: st, ExpectedVersion: st.Version, Attempt: &dup})
	assert.ErrorIs(t, err, sentinel.ErrConflict, "attempt numbers are unique per user")

	byDigest, err := s.FindAttemptByDigest(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byDigest.ID)

	require.NoError(t, s.DeleteAttempt(ctx, a.ID))
	require.NoError(t, s.DeleteAttempt(ctx, a.ID), "deleting a missing attempt is success")
	_, err = s.FindAttempt(ctx, a.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
