//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/review/models"
	"faceguard/internal/review/store"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background()))
}

func (s *PostgresStoreSuite) entry(priority int) *models.Entry {
	return &models.Entry{
		ID:          id.NewReviewEntryID(),
		UserID:      id.UserID(uuid.New()),
		AttemptID:   id.NewAttemptID(),
		Status:      models.StatusPending,
		FlagReasons: []evaluator.FlagReason{evaluator.FlagGrayBand, evaluator.FlagLowConfidence},
		Priority:    priority,
		Scores:      evaluator.Scores{Liveness: 0.91, PhotoMatches: []float64{0.8, 0.84}},
		Candidate:   &models.Candidate{Embedding: []float64{0.6, 0.8}, ClientPlatform: "desktop/Linux/Firefox"},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	e := s.entry(40)
	s.Require().NoError(s.store.Create(ctx, e))

	found, err := s.store.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.FlagReasons, found.FlagReasons)
	s.Equal(e.Scores.PhotoMatches, found.Scores.PhotoMatches)
	s.Require().NotNil(found.Candidate)
	s.Equal([]float64{0.6, 0.8}, found.Candidate.Embedding)

	dup := s.entry(40)
	dup.AttemptID = e.AttemptID
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	e := s.entry(40)
	s.Require().NoError(s.store.Create(ctx, e))

	var wins, lost atomic.Int32
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := models.StatusApproved
			if i%2 == 1 {
				status = models.StatusRejected
			}
			_, err := s.store.Claim(ctx, models.Decision{EntryID: e.ID, Status: status, ReviewerID: "r", At: time.Now()})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
	s.Equal(int32(7), lost.Load())
}

func (s *PostgresStoreSuite) TestPendingOrderAndCandidateClear() {
	ctx := context.Background()
	low, high := s.entry(10), s.entry(90)
	s.Require().NoError(s.store.Create(ctx, low))
	s.Require().NoError(s.store.Create(ctx, high))

	pending, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(high.ID, pending[0].ID)

	s.Require().NoError(s.store.ClearCandidate(ctx, high.ID))
	found, err := s.store.FindByID(ctx, high.ID)
	s.Require().NoError(err)
	s.Nil(found.Candidate)
}
