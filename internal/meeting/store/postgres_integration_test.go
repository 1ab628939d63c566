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

	"faceguard/internal/meeting/models"
	"faceguard/internal/meeting/store"
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

func (s *PostgresStoreSuite) record() *models.Record {
	return &models.Record{
		MeetingID:     id.MeetingID(uuid.New()),
		UserID:        id.UserID(uuid.New()),
		TransactionID: "pi_" + uuid.NewString()[:8],
		StartedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestDenialCommitsWithDecision() {
	ctx := context.Background()
	rec := s.record()

	claimed, err := s.store.Claim(ctx, rec, rec.StartedAt.Add(-time.Minute))
	s.Require().NoError(err)
	s.Equal(models.StateChecking, claimed.State)

	now := time.Now().UTC().Truncate(time.Microsecond)
	claimed.Deny(now, models.DenialMismatch, 0.42)
	decision := models.NewDenialDecision(claimed, now)
	s.Require().NoError(s.store.Finalize(ctx, claimed, decision))

	found, err := s.store.Find(ctx, rec.MeetingID, rec.UserID)
	s.Require().NoError(err)
	s.Equal(models.StateDenied, found.State)
	s.Equal(models.DenialMismatch, found.DenialReason)
	s.InDelta(0.42, found.Similarity, 1e-9)

	d, err := s.store.FindDecision(ctx, rec.MeetingID, rec.UserID)
	s.Require().NoError(err)
	s.Equal(models.DenialInstructions(), d.Instructions)
	s.Equal(rec.TransactionID, d.TransactionID)
	s.Nil(d.DispatchedAt)

	_, err = s.store.Claim(ctx, rec, now.Add(time.Hour))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestFinalizeIsWriteOnce() {
	ctx := context.Background()
	rec := s.record()
	claimed, err := s.store.Claim(ctx, rec, rec.StartedAt.Add(-time.Minute))
	s.Require().NoError(err)

	now := time.Now().UTC()
	admitted := claimed.Clone()
	admitted.Admit(now, 0.91)
	s.Require().NoError(s.store.Finalize(ctx, admitted, nil))

	denied := claimed.Clone()
	denied.Deny(now, models.DenialTimeout, 0)
	err = s.store.Finalize(ctx, denied, models.NewDenialDecision(denied, now))
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.FindDecision(ctx, rec.MeetingID, rec.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound, "rolled back decision must not persist")
}

func (s *PostgresStoreSuite) TestConcurrentClaimHasOneWinner() {
	ctx := context.Background()
	rec := s.record()

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Claim(ctx, rec, rec.StartedAt.Add(-time.Minute))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
	s.Equal(int32(7), conflicts.Load())
}

func (s *PostgresStoreSuite) TestOutbox() {
	ctx := context.Background()
	rec := s.record()
	claimed, err := s.store.Claim(ctx, rec, rec.StartedAt.Add(-time.Minute))
	s.Require().NoError(err)
	now := time.Now().UTC()
	claimed.Deny(now, models.DenialNotVerified, 0)
	decision := models.NewDenialDecision(claimed, now)
	s.Require().NoError(s.store.Finalize(ctx, claimed, decision))

	pending, err := s.store.PendingDecisions(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(decision.ID, pending[0].ID)

	s.Require().NoError(s.store.MarkDispatched(ctx, decision.ID, now))
	pending, err = s.store.PendingDecisions(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)

	expired, err := s.store.ExpiredRecords(ctx, now.Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Require().NoError(s.store.DeleteRecord(ctx, rec.MeetingID, rec.UserID))
	_, err = s.store.FindDecision(ctx, rec.MeetingID, rec.UserID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
