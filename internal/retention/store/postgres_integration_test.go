//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"faceguard/internal/retention/models"
	"faceguard/internal/retention/store"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/testutil/containers"
)

type LegalHoldStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestLegalHoldStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LegalHoldStoreSuite))
}

func (s *LegalHoldStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *LegalHoldStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "legal_holds"))
}

func (s *LegalHoldStoreSuite) TestSetReplaceClear() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	at := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.Set(ctx, models.LegalHold{UserID: userID, Reason: "case 1", SetBy: "admin-1", SetAt: at}))
	s.Require().NoError(s.store.Set(ctx, models.LegalHold{UserID: userID, Reason: "case 2", SetBy: "admin-2", SetAt: at.Add(time.Hour)}))

	h, err := s.store.Find(ctx, userID)
	s.Require().NoError(err)
	s.Equal("case 2", h.Reason)
	s.Equal("admin-2", h.SetBy)

	holds, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(holds, 1)

	s.Require().NoError(s.store.Clear(ctx, userID))
	s.ErrorIs(s.store.Clear(ctx, userID), sentinel.ErrNotFound)
	_, err = s.store.Find(ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
