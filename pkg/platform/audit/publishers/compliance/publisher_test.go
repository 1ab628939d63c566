package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "faceguard/pkg/domain"
	audit "faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/audit/store/memory"
	"faceguard/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }
func (failingStore) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()

	t.Run("persists event with actor", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)
		userID := id.UserID(uuid.New())

		err := pub.Emit(ctx, audit.ComplianceEvent{
			UserID:   userID,
			Action:   audit.EventAdminOverride,
			Decision: "VERIFIED",
			ActorID:  "admin-1",
		})
		require.NoError(t, err)

		events, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)
		assert.Equal(t, "admin-1", events[0].ActorID)
		assert.False(t, events[0].Timestamp.IsZero())
	})

	t.Run("missing user is rejected", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		err := pub.Emit(ctx, audit.ComplianceEvent{Action: audit.EventAdminOverride})
		require.Error(t, err)
	})

	t.Run("store failure fails closed", func(t *testing.T) {
		pub := New(failingStore{})
		err := pub.Emit(ctx, audit.ComplianceEvent{
			UserID:  id.UserID(uuid.New()),
			Action:  audit.EventReviewApproved,
			ActorID: "reviewer-1",
		})
		require.ErrorContains(t, err, "disk full")
	})

	t.Run("admin action without actor is rejected", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		userID := id.UserID(uuid.New())
		err := New(store).Emit(ctx, audit.ComplianceEvent{
			UserID: userID,
			Action: audit.EventLegalHoldSet,
		})
		require.ErrorContains(t, err, "ActorID")

		events, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("system action needs no actor", func(t *testing.T) {
		err := New(memory.NewInMemoryStore()).Emit(ctx, audit.ComplianceEvent{
			UserID:   id.UserID(uuid.New()),
			Action:   audit.EventMeetingDenied,
			Decision: "MISMATCH",
		})
		require.NoError(t, err)
	})

	t.Run("defaults come from the request", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		userID := id.UserID(uuid.New())
		at := time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)
		rctx := requestcontext.WithRequestID(requestcontext.WithTime(ctx, at), "req-42")

		require.NoError(t, New(store).Emit(rctx, audit.ComplianceEvent{
			UserID:  userID,
			Action:  audit.EventAdminOverride,
			ActorID: "admin-1",
		}))

		events, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, at, events[0].Timestamp)
		assert.Equal(t, "req-42", events[0].RequestID)
	})
}
