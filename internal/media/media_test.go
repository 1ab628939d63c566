package media

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/sentinel"
)

func TestKeys(t *testing.T) {
	userID := id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	attemptID := id.AttemptID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	meetingID := id.MeetingID(uuid.MustParse("33333333-3333-3333-3333-333333333333"))

	assert.Equal(t,
		"users/11111111-1111-1111-1111-111111111111/raw/22222222-2222-2222-2222-222222222222/selfie.jpg",
		RawKey(userID, attemptID, "../../selfie.jpg"))
	assert.Equal(t,
		"meetings/33333333-3333-3333-3333-333333333333/11111111-1111-1111-1111-111111111111/42",
		MeetingKey(meetingID, userID, time.Unix(0, 42)))
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	blobs := NewInMemoryBlobs()
	s := NewStore(blobs, NewInMemoryIndex())
	userID := id.UserID(uuid.New())
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	old := Object{Key: "users/a/raw/1/selfie", Class: ClassRaw, UserID: userID, Data: []byte("old"), CreatedAt: t0}
	fresh := Object{Key: "users/a/raw/2/selfie", Class: ClassRaw, UserID: userID, Data: []byte("new"), CreatedAt: t0.Add(40 * 24 * time.Hour)}
	meeting := Object{Key: "meetings/m/a/1", Class: ClassMeeting, UserID: userID, Data: []byte("m"), CreatedAt: t0}
	for _, o := range []Object{old, fresh, meeting} {
		require.NoError(t, s.Put(ctx, o))
	}

	expired, err := s.Expired(ctx, ClassRaw, t0.Add(30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.Key, expired[0].Key)
	assert.Equal(t, int64(3), expired[0].SizeBytes)

	require.NoError(t, s.Delete(ctx, old.Key))
	require.NoError(t, s.Delete(ctx, old.Key), "deleting a missing object is success")
	_, err = s.Get(ctx, old.Key)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.Equal(t, []string{meeting.Key, fresh.Key}, blobs.Keys())
}
