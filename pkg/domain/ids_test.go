package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "faceguard/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseUserID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(validUUID), id)
	})
}

// A meeting and a participant can share the same underlying UUID value without
// the types becoming interchangeable.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	meetingID := MeetingID(uuid.New())

	// var _ UserID = meetingID  // compile error
	// var _ MeetingID = userID  // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(meetingID))
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE users;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},

		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errUser := ParseUserID(validUUID)
		_, errAttempt := ParseAttemptID(validUUID)
		_, errEntry := ParseReviewEntryID(validUUID)
		_, errMeeting := ParseMeetingID(validUUID)
		_, errDecision := ParseDecisionID(validUUID)

		require.NoError(t, errUser)
		require.NoError(t, errAttempt)
		require.NoError(t, errEntry)
		require.NoError(t, errMeeting)
		require.NoError(t, errDecision)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errAttempt := ParseAttemptID(input)
			_, errEntry := ParseReviewEntryID(input)
			_, errMeeting := ParseMeetingID(input)
			_, errDecision := ParseDecisionID(input)

			require.Error(t, errUser)
			require.Error(t, errAttempt)
			require.Error(t, errEntry)
			require.Error(t, errMeeting)
			require.Error(t, errDecision)
		})
	}
}

func TestIDs_JSONRoundTrip(t *testing.T) {
	type payload struct {
		User    UserID    `json:"user_id"`
		Meeting MeetingID `json:"meeting_id"`
	}
	in := payload{User: UserID(uuid.New()), Meeting: MeetingID(uuid.New())}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.User.String())

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
