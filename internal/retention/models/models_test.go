package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "faceguard/pkg/domain"
)

func TestArchiveKey(t *testing.T) {
	userID := id.UserID(uuid.MustParse("5b6c7d8e-1a2b-4c3d-9e8f-7a6b5c4d3e2f"))
	a := Artifact{
		ID:        "users/5b6c7d8e/raw/a1/selfie.jpg",
		UserID:    userID,
		CreatedAt: time.Date(2025, 1, 31, 23, 30, 0, 0, time.FixedZone("x", -3*3600)),
	}

	assert.Equal(t,
		"archive/2025/02/raw_media/5b6c7d8e-1a2b-4c3d-9e8f-7a6b5c4d3e2f/users_5b6c7d8e_raw_a1_selfie.jpg.json",
		ArchiveKey(ClassRawMedia, a),
		"month comes from UTC and the artifact id is flattened")
}

func TestDefaultPolicyCoversEveryClass(t *testing.T) {
	p := DefaultPolicy()
	for _, c := range Classes() {
		assert.Positive(t, p[c], c)
	}
	assert.Equal(t, 7*24*time.Hour, p[ClassMeetingMedia])
	assert.Equal(t, 2555*24*time.Hour, p[ClassAttempt])
}
