package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"faceguard/internal/media"
	meetingmodels "faceguard/internal/meeting/models"
	"faceguard/internal/retention/models"
	reviewmodels "faceguard/internal/review/models"
	verificationmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/audit"
)

// Source lists and removes one class's expired artifacts. Deleting an
// artifact that is already gone succeeds.
type Source interface {
	Expired(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error)
	Delete(ctx context.Context, a models.Artifact) error
	// Export renders the artifact as the JSON document kept in the archive.
	Export(ctx context.Context, a models.Artifact) ([]byte, error)
}

type MediaStore interface {
	Expired(ctx context.Context, class media.Class, cutoff time.Time, limit int) ([]media.Info, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type mediaSource struct {
	store MediaStore
	class media.Class
}

// MediaSource sweeps stored captures of one media class.
func MediaSource(store MediaStore, class media.Class) Source {
	return &mediaSource{store: store, class: class}
}

func (s *mediaSource) Expired(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
	infos, err := s.store.Expired(ctx, s.class, cutoff, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Artifact, len(infos))
	for i, info := range infos {
		out[i] = models.Artifact{ID: info.Key, UserID: info.UserID, CreatedAt: info.CreatedAt, Payload: info}
	}
	return out, nil
}

func (s *mediaSource) Delete(ctx context.Context, a models.Artifact) error {
	return s.store.Delete(ctx, a.ID)
}

type mediaExport struct {
	Key       string    `json:"key"`
	Class     string    `json:"class"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"data"`
}

func (s *mediaSource) Export(ctx context.Context, a models.Artifact) ([]byte, error) {
	data, err := s.store.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mediaExport{
		Key:       a.ID,
		Class:     string(s.class),
		UserID:    a.UserID.String(),
		CreatedAt: a.CreatedAt,
		Data:      data,
	})
}

// payloadSource covers the row-backed classes, whose payload is the row itself.
type payloadSource struct {
	expired func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error)
	remove  func(ctx context.Context, a models.Artifact) error
}

func (s *payloadSource) Expired(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
	return s.expired(ctx, cutoff, limit)
}

func (s *payloadSource) Delete(ctx context.Context, a models.Artifact) error {
	return s.remove(ctx, a)
}

func (s *payloadSource) Export(_ context.Context, a models.Artifact) ([]byte, error) {
	return json.Marshal(a.Payload)
}

type AttemptStore interface {
	ExpiredAttempts(ctx context.Context, cutoff time.Time, limit int) ([]*verificationmodels.Attempt, error)
	DeleteAttempt(ctx context.Context, attemptID id.AttemptID) error
}

func AttemptSource(store AttemptStore) Source {
	return &payloadSource{
		expired: func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
			attempts, err := store.ExpiredAttempts(ctx, cutoff, limit)
			if err != nil {
				return nil, err
			}
			out := make([]models.Artifact, len(attempts))
			for i, a := range attempts {
				out[i] = models.Artifact{ID: a.ID.String(), UserID: a.UserID, CreatedAt: a.AttemptedAt, Payload: a}
			}
			return out, nil
		},
		remove: func(ctx context.Context, a models.Artifact) error {
			return store.DeleteAttempt(ctx, a.Payload.(*verificationmodels.Attempt).ID)
		},
	}
}

type EmbeddingStore interface {
	ExpiredEmbeddings(ctx context.Context, cutoff time.Time, limit int) ([]*verificationmodels.FaceEmbedding, error)
	DeleteEmbedding(ctx context.Context, embeddingID id.EmbeddingID) error
}

// EmbeddingSource only ever sees non-current embeddings. Ban references are
// never offered.
func EmbeddingSource(store EmbeddingStore) Source {
	return &payloadSource{
		expired: func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
			embeddings, err := store.ExpiredEmbeddings(ctx, cutoff, limit)
			if err != nil {
				return nil, err
			}
			out := make([]models.Artifact, len(embeddings))
			for i, e := range embeddings {
				out[i] = models.Artifact{ID: e.ID.String(), UserID: e.UserID, CreatedAt: e.CreatedAt, Payload: e}
			}
			return out, nil
		},
		remove: func(ctx context.Context, a models.Artifact) error {
			return store.DeleteEmbedding(ctx, a.Payload.(*verificationmodels.FaceEmbedding).ID)
		},
	}
}

type ReviewStore interface {
	ExpiredTerminal(ctx context.Context, cutoff time.Time, limit int) ([]*reviewmodels.Entry, error)
	Delete(ctx context.Context, entryID id.ReviewEntryID) error
}

// ReviewSource sweeps decided entries only.
func ReviewSource(store ReviewStore) Source {
	return &payloadSource{
		expired: func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
			entries, err := store.ExpiredTerminal(ctx, cutoff, limit)
			if err != nil {
				return nil, err
			}
			out := make([]models.Artifact, len(entries))
			for i, e := range entries {
				out[i] = models.Artifact{ID: e.ID.String(), UserID: e.UserID, CreatedAt: e.CreatedAt, Payload: e}
			}
			return out, nil
		},
		remove: func(ctx context.Context, a models.Artifact) error {
			return store.Delete(ctx, a.Payload.(*reviewmodels.Entry).ID)
		},
	}
}

type MeetingStore interface {
	ExpiredRecords(ctx context.Context, cutoff time.Time, limit int) ([]*meetingmodels.Record, error)
	DeleteRecord(ctx context.Context, meetingID id.MeetingID, userID id.UserID) error
}

func MeetingSource(store MeetingStore) Source {
	return &payloadSource{
		expired: func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
			records, err := store.ExpiredRecords(ctx, cutoff, limit)
			if err != nil {
				return nil, err
			}
			out := make([]models.Artifact, len(records))
			for i, r := range records {
				out[i] = models.Artifact{
					ID:        r.MeetingID.String() + "_" + r.UserID.String(),
					UserID:    r.UserID,
					CreatedAt: r.StartedAt,
					Payload:   r,
				}
			}
			return out, nil
		},
		remove: func(ctx context.Context, a models.Artifact) error {
			r := a.Payload.(*meetingmodels.Record)
			return store.DeleteRecord(ctx, r.MeetingID, r.UserID)
		},
	}
}

type AuditStore interface {
	ExpiredEvents(ctx context.Context, cutoff time.Time, limit int) ([]audit.Event, error)
	DeleteEvent(ctx context.Context, eventID uuid.UUID) error
}

func AuditSource(store AuditStore) Source {
	return &payloadSource{
		expired: func(ctx context.Context, cutoff time.Time, limit int) ([]models.Artifact, error) {
			events, err := store.ExpiredEvents(ctx, cutoff, limit)
			if err != nil {
				return nil, err
			}
			out := make([]models.Artifact, len(events))
			for i, e := range events {
				out[i] = models.Artifact{ID: e.ID.String(), UserID: e.UserID, CreatedAt: e.Timestamp, Payload: e}
			}
			return out, nil
		},
		remove: func(ctx context.Context, a models.Artifact) error {
			return store.DeleteEvent(ctx, a.Payload.(audit.Event).ID)
		},
	}
}
