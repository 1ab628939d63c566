// Package media stores raw biometric captures. Bytes go to a BlobStore (S3 in
// production), and an Index records class, owner and age for retention.
package media

import (
	"context"
	"fmt"
	"path"
	"time"

	id "faceguard/pkg/domain"
)

// Class is the retention class of a stored object.
type Class string

const (
	ClassRaw     Class = "raw_media"
	ClassMeeting Class = "meeting_media"
)

// Object is one capture to store.
type Object struct {
	Key         string
	Class       Class
	UserID      id.UserID
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Info is the index entry of a stored object.
type Info struct {
	Key       string
	Class     Class
	UserID    id.UserID
	SizeBytes int64
	CreatedAt time.Time
}

// BlobStore holds object bytes. Deleting a missing key is not an error.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Index tracks stored objects for lifecycle queries.
type Index interface {
	Record(ctx context.Context, info Info) error
	Expired(ctx context.Context, class Class, cutoff time.Time, limit int) ([]Info, error)
	Remove(ctx context.Context, key string) error
}

// RawKey is users/<userID>/raw/<attemptID>/<name>.
func RawKey(userID id.UserID, attemptID id.AttemptID, name string) string {
	return path.Join("users", userID.String(), "raw", attemptID.String(), path.Base(name))
}

// MeetingKey is meetings/<meetingID>/<userID>/<unix nanos>.
func MeetingKey(meetingID id.MeetingID, userID id.UserID, at time.Time) string {
	return path.Join("meetings", meetingID.String(), userID.String(), fmt.Sprintf("%d", at.UnixNano()))
}

// Store writes bytes first and indexes them second, so an index row always
// points at an object that was written.
type Store struct {
	blobs BlobStore
	index Index
}

func NewStore(blobs BlobStore, index Index) *Store {
	return &Store{blobs: blobs, index: index}
}

func (s *Store) Put(ctx context.Context, obj Object) error {
	if obj.Key == "" {
		return fmt.Errorf("media key is required")
	}
	if err := s.blobs.Put(ctx, obj.Key, obj.ContentType, obj.Data); err != nil {
		return fmt.Errorf("put media %s: %w", obj.Key, err)
	}
	return s.index.Record(ctx, Info{
		Key:       obj.Key,
		Class:     obj.Class,
		UserID:    obj.UserID,
		SizeBytes: int64(len(obj.Data)),
		CreatedAt: obj.CreatedAt,
	})
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.blobs.Get(ctx, key)
}

func (s *Store) Expired(ctx context.Context, class Class, cutoff time.Time, limit int) ([]Info, error) {
	return s.index.Expired(ctx, class, cutoff, limit)
}

// Delete removes the bytes, then the index row. Both steps tolerate a
// missing target so a retried sweep converges.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete media %s: %w", key, err)
	}
	return s.index.Remove(ctx, key)
}
