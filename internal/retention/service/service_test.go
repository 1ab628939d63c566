package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"faceguard/internal/media"
	"faceguard/internal/retention/models"
	"faceguard/internal/retention/service/mocks"
	"faceguard/internal/retention/store"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/audit/publishers/compliance"
	auditmemory "faceguard/pkg/platform/audit/store/memory"
	"faceguard/pkg/requestcontext"
	"faceguard/pkg/testutil"
)

//go:generate mockgen -source=sources.go -destination=mocks/mocks.go -package=mocks Source

type RetentionSuite struct {
	suite.Suite
	holds   *store.InMemoryStore
	blobs   *media.InMemoryBlobs
	media   *media.Store
	archive *media.InMemoryBlobs
	audits  *auditmemory.InMemoryStore
	manager *Manager
	now     time.Time
}

func TestRetentionSuite(t *testing.T) {
	suite.Run(t, new(RetentionSuite))
}

func (s *RetentionSuite) SetupTest() {
	s.holds = store.NewInMemory()
	s.blobs = media.NewInMemoryBlobs()
	s.media = media.NewStore(s.blobs, media.NewInMemoryIndex())
	s.archive = media.NewInMemoryBlobs()
	s.audits = auditmemory.NewInMemoryStore()
	s.now = time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	s.manager = s.newManager()
}

func (s *RetentionSuite) newManager(opts ...Option) *Manager {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithArchive(s.archive),
		WithCompliancePublisher(compliance.New(s.audits)),
		WithSource(models.ClassRawMedia, MediaSource(s.media, media.ClassRaw)),
		WithSource(models.ClassMeetingMedia, MediaSource(s.media, media.ClassMeeting)),
		WithSource(models.ClassAuditEvent, AuditSource(s.audits)),
	}
	m, err := New(s.holds, append(base, opts...)...)
	s.Require().NoError(err)
	return m
}

func (s *RetentionSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *RetentionSuite) putRaw(userID id.UserID, age time.Duration) string {
	key := media.RawKey(userID, id.NewAttemptID(), "selfie.jpg")
	s.Require().NoError(s.media.Put(context.Background(), media.Object{
		Key:         key,
		Class:       media.ClassRaw,
		UserID:      userID,
		ContentType: "image/jpeg",
		Data:        []byte("jpeg:" + key),
		CreatedAt:   s.now.Add(-age),
	}))
	return key
}

func classReport(r *models.SweepReport, class models.Class) models.ClassReport {
	for _, c := range r.Classes {
		if c.Class == class {
			return c
		}
	}
	return models.ClassReport{Class: class}
}

func (s *RetentionSuite) TestSweepDeletesExpiredMedia() {
	userID := id.UserID(uuid.New())
	old := s.putRaw(userID, 31*24*time.Hour)
	fresh := s.putRaw(userID, 24*time.Hour)

	report, err := s.manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Equal([]string{fresh}, s.blobs.Keys())
	s.NotContains(s.blobs.Keys(), old)
	s.Empty(s.archive.Keys())
	raw := classReport(report, models.ClassRawMedia)
	s.Equal(1, raw.Deleted)
	s.Zero(raw.Archived)
	s.Equal(s.now, report.StartedAt)
}

func (s *RetentionSuite) TestSweepIsIdempotent() {
	userID := id.UserID(uuid.New())
	s.putRaw(userID, 40*24*time.Hour)

	_, err := s.manager.Sweep(s.ctx())
	s.Require().NoError(err)
	report, err := s.manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Zero(report.Totals().Deleted)
	s.Empty(s.blobs.Keys())
}

func (s *RetentionSuite) TestHeldUserIsArchivedBeforeDeletion() {
	userID := id.UserID(uuid.New())
	_, err := s.manager.SetLegalHold(s.ctx(), userID, "litigation 2026-114", "admin-1")
	s.Require().NoError(err)
	created := s.now.Add(-45 * 24 * time.Hour)
	key := s.putRaw(userID, 45*24*time.Hour)

	report, err := s.manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Empty(s.blobs.Keys())
	archiveKey := models.ArchiveKey(models.ClassRawMedia, models.Artifact{ID: key, UserID: userID, CreatedAt: created})
	s.Equal([]string{archiveKey}, s.archive.Keys())

	doc, err := s.archive.Get(context.Background(), archiveKey)
	s.Require().NoError(err)
	var exported struct {
		Key  string `json:"key"`
		Data []byte `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(doc, &exported))
	s.Equal(key, exported.Key)
	s.Equal([]byte("jpeg:"+key), exported.Data)

	raw := classReport(report, models.ClassRawMedia)
	s.Equal(1, raw.Archived)
	s.Equal(1, raw.Deleted)

	events, err := s.audits.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, string(audit.EventLegalHoldSet))
	s.Contains(actions, string(audit.EventArtifactArchived))
}

func (s *RetentionSuite) TestArchiveFailureKeepsArtifact() {
	userID := id.UserID(uuid.New())
	_, err := s.manager.SetLegalHold(s.ctx(), userID, "regulator request", "admin-1")
	s.Require().NoError(err)
	key := s.putRaw(userID, 60*24*time.Hour)
	manager := s.newManager(WithArchive(failingArchive{}))

	report, err := manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Equal([]string{key}, s.blobs.Keys())
	raw := classReport(report, models.ClassRawMedia)
	s.Equal(1, raw.Failed)
	s.Zero(raw.Deleted)
	s.Zero(raw.Archived)
}

func (s *RetentionSuite) TestHoldLookupErrorSkipsArtifact() {
	userID := id.UserID(uuid.New())
	key := s.putRaw(userID, 60*24*time.Hour)
	manager, err := New(brokenHolds{s.holds},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithArchive(s.archive),
		WithSource(models.ClassRawMedia, MediaSource(s.media, media.ClassRaw)),
	)
	s.Require().NoError(err)

	report, err := manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Equal([]string{key}, s.blobs.Keys())
	s.Equal(1, classReport(report, models.ClassRawMedia).Failed)
}

func (s *RetentionSuite) TestPolicyOverride() {
	userID := id.UserID(uuid.New())
	s.putRaw(userID, 2*time.Hour)
	manager := s.newManager(WithPolicy(models.Policy{models.ClassRawMedia: time.Hour}))

	s.Equal(time.Hour, manager.TTL(models.ClassRawMedia))
	s.Equal(models.DefaultPolicy()[models.ClassMeetingMedia], manager.TTL(models.ClassMeetingMedia))

	_, err := manager.Sweep(s.ctx())
	s.Require().NoError(err)
	s.Empty(s.blobs.Keys())
}

func (s *RetentionSuite) TestSweepDrainsInBatches() {
	userID := id.UserID(uuid.New())
	for i := range 5 {
		s.putRaw(userID, time.Duration(31+i)*24*time.Hour)
	}
	manager := s.newManager(WithBatchSize(2))

	report, err := manager.Sweep(s.ctx())
	s.Require().NoError(err)

	s.Empty(s.blobs.Keys())
	s.Equal(5, classReport(report, models.ClassRawMedia).Deleted)
}

func (s *RetentionSuite) TestFailingClassDoesNotStopOthers() {
	ctrl := gomock.NewController(s.T())
	broken := mocks.NewMockSource(ctrl)
	broken.EXPECT().Expired(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
	userID := id.UserID(uuid.New())
	s.putRaw(userID, 40*24*time.Hour)
	manager := s.newManager(WithSource(models.ClassEmbedding, broken))

	report, err := manager.Sweep(s.ctx())
	s.Require().Error(err)
	s.Contains(err.Error(), "embedding")

	s.Empty(s.blobs.Keys())
	s.Equal(1, classReport(report, models.ClassRawMedia).Deleted)
}

func (s *RetentionSuite) TestExpiredAuditEventsAreSwept() {
	userID := id.UserID(uuid.New())
	s.Require().NoError(s.audits.Append(context.Background(), audit.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    string(audit.EventAttemptRecorded),
		Timestamp: s.now.AddDate(-8, 0, 0),
	}))
	s.Require().NoError(s.audits.Append(context.Background(), audit.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    string(audit.EventVerificationGranted),
		Timestamp: s.now.AddDate(-1, 0, 0),
	}))

	report, err := s.manager.Sweep(s.ctx())
	s.Require().NoError(err)

	events, err := s.audits.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventVerificationGranted), events[0].Action)
	s.Equal(1, classReport(report, models.ClassAuditEvent).Deleted)
}

func (s *RetentionSuite) TestLegalHoldLifecycle() {
	userID := id.UserID(uuid.New())

	hold, err := s.manager.SetLegalHold(s.ctx(), userID, "  subpoena  ", "admin-7")
	s.Require().NoError(err)
	s.Equal("subpoena", hold.Reason)
	s.Equal(s.now, hold.SetAt)

	got, err := s.manager.LegalHold(s.ctx(), userID)
	s.Require().NoError(err)
	s.Equal("admin-7", got.SetBy)

	all, err := s.manager.LegalHolds(s.ctx())
	s.Require().NoError(err)
	s.Len(all, 1)

	s.Require().NoError(s.manager.ClearLegalHold(s.ctx(), userID, "case closed", "admin-7"))
	_, err = s.manager.LegalHold(s.ctx(), userID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.manager.ClearLegalHold(s.ctx(), userID, "again", "admin-7")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RetentionSuite) TestSetLegalHoldValidation() {
	userID := id.UserID(uuid.New())
	long := make([]byte, maxHoldReasonLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		name    string
		userID  id.UserID
		reason  string
		adminID string
		code    dErrors.Code
	}{
		{"nil user", id.UserID{}, "reason", "admin", dErrors.CodeInvalidInput},
		{"missing admin", userID, "reason", " ", dErrors.CodeUnauthorized},
		{"blank reason", userID, "  ", "admin", dErrors.CodeInvalidInput},
		{"reason too long", userID, string(long), "admin", dErrors.CodeInvalidInput},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.manager.SetLegalHold(s.ctx(), tc.userID, tc.reason, tc.adminID)
			s.True(dErrors.HasCode(err, tc.code), "got %v", err)
		})
	}
	_, err := s.holds.Find(context.Background(), userID)
	s.Error(err)
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, string, []byte) error {
	return errors.New("archive bucket unavailable")
}

type brokenHolds struct {
	*store.InMemoryStore
}

func (brokenHolds) Find(context.Context, id.UserID) (*models.LegalHold, error) {
	return nil, errors.New("holds table unavailable")
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}

func (failingAuditStore) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, nil
}

func TestLegalHoldFailsClosedWithoutAudit(t *testing.T) {
	holds := store.NewInMemory()
	manager, err := New(holds,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCompliancePublisher(compliance.New(failingAuditStore{})),
	)
	require.NoError(t, err)
	userID := id.UserID(uuid.New())

	testutil.Given(t, "an unavailable audit store", func(t *testing.T) {
		testutil.When(t, "an admin places a legal hold", func(t *testing.T) {
			_, err := manager.SetLegalHold(context.Background(), userID, "subpoena", "admin-1")

			testutil.Then(t, "the request fails and no hold is stored", func(t *testing.T) {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
				_, findErr := holds.Find(context.Background(), userID)
				assert.Error(t, findErr)
			})
		})
	})
}

func TestNewRequiresHoldStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
