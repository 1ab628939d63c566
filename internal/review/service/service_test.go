package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/review/models"
	"faceguard/internal/review/service/mocks"
	"faceguard/internal/review/store"
	vmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/audit/publishers/compliance"
	auditmemory "faceguard/pkg/platform/audit/store/memory"
	"faceguard/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ResultRecorder
type ReviewServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	recorder *mocks.MockResultRecorder
	audits   *auditmemory.InMemoryStore
	service  *Service
	ctx      context.Context
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceSuite))
}

func (s *ReviewServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.recorder = mocks.NewMockResultRecorder(ctrl)
	s.store = store.NewInMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc, err := New(s.store, s.recorder,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCompliancePublisher(compliance.New(s.audits)),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ReviewServiceSuite) enqueue(userID id.UserID, minMatch float64, flags ...evaluator.FlagReason) *models.Entry {
	entry, err := s.service.Enqueue(s.ctx, vmodels.ReviewRequest{
		UserID:    userID,
		AttemptID: id.NewAttemptID(),
		Flags:     flags,
		Scores:    evaluator.Scores{Liveness: 0.95, PhotoMatches: []float64{minMatch}},
		Candidate: vmodels.Outcome{
			Result:         vmodels.ResultSuccess,
			LivenessScore:  0.95,
			Embedding:      []float64{0.6, 0.8},
			ClientPlatform: "mobile/iOS/Safari",
		},
	})
	s.Require().NoError(err)
	return entry
}

func (s *ReviewServiceSuite) TestEnqueuePriority() {
	weak := s.enqueue(id.UserID(uuid.New()), 0.76, evaluator.FlagGrayBand)
	strong := s.enqueue(id.UserID(uuid.New()), 0.89, evaluator.FlagGrayBand)
	s.Greater(weak.Priority, strong.Priority, "a weaker match is reviewed first")

	s.Run("repeat flags raise priority", func() {
		userID := id.UserID(uuid.New())
		first := s.enqueue(userID, 0.85, evaluator.FlagGrayBand)
		second := s.enqueue(userID, 0.85, evaluator.FlagGrayBand)
		s.Greater(second.Priority, first.Priority)
	})

	s.Run("queue is ordered by priority", func() {
		pending, err := s.service.ListPending(s.ctx, 0)
		s.Require().NoError(err)
		s.Require().NotEmpty(pending)
		for i := 1; i < len(pending); i++ {
			s.GreaterOrEqual(pending[i-1].Priority, pending[i].Priority)
		}
	})

	s.Run("the same attempt cannot be queued twice", func() {
		req := vmodels.ReviewRequest{UserID: id.UserID(uuid.New()), AttemptID: id.NewAttemptID(), Scores: evaluator.Scores{PhotoMatches: []float64{0.8}}}
		_, err := s.service.Enqueue(s.ctx, req)
		s.Require().NoError(err)
		_, err = s.service.Enqueue(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ReviewServiceSuite) TestApprove() {
	userID := id.UserID(uuid.New())
	entry := s.enqueue(userID, 0.82, evaluator.FlagGrayBand)

	s.recorder.EXPECT().RecordResult(gomock.Any(), userID, entry.AttemptID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.UserID, _ id.AttemptID, o vmodels.Outcome) (*vmodels.VerificationStatus, error) {
			s.Equal(vmodels.ResultSuccess, o.Result)
			s.True(o.HumanReviewed)
			s.Equal("reviewer-1", o.ReviewedBy)
			s.Require().NotNil(o.ReviewEntryID)
			s.Equal(entry.ID, *o.ReviewEntryID)
			s.Equal([]float64{0.6, 0.8}, o.Embedding)
			return &vmodels.VerificationStatus{UserID: userID, Status: vmodels.StatusVerified}, nil
		})

	decided, err := s.service.Approve(s.ctx, entry.ID, "reviewer-1", "looks right")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)
	s.Nil(decided.Candidate)

	stored, err := s.service.Get(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Nil(stored.Candidate, "the candidate embedding is dropped once decided")
	s.Equal("reviewer-1", stored.ReviewedBy)

	events, err := s.audits.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventReviewApproved), events[0].Action)
	s.Equal("reviewer-1", events[0].ActorID)

	s.Run("a decided entry cannot be decided again", func() {
		_, err := s.service.Reject(s.ctx, entry.ID, "reviewer-2", "")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ReviewServiceSuite) TestReject() {
	userID := id.UserID(uuid.New())
	entry := s.enqueue(userID, 0.78, evaluator.FlagGrayBand)

	s.recorder.EXPECT().RecordResult(gomock.Any(), userID, entry.AttemptID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.UserID, _ id.AttemptID, o vmodels.Outcome) (*vmodels.VerificationStatus, error) {
			s.Equal(vmodels.ResultPhotoMismatch, o.Result)
			s.Equal(reasonRejected, o.FailureReason)
			return &vmodels.VerificationStatus{UserID: userID, Status: vmodels.StatusFailed}, nil
		})

	decided, err := s.service.Reject(s.ctx, entry.ID, "reviewer-1", "different person")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, decided.Status)
}

func (s *ReviewServiceSuite) TestFailedDecisionReturnsEntryToQueue() {
	s.Run("recorder failure", func() {
		entry := s.enqueue(id.UserID(uuid.New()), 0.8, evaluator.FlagGrayBand)
		s.recorder.EXPECT().RecordResult(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInternal, "failed to persist verification status"))

		_, err := s.service.Approve(s.ctx, entry.ID, "reviewer-1", "")
		s.Require().Error(err)

		stored, err := s.service.Get(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, stored.Status)
		s.Empty(stored.ReviewedBy)
		s.NotNil(stored.Candidate)
	})

	s.Run("audit failure never reaches the recorder", func() {
		svc, err := New(s.store, s.recorder,
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithCompliancePublisher(compliance.New(failingAuditStore{})),
		)
		s.Require().NoError(err)
		entry := s.enqueue(id.UserID(uuid.New()), 0.8, evaluator.FlagGrayBand)

		_, err = svc.Approve(s.ctx, entry.ID, "reviewer-1", "")
		s.Require().Error(err)

		stored, err := s.service.Get(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, stored.Status)
	})

	s.Run("reviewer identity is required", func() {
		_, err := s.service.Approve(s.ctx, id.NewReviewEntryID(), " ", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown entry", func() {
		_, err := s.service.Approve(s.ctx, id.NewReviewEntryID(), "reviewer-1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

type failingAuditStore struct{}

func (failingAuditStore) Append(context.Context, audit.Event) error {
	return errors.New("audit store unavailable")
}

func (failingAuditStore) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, nil
}
