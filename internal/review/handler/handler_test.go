package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/review/handler/mocks"
	"faceguard/internal/review/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type ReviewHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	adminID string
}

func TestReviewHandlerSuite(t *testing.T) {
	suite.Run(t, new(ReviewHandlerSuite))
}

func (s *ReviewHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.adminID = uuid.New().String()
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func entry(status models.Status) *models.Entry {
	return &models.Entry{
		ID:          id.NewReviewEntryID(),
		UserID:      id.UserID(uuid.New()),
		AttemptID:   id.NewAttemptID(),
		Status:      status,
		FlagReasons: []evaluator.FlagReason{evaluator.FlagGrayBand},
		Priority:    42,
		Scores:      evaluator.Scores{Liveness: 0.93, PhotoMatches: []float64{0.81}},
		Candidate:   &models.Candidate{Embedding: []float64{0.1, 0.2}},
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *ReviewHandlerSuite) TestList() {
	s.Run("returns pending entries without embeddings", func() {
		s.service.EXPECT().ListPending(gomock.Any(), 25).Return([]*models.Entry{entry(models.StatusPending)}, nil)

		req := testutil.WithAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/reviews?limit=25"), s.adminID)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		body := testutil.ReadBody(s.T(), rr)
		s.NotContains(string(body), "embedding")
		s.Contains(string(body), "GRAY_BAND_MATCH")
	})

	s.Run("rejects a bad limit", func() {
		req := testutil.WithAdmin(testutil.NewRequest(s.T(), http.MethodGet, "/admin/reviews?limit=abc"), s.adminID)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *ReviewHandlerSuite) TestGet() {
	s.Run("unknown entry is 404", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "review entry not found"))

		path := "/admin/reviews/" + uuid.New().String()
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewRequest(s.T(), http.MethodGet, path), s.adminID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *ReviewHandlerSuite) TestDecisions() {
	s.Run("approve passes the reviewer and notes", func() {
		e := entry(models.StatusApproved)
		e.ReviewedBy = s.adminID
		s.service.EXPECT().Approve(gomock.Any(), e.ID, s.adminID, "same person").Return(e, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/reviews/"+e.ID.String()+"/approve",
			map[string]string{"notes": "same person"})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.adminID))

		testutil.AssertStatusOK(s.T(), rr)
		body := testutil.UnmarshalResponse[EntryResponse](s.T(), rr)
		s.Equal("APPROVED", body.Status)
		s.Equal(s.adminID, body.ReviewedBy)
	})

	s.Run("reject accepts an empty body", func() {
		e := entry(models.StatusRejected)
		s.service.EXPECT().Reject(gomock.Any(), e.ID, s.adminID, "").Return(e, nil)

		req := testutil.NewRequest(s.T(), http.MethodPost, "/admin/reviews/"+e.ID.String()+"/reject")
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.adminID))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("a decided entry is a conflict", func() {
		e := entry(models.StatusApproved)
		s.service.EXPECT().Reject(gomock.Any(), e.ID, s.adminID, "").
			Return(nil, dErrors.New(dErrors.CodeConflict, "review entry already decided"))

		req := testutil.NewRequest(s.T(), http.MethodPost, "/admin/reviews/"+e.ID.String()+"/reject")
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, s.adminID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("decisions require an identity", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/admin/reviews/"+uuid.New().String()+"/approve")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func TestDecisionRequestValidate(t *testing.T) {
	req := &DecisionRequest{Notes: "  ok  "}
	require.NoError(t, req.Validate())
	require.Equal(t, "ok", req.Notes)
}
