package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"faceguard/internal/biometric/provider"
	"faceguard/internal/meeting/models"
	"faceguard/internal/meeting/service"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/httputil"
	"faceguard/pkg/requestcontext"
)

const defaultMaxUploadBytes = 8 << 20

// Service defines the meeting gate operations the HTTP layer needs.
type Service interface {
	Check(ctx context.Context, req service.CheckRequest) (*models.Record, error)
}

type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/meetings/{meetingID}/check-in", h.HandleCheckIn)
}

// HandleCheckIn handles POST /meetings/{meetingID}/check-in. A denial is a
// successful response; only a check that could not run is an error.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	meetingID, err := id.ParseMeetingID(chi.URLParam(r, "meetingID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.readCheckIn(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid meeting check-in",
			"request_id", requestID,
			"meeting_id", meetingID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	req.MeetingID = meetingID
	req.UserID = userID

	rec, err := h.service.Check(ctx, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "meeting check-in failed",
			"request_id", requestID,
			"meeting_id", meetingID.String(),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "meeting check-in processed",
		"request_id", requestID,
		"meeting_id", meetingID.String(),
		"user_id", userID.String(),
		"result", rec.State,
		"reason_code", rec.DenialReason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) readCheckIn(w http.ResponseWriter, r *http.Request) (*service.CheckRequest, error) {
	if err := httputil.ParseMultipart(w, r, h.maxUploadBytes); err != nil {
		return nil, err
	}
	captures, err := httputil.FormFiles(r, "capture")
	if err != nil {
		return nil, err
	}
	if len(captures) != 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "exactly one capture is required")
	}
	c := captures[0]
	kind := provider.MediaImage
	if strings.HasPrefix(c.ContentType, "video/") {
		kind = provider.MediaVideo
	}
	return &service.CheckRequest{
		TransactionID: strings.TrimSpace(r.FormValue("transaction_id")),
		Capture: provider.Media{
			Kind:        kind,
			ContentType: c.ContentType,
			Name:        c.Name,
			Data:        c.Data,
		},
	}, nil
}
