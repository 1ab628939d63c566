package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"faceguard/internal/biometric/provider"
	"faceguard/internal/verification/models"
	"faceguard/internal/verification/service"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/httputil"
	"faceguard/pkg/requestcontext"
)

const defaultMaxUploadBytes = 32 << 20

// Service defines the verification operations the HTTP layer needs.
type Service interface {
	Submit(ctx context.Context, userID id.UserID, sub service.Submission) (*service.SubmissionResult, error)
	Status(ctx context.Context, userID id.UserID) (*models.VerificationStatus, error)
	Attempts(ctx context.Context, userID id.UserID) ([]*models.Attempt, error)
	ApplyAdminOverride(ctx context.Context, userID id.UserID, target models.Status, reason, adminID string) (*models.VerificationStatus, error)
	Limits() models.Limits
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

// New constructs a verification handler. A non-positive maxUploadBytes uses
// the default limit.
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

// Register mounts the user-facing verification endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/submissions", h.HandleSubmit)
	r.Get("/verification/status", h.HandleStatus)
}

// RegisterAdmin mounts the admin endpoints. The caller applies the admin
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/users/{userID}/verification", h.HandleAdminStatus)
	r.Get("/admin/users/{userID}/attempts", h.HandleAdminAttempts)
	r.Post("/admin/users/{userID}/override", h.HandleOverride)
}

// HandleSubmit handles POST /verification/submissions.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	sub, err := h.readSubmission(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid verification submission",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Submit(ctx, userID, *sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification submission failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification submission processed",
		"request_id", requestID,
		"user_id", userID.String(),
		"attempt_id", result.AttemptID.String(),
		"status", result.Status,
		"reason_code", result.ReasonCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromSubmissionResult(result))
}

// HandleStatus handles GET /verification/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	st, err := h.service.Status(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load verification status",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromStatus(st, requestcontext.Now(ctx), h.service.Limits()))
}

// HandleAdminStatus handles GET /admin/users/{userID}/verification.
func (h *Handler) HandleAdminStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	st, err := h.service.Status(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAdminStatus(st))
}

// HandleAdminAttempts handles GET /admin/users/{userID}/attempts.
func (h *Handler) HandleAdminAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	attempts, err := h.service.Attempts(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempts(userID, attempts))
}

// HandleOverride handles POST /admin/users/{userID}/override.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	adminID := requestcontext.UserID(ctx)
	if adminID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.service.ApplyAdminOverride(ctx, userID, req.Target(), req.Reason, adminID.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "admin override failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"admin_id", adminID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "admin override applied",
		"request_id", requestID,
		"user_id", userID.String(),
		"admin_id", adminID.String(),
		"status", st.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, FromAdminStatus(st))
}

func (h *Handler) readSubmission(w http.ResponseWriter, r *http.Request) (*service.Submission, error) {
	if err := httputil.ParseMultipart(w, r, h.maxUploadBytes); err != nil {
		return nil, err
	}
	selfies, err := httputil.FormFiles(r, "selfie")
	if err != nil {
		return nil, err
	}
	if len(selfies) != 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "exactly one selfie is required")
	}
	photos, err := httputil.FormFiles(r, "photos")
	if err != nil {
		return nil, err
	}

	sub := &service.Submission{
		Selfie:    toMedia(selfies[0]),
		Photos:    make([]provider.Media, 0, len(photos)),
		UserAgent: r.UserAgent(),
	}
	if sub.UserAgent == "" {
		sub.UserAgent = requestcontext.UserAgent(r.Context())
	}
	for _, p := range photos {
		sub.Photos = append(sub.Photos, toMedia(p))
	}
	return sub, nil
}

func toMedia(u httputil.Upload) provider.Media {
	kind := provider.MediaImage
	if strings.HasPrefix(u.ContentType, "video/") {
		kind = provider.MediaVideo
	}
	return provider.Media{
		Kind:        kind,
		ContentType: u.ContentType,
		Name:        u.Name,
		Data:        u.Data,
	}
}
