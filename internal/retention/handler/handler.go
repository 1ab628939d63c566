package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/httputil"
	"faceguard/pkg/requestcontext"
)

// Service defines the retention operations the admin API needs.
type Service interface {
	SetLegalHold(ctx context.Context, userID id.UserID, reason, adminID string) (*models.LegalHold, error)
	ClearLegalHold(ctx context.Context, userID id.UserID, reason, adminID string) error
	LegalHold(ctx context.Context, userID id.UserID) (*models.LegalHold, error)
	LegalHolds(ctx context.Context) ([]models.LegalHold, error)
	Sweep(ctx context.Context) (*models.SweepReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the retention endpoints. The caller applies the admin
// middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/legal-holds", h.HandleListHolds)
	r.Get("/admin/users/{userID}/legal-hold", h.HandleGetHold)
	r.Put("/admin/users/{userID}/legal-hold", h.HandleSetHold)
	r.Delete("/admin/users/{userID}/legal-hold", h.HandleClearHold)
	r.Post("/admin/retention/sweep", h.HandleSweep)
}

// HandleSetHold handles PUT /admin/users/{userID}/legal-hold.
func (h *Handler) HandleSetHold(w http.ResponseWriter, r *http.Request) {
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

	req, ok := httputil.DecodeAndPrepare[LegalHoldRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	hold, err := h.service.SetLegalHold(ctx, userID, req.Reason, adminID.String())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to set legal hold",
			"request_id", requestID,
			"user_id", userID.String(),
			"admin_id", adminID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHold(hold))
}

// HandleClearHold handles DELETE /admin/users/{userID}/legal-hold. An
// optional reason comes from the query string.
func (h *Handler) HandleClearHold(w http.ResponseWriter, r *http.Request) {
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
	reason := strings.TrimSpace(r.URL.Query().Get("reason"))
	if len(reason) > maxReasonLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "reason is too long"))
		return
	}

	if err := h.service.ClearLegalHold(ctx, userID, reason, adminID.String()); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear legal hold",
			"request_id", requestID,
			"user_id", userID.String(),
			"admin_id", adminID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetHold handles GET /admin/users/{userID}/legal-hold.
func (h *Handler) HandleGetHold(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	hold, err := h.service.LegalHold(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHold(hold))
}

// HandleListHolds handles GET /admin/legal-holds.
func (h *Handler) HandleListHolds(w http.ResponseWriter, r *http.Request) {
	holds, err := h.service.LegalHolds(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromHolds(holds))
}

// HandleSweep handles POST /admin/retention/sweep. Partial failures still
// return the report; the failed counts carry them.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	report, err := h.service.Sweep(ctx)
	if report == nil {
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "retention sweep finished with errors",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	h.logger.InfoContext(ctx, "manual retention sweep",
		"request_id", requestcontext.RequestID(ctx),
		"admin_id", requestcontext.UserID(ctx).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(report, err))
}
