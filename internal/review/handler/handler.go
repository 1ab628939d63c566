package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"faceguard/internal/review/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/httputil"
	"faceguard/pkg/requestcontext"
)

// Service defines the review queue operations exposed to admins.
type Service interface {
	ListPending(ctx context.Context, limit int) ([]*models.Entry, error)
	Get(ctx context.Context, entryID id.ReviewEntryID) (*models.Entry, error)
	Approve(ctx context.Context, entryID id.ReviewEntryID, reviewerID, notes string) (*models.Entry, error)
	Reject(ctx context.Context, entryID id.ReviewEntryID, reviewerID, notes string) (*models.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the review endpoints. The caller applies the admin
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/reviews", h.HandleList)
	r.Get("/admin/reviews/{entryID}", h.HandleGet)
	r.Post("/admin/reviews/{entryID}/approve", h.HandleApprove)
	r.Post("/admin/reviews/{entryID}/reject", h.HandleReject)
}

// HandleList handles GET /admin/reviews?limit=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.service.ListPending(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list review queue",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleGet handles GET /admin/reviews/{entryID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseReviewEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := h.service.Get(r.Context(), entryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

// HandleApprove handles POST /admin/reviews/{entryID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, models.StatusApproved)
}

// HandleReject handles POST /admin/reviews/{entryID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, models.StatusRejected)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request, decision models.Status) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewerID := requestcontext.UserID(ctx)
	if reviewerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	entryID, err := id.ParseReviewEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// notes are optional, so an empty body is accepted
	req := &DecisionRequest{}
	if r.ContentLength != 0 {
		var ok bool
		if req, ok = httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID); !ok {
			return
		}
	}

	decide := h.service.Approve
	if decision == models.StatusRejected {
		decide = h.service.Reject
	}
	entry, err := decide(ctx, entryID, reviewerID.String(), req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "review decision failed",
			"request_id", requestID,
			"entry_id", entryID.String(),
			"decision", string(decision),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "review decision recorded",
		"request_id", requestID,
		"entry_id", entryID.String(),
		"decision", string(decision),
		"reviewer_id", reviewerID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromEntry(entry))
}
