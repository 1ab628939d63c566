package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/biometric/provider"
	"faceguard/internal/media"
	"faceguard/internal/meeting/cache"
	"faceguard/internal/meeting/models"
	verificationmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

// CheckRequest is one participant's check-in capture for one meeting.
type CheckRequest struct {
	MeetingID     id.MeetingID
	UserID        id.UserID
	TransactionID string
	Capture       provider.Media
}

// verdict is the outcome of the timed part of a check.
type verdict struct {
	admit      bool
	reason     models.DenialReason
	similarity float64
}

func deny(reason models.DenialReason) verdict {
	return verdict{reason: reason}
}

// Check admits or denies a participant. A participant already checked for
// the meeting gets the stored record back and nothing is emitted again.
func (g *Gate) Check(ctx context.Context, req CheckRequest) (*models.Record, error) {
	if g.verifier == nil || g.analyzer == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "meeting gate is not configured")
	}
	if err := validateCheck(req); err != nil {
		return nil, err
	}
	start := time.Now()
	now := requestcontext.Now(ctx)

	ctx, span := g.tracer.Start(ctx, "meeting.check", trace.WithAttributes(
		attribute.String("meeting.id", req.MeetingID.String()),
	))
	defer span.End()

	claimed, err := g.store.Claim(ctx, &models.Record{
		MeetingID:     req.MeetingID,
		UserID:        req.UserID,
		State:         models.StateChecking,
		TransactionID: req.TransactionID,
		StartedAt:     now,
	}, now.Add(-g.staleAfter))
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		span.SetAttributes(attribute.Bool("meeting.repeat", true), attribute.String("meeting.result", string(claimed.State)))
		g.logger.InfoContext(ctx, "meeting check repeated, returning stored outcome",
			"meeting_id", req.MeetingID.String(),
			"user_id", req.UserID.String(),
			"state", string(claimed.State),
			"request_id", requestcontext.RequestID(ctx),
		)
		return claimed, nil
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.New(dErrors.CodeConflict, "check-in already in progress")
	case err != nil:
		span.SetStatus(codes.Error, "claim failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start meeting check")
	}

	v := g.decide(ctx, req)
	span.SetAttributes(attribute.Bool("meeting.admitted", v.admit), attribute.String("meeting.reason", string(v.reason)))

	// The request may already be gone; the verdict is committed regardless.
	commitCtx := context.WithoutCancel(ctx)
	rec, err := g.finalize(commitCtx, claimed, v, now)
	if err != nil {
		span.SetStatus(codes.Error, "finalize failed")
		return nil, err
	}

	g.storeCapture(commitCtx, req, now)
	g.metrics.ObserveCheck(string(rec.State), string(rec.DenialReason), time.Since(start))
	return rec, nil
}

func validateCheck(req CheckRequest) error {
	if req.MeetingID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "meeting_id is required")
	}
	if req.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if len(req.Capture.Data) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "capture is required")
	}
	if len(req.TransactionID) > 255 {
		return dErrors.New(dErrors.CodeInvalidInput, "transaction_id is too long")
	}
	return nil
}

// decide runs the lookups and the provider call under the hard timeout. When
// the deadline passes first the verdict is TIMEOUT and the late result is
// dropped.
func (g *Gate) decide(ctx context.Context, req CheckRequest) verdict {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan verdict, 1)
	go func() {
		done <- g.evaluate(ctx, req)
	}()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		g.logger.WarnContext(ctx, "meeting check timed out",
			"meeting_id", req.MeetingID.String(),
			"user_id", req.UserID.String(),
			"timeout", g.timeout.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return deny(models.DenialTimeout)
	}
}

func (g *Gate) evaluate(ctx context.Context, req CheckRequest) verdict {
	st, err := g.verifier.Status(ctx, req.UserID)
	if err != nil {
		return g.lookupFailed(ctx, "status", err)
	}
	if !st.IsVerified() {
		return deny(models.DenialNotVerified)
	}

	ref, err := g.reference(ctx, st)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return deny(models.DenialNoReference)
		}
		return g.lookupFailed(ctx, "reference", err)
	}

	analysis, err := g.analyzer.Analyze(ctx, req.Capture)
	if err != nil {
		return g.providerFailed(ctx, req, err)
	}
	if analysis.LivenessScore < g.livenessThreshold {
		return deny(models.DenialLiveness)
	}

	sim, err := evaluator.CosineSimilarity(analysis.Embedding, ref.Vector)
	if err != nil {
		g.logger.ErrorContext(ctx, "meeting capture embedding does not match reference shape",
			"user_id", req.UserID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return deny(models.DenialProviderUnavailable)
	}
	if sim < g.similarityThreshold {
		return verdict{reason: models.DenialMismatch, similarity: sim}
	}
	return verdict{admit: true, similarity: sim}
}

func (g *Gate) lookupFailed(ctx context.Context, what string, err error) verdict {
	if ctx.Err() != nil {
		return deny(models.DenialTimeout)
	}
	g.logger.ErrorContext(ctx, "meeting check lookup failed, denying",
		"lookup", what,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return deny(models.DenialProviderUnavailable)
}

func (g *Gate) providerFailed(ctx context.Context, req CheckRequest, err error) verdict {
	category := provider.GetCategory(err)
	g.logger.WarnContext(ctx, "meeting capture analysis failed, denying",
		"meeting_id", req.MeetingID.String(),
		"user_id", req.UserID.String(),
		"category", string(category),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	switch {
	case category == provider.ErrorBadData:
		return deny(models.DenialLiveness)
	case category == provider.ErrorTimeout, errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return deny(models.DenialTimeout)
	default:
		return deny(models.DenialProviderUnavailable)
	}
}

// reference reads through the cache. Cache failures fall back to the store,
// and so does an entry for an embedding the status no longer points at.
func (g *Gate) reference(ctx context.Context, st *verificationmodels.VerificationStatus) (*cache.Reference, error) {
	userID := st.UserID
	if g.cache != nil {
		ref, err := g.cache.Get(ctx, userID)
		switch {
		case err == nil && st.ReferenceEmbeddingID != nil && ref.EmbeddingID != *st.ReferenceEmbeddingID:
			g.metrics.IncCache("stale")
			g.logger.InfoContext(ctx, "cached reference embedding superseded, reloading",
				"user_id", userID.String(),
				"cached_embedding_id", ref.EmbeddingID.String(),
			)
		case err == nil:
			g.metrics.IncCache("hit")
			return ref, nil
		case errors.Is(err, sentinel.ErrNotFound):
			g.metrics.IncCache("miss")
		default:
			g.metrics.IncCache("error")
			g.logger.WarnContext(ctx, "embedding cache read failed",
				"user_id", userID.String(),
				"error", err,
			)
		}
	}

	emb, err := g.verifier.CurrentEmbedding(ctx, userID)
	if err != nil {
		return nil, err
	}
	ref := &cache.Reference{EmbeddingID: emb.ID, Vector: emb.Vector}
	if g.cache != nil {
		if err := g.cache.Set(ctx, userID, ref); err != nil {
			g.logger.WarnContext(ctx, "embedding cache write failed",
				"user_id", userID.String(),
				"error", err,
			)
		}
	}
	return ref, nil
}

// finalize commits the verdict. A denial, its decision and the compliance
// audit entry commit together; the decision is then dispatched.
func (g *Gate) finalize(ctx context.Context, claimed *models.Record, v verdict, now time.Time) (*models.Record, error) {
	rec := claimed.Clone()
	if v.admit {
		rec.Admit(now, v.similarity)
		if err := g.store.Finalize(ctx, rec, nil); err != nil {
			return g.finalizeFailed(ctx, rec, err)
		}
		audit.LogAudit(ctx, g.logger, g.auditor, audit.Event{
			Action:     string(audit.EventMeetingAdmitted),
			UserID:     rec.UserID,
			ResourceID: rec.MeetingID.String(),
			Decision:   string(models.StateAdmitted),
			Timestamp:  now,
		})
		return rec, nil
	}

	rec.Deny(now, v.reason, v.similarity)
	decision := models.NewDenialDecision(rec, now)
	err := g.runInTx(ctx, func(ctx context.Context) error {
		if g.compliance != nil {
			if err := g.compliance.Emit(ctx, audit.ComplianceEvent{
				Timestamp:  now,
				UserID:     rec.UserID,
				ResourceID: rec.MeetingID.String(),
				Action:     audit.EventMeetingDenied,
				Decision:   string(models.StateDenied),
				Reason:     string(rec.DenialReason),
				RequestID:  requestcontext.RequestID(ctx),
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "denial aborted: audit could not be persisted")
			}
		}
		return g.store.Finalize(ctx, rec, decision)
	})
	if err != nil {
		return g.finalizeFailed(ctx, rec, err)
	}

	g.logger.InfoContext(ctx, "meeting participant denied",
		"meeting_id", rec.MeetingID.String(),
		"user_id", rec.UserID.String(),
		"reason", string(rec.DenialReason),
		"decision_id", decision.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	g.dispatch(ctx, decision)
	return rec, nil
}

// finalizeFailed resolves a lost finalize. When a takeover already finished
// the record, its outcome is the answer.
func (g *Gate) finalizeFailed(ctx context.Context, rec *models.Record, err error) (*models.Record, error) {
	if errors.Is(err, sentinel.ErrInvalidState) {
		if stored, findErr := g.store.Find(ctx, rec.MeetingID, rec.UserID); findErr == nil && stored.State.IsFinal() {
			return stored, nil
		}
		return nil, dErrors.New(dErrors.CodeConflict, "check-in was superseded")
	}
	var de *dErrors.Error
	if !errors.As(err, &de) {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to record meeting check")
	}
	g.logger.ErrorContext(ctx, "meeting check could not be recorded",
		"meeting_id", rec.MeetingID.String(),
		"user_id", rec.UserID.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil, err
}

func (g *Gate) storeCapture(ctx context.Context, req CheckRequest, now time.Time) {
	if g.media == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()
	err := g.media.Put(ctx, media.Object{
		Key:         media.MeetingKey(req.MeetingID, req.UserID, now),
		Class:       media.ClassMeeting,
		UserID:      req.UserID,
		ContentType: req.Capture.ContentType,
		Data:        req.Capture.Data,
		CreatedAt:   now,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "failed to store meeting capture",
			"meeting_id", req.MeetingID.String(),
			"user_id", req.UserID.String(),
			"error", err,
		)
	}
}
