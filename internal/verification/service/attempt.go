package service

import (
	"context"
	"errors"
	"time"

	"faceguard/internal/verification/models"
	"faceguard/internal/verification/store"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

const reasonAbandoned = "no result within the abandonment window"

var errRetry = errors.New("status changed concurrently")

// loadStatus returns the user's record, or a fresh UNVERIFIED record with
// expected version 0 when none exists.
func (s *Service) loadStatus(ctx context.Context, userID id.UserID) (*models.VerificationStatus, int64, error) {
	st, err := s.store.FindStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewStatus(userID, requestcontext.Now(ctx)), 0, nil
		}
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification status")
	}
	return st, st.Version, nil
}

// commit maps a lost CAS to errRetry so callers loop on a fresh read.
func (s *Service) commit(ctx context.Context, c store.Commit) error {
	if err := s.store.Commit(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncCASConflict()
			return errRetry
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification status")
	}
	return nil
}

// withRetry runs fn until it stops returning errRetry, up to maxCommitRetries.
func withRetry(fn func() error) error {
	for i := 0; i < maxCommitRetries; i++ {
		err := fn()
		if !errors.Is(err, errRetry) {
			return err
		}
	}
	return dErrors.New(dErrors.CodeConflict, "verification status changed concurrently, please retry")
}

// BeginAttempt opens a new attempt after checking bans, limits and the
// single in-flight rule. It never calls the provider.
func (s *Service) BeginAttempt(ctx context.Context, userID id.UserID) (*models.AttemptTicket, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}

	var ticket *models.AttemptTicket
	err := withRetry(func() error {
		st, expected, err := s.loadStatus(ctx, userID)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)

		if st.InFlightExpired(now, s.limits) {
			if err := s.abandon(ctx, st, expected); err != nil {
				return err
			}
			// reload so the abandoned failure is counted before the gates run
			return errRetry
		}

		attemptID := id.NewAttemptID()
		if err := st.Begin(now, attemptID, s.limits); err != nil {
			s.metrics.IncBeginRejected(string(dErrors.CodeOf(err)))
			audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
				Action:   string(audit.EventAttemptRejected),
				UserID:   userID,
				Decision: string(dErrors.CodeOf(err)),
				Reason:   dErrors.MessageOf(err),
			})
			return err
		}
		if err := s.commit(ctx, store.Commit{Status: st, ExpectedVersion: expected}); err != nil {
			return err
		}

		ticket = &models.AttemptTicket{
			UserID:    userID,
			AttemptID: attemptID,
			StartedAt: now,
			ExpiresAt: now.Add(s.limits.AbandonWindow),
		}
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventAttemptStarted),
			UserID:     userID,
			ResourceID: attemptID.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// RecordResult is the only place counters move and bans happen. The attempt
// row, the status CAS and a new embedding commit together. Recording the same
// attempt twice returns the current status without counting again.
func (s *Service) RecordResult(ctx context.Context, userID id.UserID, attemptID id.AttemptID, outcome models.Outcome) (*models.VerificationStatus, error) {
	if !outcome.Result.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown attempt result")
	}

	var result *models.VerificationStatus
	err := withRetry(func() error {
		existing, err := s.store.FindAttempt(ctx, attemptID)
		switch {
		case err == nil:
			if existing.UserID != userID {
				return dErrors.New(dErrors.CodeConflict, "attempt belongs to another user")
			}
			st, _, err := s.loadStatus(ctx, userID)
			if err != nil {
				return err
			}
			result = st
			return nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up attempt")
		}

		st, expected, err := s.loadStatus(ctx, userID)
		if err != nil {
			return err
		}
		if !st.OwnsAttempt(attemptID) {
			return dErrors.New(dErrors.CodeConflict, "attempt is not in flight")
		}

		prev := st.Status
		attempt, embedding := s.applyOutcome(ctx, st, attemptID, outcome)
		if err := s.commit(ctx, store.Commit{
			Status:          st,
			ExpectedVersion: expected,
			Attempt:         attempt,
			Embedding:       embedding,
		}); err != nil {
			return err
		}
		if embedding != nil && embedding.Kind == models.EmbeddingIdentity {
			s.invalidateReference(ctx, userID)
		}
		s.afterRecord(ctx, prev, st, attempt)
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyOutcome mutates st and builds the rows that commit with it.
func (s *Service) applyOutcome(ctx context.Context, st *models.VerificationStatus, attemptID id.AttemptID, o models.Outcome) (*models.Attempt, *models.FaceEmbedding) {
	now := requestcontext.Now(ctx)
	prev := st.Status
	number := st.ApplyResult(now, o.Result, o.FailureReason, s.limits)

	attempt := &models.Attempt{
		ID:               attemptID,
		UserID:           st.UserID,
		AttemptNumber:    number,
		AttemptedAt:      now,
		Result:           o.Result,
		LivenessScore:    o.LivenessScore,
		AgeEstimate:      o.AgeEstimate,
		PhotoMatchScores: o.PhotoMatchScores,
		FailureReason:    o.FailureReason,
		HumanReviewed:    o.HumanReviewed,
		ReviewedBy:       o.ReviewedBy,
		ReviewEntryID:    o.ReviewEntryID,
		ClientPlatform:   o.ClientPlatform,
		MediaDigest:      o.MediaDigest,
	}

	banned := st.Status == models.StatusBannedPermanent && prev != models.StatusBannedPermanent
	if len(o.Embedding) == 0 {
		if banned {
			return attempt, s.promoteBanReference(ctx, st.UserID, now)
		}
		return attempt, nil
	}
	embedding := &models.FaceEmbedding{
		ID:            id.NewEmbeddingID(),
		UserID:        st.UserID,
		AttemptID:     attemptID,
		Vector:        append([]float64(nil), o.Embedding...),
		Confidence:    o.Confidence,
		LivenessScore: o.LivenessScore,
		AgeEstimate:   o.AgeEstimate,
		CreatedAt:     now,
	}
	switch {
	case o.Result == models.ResultSuccess:
		embedding.Kind = models.EmbeddingIdentity
		embedding.Current = true
		ref := embedding.ID
		st.ReferenceEmbeddingID = &ref
	case banned:
		// kept so a returning banned face can be recognized
		embedding.Kind = models.EmbeddingBanReference
	default:
		embedding.Kind = models.EmbeddingAttempt
	}
	return attempt, embedding
}

// promoteBanReference copies the user's newest embedding into a ban reference
// when the banning attempt produced no selfie of its own.
func (s *Service) promoteBanReference(ctx context.Context, userID id.UserID, now time.Time) *models.FaceEmbedding {
	latest, err := s.store.LatestEmbedding(ctx, userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to load embedding for ban reference",
				"user_id", userID.String(),
				"error", err,
			)
		}
		return nil
	}
	return &models.FaceEmbedding{
		ID:            id.NewEmbeddingID(),
		UserID:        userID,
		AttemptID:     latest.AttemptID,
		Kind:          models.EmbeddingBanReference,
		Vector:        append([]float64(nil), latest.Vector...),
		Confidence:    latest.Confidence,
		LivenessScore: latest.LivenessScore,
		AgeEstimate:   latest.AgeEstimate,
		CreatedAt:     now,
	}
}

func (s *Service) afterRecord(ctx context.Context, prev models.Status, st *models.VerificationStatus, attempt *models.Attempt) {
	s.metrics.IncAttempt(string(attempt.Result))
	audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:     string(audit.EventAttemptRecorded),
		UserID:     st.UserID,
		ResourceID: attempt.ID.String(),
		Decision:   string(attempt.Result),
		Reason:     attempt.FailureReason,
		ActorID:    attempt.ReviewedBy,
	}, "attempt_number", attempt.AttemptNumber, "status", string(st.Status))

	if prev == st.Status {
		return
	}
	switch st.Status {
	case models.StatusVerified:
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventVerificationGranted),
			UserID:     st.UserID,
			ResourceID: attempt.ID.String(),
			ActorID:    attempt.ReviewedBy,
		})
	case models.StatusBannedTemporary:
		s.metrics.IncBan("temporary")
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventBanTemporary),
			UserID:     st.UserID,
			ResourceID: attempt.ID.String(),
			Reason:     string(attempt.Result),
		}, "banned_until", st.BannedUntil)
	case models.StatusBannedPermanent:
		s.metrics.IncBan("permanent")
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventBanPermanent),
			UserID:     st.UserID,
			ResourceID: attempt.ID.String(),
			Reason:     string(attempt.Result),
		})
	}
}

// abandon counts a stale in-flight attempt as an ABANDONED failure.
func (s *Service) abandon(ctx context.Context, st *models.VerificationStatus, expected int64) error {
	attemptID := *st.InFlightAttemptID
	prev := st.Status
	attempt, embedding := s.applyOutcome(ctx, st, attemptID, models.Outcome{
		Result:        models.ResultAbandoned,
		FailureReason: reasonAbandoned,
	})
	if err := s.commit(ctx, store.Commit{
		Status:          st,
		ExpectedVersion: expected,
		Attempt:         attempt,
		Embedding:       embedding,
	}); err != nil {
		return err
	}
	s.metrics.IncAbandoned()
	audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:     string(audit.EventAttemptAbandoned),
		UserID:     st.UserID,
		ResourceID: attemptID.String(),
	})
	s.afterRecord(ctx, prev, st, attempt)
	return nil
}

// ExpireAbandoned resolves every in-flight attempt older than the
// abandonment window. It returns how many were resolved.
func (s *Service) ExpireAbandoned(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	users, err := s.store.ListStaleInFlight(ctx, now.Add(-s.limits.AbandonWindow), abandonBatchSize)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stale attempts")
	}

	resolved := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		err := withRetry(func() error {
			st, expected, err := s.loadStatus(ctx, userID)
			if err != nil {
				return err
			}
			if !st.InFlightExpired(requestcontext.Now(ctx), s.limits) {
				return nil
			}
			if err := s.abandon(ctx, st, expected); err != nil {
				return err
			}
			resolved++
			return nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to expire abandoned attempt",
				"user_id", userID.String(),
				"error", err,
			)
		}
	}
	return resolved, nil
}

// ReleaseAttempt drops an in-flight attempt without counting it. Used when
// the provider, not the user, failed.
func (s *Service) ReleaseAttempt(ctx context.Context, userID id.UserID, attemptID id.AttemptID) error {
	return withRetry(func() error {
		st, expected, err := s.loadStatus(ctx, userID)
		if err != nil {
			return err
		}
		if err := st.Release(requestcontext.Now(ctx), attemptID); err != nil {
			return err
		}
		if err := s.commit(ctx, store.Commit{Status: st, ExpectedVersion: expected}); err != nil {
			return err
		}
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventAttemptReleased),
			UserID:     userID,
			ResourceID: attemptID.String(),
		})
		return nil
	})
}

// ParkForReview moves the in-flight attempt to the review marker. Status stays
// PENDING until a reviewer decides.
func (s *Service) ParkForReview(ctx context.Context, userID id.UserID, attemptID id.AttemptID) error {
	return withRetry(func() error {
		st, expected, err := s.loadStatus(ctx, userID)
		if err != nil {
			return err
		}
		if st.AwaitingReviewAttemptID != nil && *st.AwaitingReviewAttemptID == attemptID {
			return nil
		}
		if err := st.Park(requestcontext.Now(ctx), attemptID); err != nil {
			return err
		}
		return s.commit(ctx, store.Commit{Status: st, ExpectedVersion: expected})
	})
}
