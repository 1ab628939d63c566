package service

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/biometric/provider"
	"faceguard/internal/media"
	"faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

const reasonReplayed = "capture bytes match an earlier attempt"

// Submission is one registration attempt: a live selfie and the profile photos
// it must match.
type Submission struct {
	Selfie    provider.Media
	Photos    []provider.Media
	UserAgent string
}

// SubmissionResult is what the client sees. It carries reason codes only,
// never scores or thresholds.
type SubmissionResult struct {
	AttemptID              id.AttemptID
	Status                 models.Status
	ReasonCode             string
	RetryEligible          bool
	RetryAfter             *time.Time
	AttemptsRemainingToday int
	EstimatedCompletionAt  *time.Time
}

var resultReasonCodes = map[models.Result]dErrors.Code{
	models.ResultLivenessFail:  dErrors.CodeLivenessFailed,
	models.ResultAgeFail:       dErrors.CodeUnderage,
	models.ResultPhotoMismatch: dErrors.CodePhotoMismatch,
	models.ResultBanned:        dErrors.CodeAccountBanned,
}

// Submit runs one registration attempt end to end: begin, analyze the selfie
// and photos in parallel, evaluate, then record the result or park it for
// review. Provider failures release the attempt without counting it.
func (s *Service) Submit(ctx context.Context, userID id.UserID, sub Submission) (*SubmissionResult, error) {
	if s.analyzer == nil || s.reviews == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "verification flow is not configured")
	}
	if err := s.validateSubmission(sub); err != nil {
		return nil, err
	}

	ticket, err := s.BeginAttempt(ctx, userID)
	if err != nil {
		s.metrics.IncSubmission("rejected")
		return nil, err
	}
	attemptID := ticket.AttemptID
	digest := mediaDigest(sub.Selfie.Data)
	platform := clientPlatform(sub.UserAgent)

	s.storeRawMedia(ctx, userID, attemptID, sub)

	if replayed, err := s.isReplay(ctx, digest); err != nil {
		s.release(ctx, userID, attemptID)
		return nil, err
	} else if replayed {
		audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
			Action:     string(audit.EventMediaReplayDetected),
			UserID:     userID,
			ResourceID: attemptID.String(),
		}, "media_digest", digest)
		return s.finish(ctx, userID, attemptID, models.Outcome{
			Result:         models.ResultLivenessFail,
			FailureReason:  reasonReplayed,
			ClientPlatform: platform,
			MediaDigest:    digest,
		})
	}

	selfie, photos, err := s.analyze(ctx, sub)
	if err != nil {
		if ctx.Err() != nil {
			// client gone: leave the attempt to the abandonment rule
			return nil, ctx.Err()
		}
		s.release(ctx, userID, attemptID)
		s.metrics.IncSubmission("provider_error")
		if provider.GetCategory(err) == provider.ErrorBadData {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "media could not be analyzed, please recapture")
		}
		return nil, provider.ToDomainError(err)
	}

	refs, err := s.banReferences(ctx, userID)
	if err != nil {
		s.release(ctx, userID, attemptID)
		return nil, err
	}

	eval, err := evaluator.Evaluate(s.policy, buildInput(selfie, photos, refs))
	if err != nil {
		s.release(ctx, userID, attemptID)
		s.logger.ErrorContext(ctx, "provider output could not be evaluated",
			"user_id", userID.String(),
			"attempt_id", attemptID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeProviderUnavailable, "verification provider unavailable, please retry")
	}

	outcome := models.Outcome{
		LivenessScore:    selfie.LivenessScore,
		AgeEstimate:      selfie.AgeEstimate,
		Confidence:       selfie.Confidence,
		PhotoMatchScores: eval.Scores.PhotoMatches,
		Embedding:        selfie.Embedding,
		ClientPlatform:   platform,
		MediaDigest:      digest,
	}

	switch eval.Outcome {
	case evaluator.OutcomePass:
		outcome.Result = models.ResultSuccess
		return s.finish(ctx, userID, attemptID, outcome)
	case evaluator.OutcomeFail:
		outcome.Result = models.Result(eval.Reason)
		outcome.FailureReason = s.failureReason(eval)
		if eval.Reason == evaluator.FailBanned {
			audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
				Action:     string(audit.EventBanEvasionDetected),
				UserID:     userID,
				ResourceID: attemptID.String(),
			})
		}
		return s.finish(ctx, userID, attemptID, outcome)
	default:
		outcome.Result = models.ResultSuccess
		return s.queueForReview(ctx, userID, attemptID, eval, outcome)
	}
}

func (s *Service) validateSubmission(sub Submission) error {
	if len(sub.Selfie.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "selfie is required")
	}
	if len(sub.Photos) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one profile photo is required")
	}
	if len(sub.Photos) > s.maxPhotos {
		return dErrors.New(dErrors.CodeValidation, "too many profile photos")
	}
	for _, p := range sub.Photos {
		if len(p.Data) == 0 {
			return dErrors.New(dErrors.CodeValidation, "profile photo is empty")
		}
	}
	return nil
}

// finish records a deterministic result and shapes the client response.
func (s *Service) finish(ctx context.Context, userID id.UserID, attemptID id.AttemptID, outcome models.Outcome) (*SubmissionResult, error) {
	st, err := s.RecordResult(ctx, userID, attemptID, outcome)
	if err != nil {
		return nil, err
	}
	s.metrics.IncSubmission(string(outcome.Result))

	reason := "verified"
	if outcome.Result != models.ResultSuccess {
		reason = string(resultReasonCodes[outcome.Result])
	}
	return s.result(ctx, st, attemptID, reason), nil
}

// queueForReview parks the attempt and enqueues it in one transaction. On
// failure the attempt is released so the user is not left waiting on an
// entry that does not exist.
func (s *Service) queueForReview(ctx context.Context, userID id.UserID, attemptID id.AttemptID, eval evaluator.Evaluation, candidate models.Outcome) (*SubmissionResult, error) {
	err := s.runInTx(ctx, func(ctx context.Context) error {
		if err := s.ParkForReview(ctx, userID, attemptID); err != nil {
			return err
		}
		_, err := s.reviews.Enqueue(ctx, models.ReviewRequest{
			UserID:    userID,
			AttemptID: attemptID,
			Flags:     eval.Flags,
			Scores:    eval.Scores,
			Candidate: candidate,
		})
		return err
	})
	if err != nil {
		s.release(ctx, userID, attemptID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue submission for review")
	}
	s.metrics.IncSubmission("review")

	st, err := s.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := s.result(ctx, st, attemptID, string(dErrors.CodePendingReview))
	eta := requestcontext.Now(ctx).Add(s.reviewDelay)
	res.EstimatedCompletionAt = &eta
	return res, nil
}

func (s *Service) result(ctx context.Context, st *models.VerificationStatus, attemptID id.AttemptID, reason string) *SubmissionResult {
	now := requestcontext.Now(ctx)
	pending := st.AwaitingReviewAttemptID != nil
	eligible := !pending &&
		st.Status != models.StatusVerified &&
		st.Status != models.StatusBannedPermanent
	res := &SubmissionResult{
		AttemptID:              attemptID,
		Status:                 st.Status,
		ReasonCode:             reason,
		RetryEligible:          eligible,
		AttemptsRemainingToday: st.AttemptsRemainingToday(now, s.limits),
	}
	if eligible {
		res.RetryAfter = st.RetryAfter(now, s.limits)
	}
	return res
}

// analyze calls the provider for the selfie and every photo concurrently.
// The first failure cancels the rest.
func (s *Service) analyze(ctx context.Context, sub Submission) (*provider.Analysis, []*provider.Analysis, error) {
	g, gctx := errgroup.WithContext(ctx)

	var selfie *provider.Analysis
	photos := make([]*provider.Analysis, len(sub.Photos))

	g.Go(func() error {
		a, err := s.analyzer.Analyze(gctx, sub.Selfie)
		if err != nil {
			return err
		}
		selfie = a
		return nil
	})
	for i, photo := range sub.Photos {
		g.Go(func() error {
			a, err := s.analyzer.Analyze(gctx, photo)
			if err != nil {
				return err
			}
			photos[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return selfie, photos, nil
}

func buildInput(selfie *provider.Analysis, photos []*provider.Analysis, refs [][]float64) evaluator.Input {
	in := evaluator.Input{
		LivenessScore:    selfie.LivenessScore,
		AgeEstimate:      selfie.AgeEstimate,
		Confidence:       selfie.Confidence,
		Selfie:           selfie.Embedding,
		SelfieSynthetic:  selfie.SyntheticScore,
		Photos:           make([]evaluator.Photo, 0, len(photos)),
		BannedReferences: refs,
	}
	for _, p := range photos {
		in.Photos = append(in.Photos, evaluator.Photo{
			Embedding:      p.Embedding,
			AgeEstimate:    p.AgeEstimate,
			Confidence:     p.Confidence,
			SyntheticScore: p.SyntheticScore,
		})
	}
	return in
}

// banReferences returns the faces of permanently banned accounts other than
// the submitting user, whose own reference survives an admin reset.
func (s *Service) banReferences(ctx context.Context, userID id.UserID) ([][]float64, error) {
	refs, err := s.store.BanReferences(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ban references")
	}
	out := make([][]float64, 0, len(refs))
	for _, r := range refs {
		if r.UserID != userID {
			out = append(out, r.Vector)
		}
	}
	return out, nil
}

func (s *Service) isReplay(ctx context.Context, digest string) (bool, error) {
	_, err := s.store.FindAttemptByDigest(ctx, digest)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check media digest")
	}
}

func (s *Service) release(ctx context.Context, userID id.UserID, attemptID id.AttemptID) {
	// detached so a cancelled request still frees the slot
	rctx := context.WithoutCancel(ctx)
	if err := s.ReleaseAttempt(rctx, userID, attemptID); err != nil {
		s.logger.WarnContext(ctx, "failed to release attempt",
			"user_id", userID.String(),
			"attempt_id", attemptID.String(),
			"error", err,
		)
	}
}

func (s *Service) storeRawMedia(ctx context.Context, userID id.UserID, attemptID id.AttemptID, sub Submission) {
	if s.media == nil {
		return
	}
	now := requestcontext.Now(ctx)
	items := append([]provider.Media{sub.Selfie}, sub.Photos...)
	for i, m := range items {
		name := m.Name
		if name == "" {
			name = "capture"
		}
		if i == 0 {
			name = "selfie-" + name
		} else {
			name = "photo-" + strconv.Itoa(i) + "-" + name
		}
		err := s.media.Put(ctx, media.Object{
			Key:         media.RawKey(userID, attemptID, name),
			Class:       media.ClassRaw,
			UserID:      userID,
			ContentType: m.ContentType,
			Data:        m.Data,
			CreatedAt:   now,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to store raw capture",
				"user_id", userID.String(),
				"attempt_id", attemptID.String(),
				"error", err,
			)
		}
	}
}

func (s *Service) failureReason(eval evaluator.Evaluation) string {
	switch eval.Reason {
	case evaluator.FailLiveness:
		return "liveness below threshold"
	case evaluator.FailAge:
		return "estimated age below minimum"
	case evaluator.FailPhotoMismatch:
		if eval.Scores.MinMatch() >= s.policy.MatchLow {
			return "suspected AI-generated photos"
		}
		return "profile photo does not match selfie"
	case evaluator.FailBanned:
		return "matches a permanently banned account"
	}
	return string(eval.Reason)
}

// mediaDigest is the hex BLAKE2b-256 of the capture bytes.
func mediaDigest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// clientPlatform condenses a User-Agent to kind/os/browser.
func clientPlatform(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	kind := "desktop"
	switch {
	case ua.Bot():
		kind = "bot"
	case ua.Mobile():
		kind = "mobile"
	}
	parts := []string{kind}
	if osName := ua.OS(); osName != "" {
		parts = append(parts, osName)
	}
	if browser, _ := ua.Browser(); browser != "" {
		parts = append(parts, browser)
	}
	return strings.Join(parts, "/")
}
