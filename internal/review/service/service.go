// Package service runs the human review queue for ambiguous submissions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/review/models"
	vmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	reasonRejected   = "rejected by reviewer"
)

type Store interface {
	Create(ctx context.Context, e *models.Entry) error
	FindByID(ctx context.Context, entryID id.ReviewEntryID) (*models.Entry, error)
	ListPending(ctx context.Context, limit int) ([]*models.Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error)
	Claim(ctx context.Context, d models.Decision) (*models.Entry, error)
	Unclaim(ctx context.Context, entryID id.ReviewEntryID, claimed models.Status) error
	ClearCandidate(ctx context.Context, entryID id.ReviewEntryID) error
}

// ResultRecorder feeds reviewer verdicts into the verification state machine.
type ResultRecorder interface {
	RecordResult(ctx context.Context, userID id.UserID, attemptID id.AttemptID, outcome vmodels.Outcome) (*vmodels.VerificationStatus, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store      Store
	recorder   ResultRecorder
	tx         TxRunner
	auditor    audit.Emitter
	compliance audit.ComplianceEmitter
	logger     *slog.Logger
	metrics    *Metrics
	policy     evaluator.Policy
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func WithCompliancePublisher(p audit.ComplianceEmitter) Option {
	return func(s *Service) {
		s.compliance = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicy(p evaluator.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func New(store Store, recorder ResultRecorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("review store is required")
	}
	if recorder == nil {
		return nil, errors.New("result recorder is required")
	}
	svc := &Service{
		store:    store,
		recorder: recorder,
		policy:   evaluator.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Enqueue creates a pending entry. Priority rises with a weaker match, a
// stronger AI signal and earlier flagged submissions by the same user.
func (s *Service) Enqueue(ctx context.Context, req vmodels.ReviewRequest) (*models.Entry, error) {
	if req.UserID.IsNil() || req.AttemptID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user and attempt are required")
	}
	prior, err := s.store.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review history")
	}

	entry := &models.Entry{
		ID:          id.NewReviewEntryID(),
		UserID:      req.UserID,
		AttemptID:   req.AttemptID,
		Status:      models.StatusPending,
		FlagReasons: req.Flags,
		Scores:      req.Scores,
		Candidate:   models.CandidateFromOutcome(req.Candidate),
		CreatedAt:   requestcontext.Now(ctx),
		Priority: evaluator.Priority(s.policy, evaluator.PrioritySignals{
			MinMatch:     req.Scores.MinMatch(),
			AILikelihood: req.Scores.MaxAI(),
			PriorFlags:   len(prior),
			Flags:        req.Flags,
		}),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "attempt is already queued for review")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue review")
	}

	s.metrics.IncEnqueued()
	flags := make([]string, len(entry.FlagReasons))
	for i, f := range entry.FlagReasons {
		flags[i] = string(f)
	}
	audit.LogAudit(ctx, s.logger, s.auditor, audit.Event{
		Action:     string(audit.EventReviewQueued),
		UserID:     entry.UserID,
		ResourceID: entry.ID.String(),
		Reason:     strings.Join(flags, ","),
	}, "priority", entry.Priority)
	return entry, nil
}

// Approve records a human-reviewed SUCCESS for the entry's attempt.
func (s *Service) Approve(ctx context.Context, entryID id.ReviewEntryID, reviewerID, notes string) (*models.Entry, error) {
	return s.decide(ctx, entryID, models.StatusApproved, reviewerID, notes)
}

// Reject records a human-reviewed PHOTO_MISMATCH, which counts like any
// other failure.
func (s *Service) Reject(ctx context.Context, entryID id.ReviewEntryID, reviewerID, notes string) (*models.Entry, error) {
	return s.decide(ctx, entryID, models.StatusRejected, reviewerID, notes)
}

// decide claims the entry, writes the compliance event and records the
// result in one transaction. If recording fails the claim is reverted so the
// entry returns to the queue.
func (s *Service) decide(ctx context.Context, entryID id.ReviewEntryID, status models.Status, reviewerID, notes string) (*models.Entry, error) {
	if strings.TrimSpace(reviewerID) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity is required")
	}
	if s.compliance == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "compliance audit is not configured")
	}

	now := requestcontext.Now(ctx)
	var decided *models.Entry
	claimed := false
	err := s.runInTx(ctx, func(ctx context.Context) error {
		entry, err := s.store.Claim(ctx, models.Decision{
			EntryID:    entryID,
			Status:     status,
			ReviewerID: reviewerID,
			Notes:      notes,
			At:         now,
		})
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "review entry not found")
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.New(dErrors.CodeConflict, "review entry already decided")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim review entry")
		}
		claimed = true

		action, result, reason := audit.EventReviewApproved, vmodels.ResultSuccess, ""
		if status == models.StatusRejected {
			action, result, reason = audit.EventReviewRejected, vmodels.ResultPhotoMismatch, reasonRejected
		}

		if err := s.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:  now,
			UserID:     entry.UserID,
			ResourceID: entry.ID.String(),
			Action:     action,
			Decision:   string(status),
			Reason:     notes,
			RequestID:  requestcontext.RequestID(ctx),
			ActorID:    reviewerID,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "decision aborted: audit could not be persisted")
		}

		outcome := entry.Candidate.Outcome(result)
		outcome.FailureReason = reason
		outcome.HumanReviewed = true
		outcome.ReviewedBy = reviewerID
		eid := entry.ID
		outcome.ReviewEntryID = &eid
		if _, err := s.recorder.RecordResult(ctx, entry.UserID, entry.AttemptID, outcome); err != nil {
			return err
		}
		if err := s.store.ClearCandidate(ctx, entry.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear review candidate")
		}
		entry.Candidate = nil
		decided = entry
		return nil
	})
	if err != nil {
		if claimed {
			s.compensate(ctx, entryID, status, err)
		}
		return nil, err
	}

	s.metrics.IncDecision(string(status))
	s.logger.InfoContext(ctx, "review decided",
		"entry_id", entryID.String(),
		"decision", string(status),
		"reviewer_id", reviewerID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return decided, nil
}

// compensate reverts a claim left behind by a failed decision. A rolled back
// transaction leaves nothing to revert and the call is a no-op.
func (s *Service) compensate(ctx context.Context, entryID id.ReviewEntryID, claimed models.Status, cause error) {
	if err := s.store.Unclaim(context.WithoutCancel(ctx), entryID, claimed); err != nil {
		s.logger.ErrorContext(ctx, "failed to revert review claim",
			"entry_id", entryID.String(),
			"error", err,
		)
		return
	}
	s.metrics.IncCompensation()
	s.logger.WarnContext(ctx, "review claim reverted",
		"entry_id", entryID.String(),
		"cause", cause,
	)
}

func (s *Service) Get(ctx context.Context, entryID id.ReviewEntryID) (*models.Entry, error) {
	e, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "review entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review entry")
	}
	return e, nil
}

// ListPending returns the queue, highest priority first, oldest first within
// a priority.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*models.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	entries, err := s.store.ListPending(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list review queue")
	}
	s.metrics.SetPending(len(entries))
	return entries, nil
}

func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	entries, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list review entries")
	}
	return entries, nil
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}
