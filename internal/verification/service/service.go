// Package service implements the verification state machine and the
// registration flow built on it.
//
// Every status change goes through a version compare-and-set on the user's
// record. Conflicts are retried a bounded number of times against a fresh
// read, so two requests for the same user serialize while different users
// never contend.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/biometric/provider"
	"faceguard/internal/media"
	reviewmodels "faceguard/internal/review/models"
	"faceguard/internal/verification/models"
	"faceguard/internal/verification/store"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/audit"
)

const (
	maxCommitRetries   = 5
	abandonBatchSize   = 200
	defaultReviewDelay = 24 * time.Hour
)

// Store is the persistence port of the state machine.
type Store interface {
	FindStatus(ctx context.Context, userID id.UserID) (*models.VerificationStatus, error)
	Commit(ctx context.Context, c store.Commit) error
	FindAttempt(ctx context.Context, attemptID id.AttemptID) (*models.Attempt, error)
	ListAttempts(ctx context.Context, userID id.UserID) ([]*models.Attempt, error)
	FindAttemptByDigest(ctx context.Context, digest string) (*models.Attempt, error)
	CurrentEmbedding(ctx context.Context, userID id.UserID) (*models.FaceEmbedding, error)
	LatestEmbedding(ctx context.Context, userID id.UserID) (*models.FaceEmbedding, error)
	BanReferences(ctx context.Context) ([]*models.FaceEmbedding, error)
	ListStaleInFlight(ctx context.Context, before time.Time, limit int) ([]id.UserID, error)
}

// ReviewQueue receives ambiguous submissions.
type ReviewQueue interface {
	Enqueue(ctx context.Context, req models.ReviewRequest) (*reviewmodels.Entry, error)
}

// MediaStore keeps raw captures.
type MediaStore interface {
	Put(ctx context.Context, obj media.Object) error
}

// ReferenceCache drops a cached copy of a user's reference embedding.
type ReferenceCache interface {
	Invalidate(ctx context.Context, userID id.UserID) error
}

// TxRunner runs fn in one transaction when the stores share a database.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store      Store
	analyzer   provider.Analyzer
	reviews    ReviewQueue
	media      MediaStore
	references ReferenceCache
	tx         TxRunner
	auditor    audit.Emitter
	compliance audit.ComplianceEmitter
	logger     *slog.Logger
	metrics    *Metrics

	limits      models.Limits
	policy      evaluator.Policy
	maxPhotos   int
	reviewDelay time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAnalyzer(a provider.Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

func WithReviewQueue(q ReviewQueue) Option {
	return func(s *Service) {
		s.reviews = q
	}
}

func WithMediaStore(m MediaStore) Option {
	return func(s *Service) {
		s.media = m
	}
}

func WithReferenceCache(c ReferenceCache) Option {
	return func(s *Service) {
		s.references = c
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

func WithLimits(l models.Limits) Option {
	return func(s *Service) {
		s.limits = l
	}
}

func WithPolicy(p evaluator.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithMaxPhotos(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPhotos = n
		}
	}
}

// WithReviewDelay sets the completion estimate returned for queued submissions.
func WithReviewDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reviewDelay = d
		}
	}
}

func New(st Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("verification store is required")
	}
	svc := &Service{
		store:       st,
		limits:      models.DefaultLimits(),
		policy:      evaluator.DefaultPolicy(),
		maxPhotos:   6,
		reviewDelay: defaultReviewDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SetReviewQueue attaches the queue after construction. The queue itself
// records results through this service, so one of the two is wired late.
func (s *Service) SetReviewQueue(q ReviewQueue) {
	s.reviews = q
}

// Limits exposes the configured retry policy for transports.
func (s *Service) Limits() models.Limits {
	return s.limits
}

// invalidateReference runs after a commit that changed what the gate should
// match against. A failure leaves a stale entry the gate detects by id.
func (s *Service) invalidateReference(ctx context.Context, userID id.UserID) {
	if s.references == nil {
		return
	}
	if err := s.references.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached reference embedding",
			"user_id", userID.String(),
			"error", err,
		)
	}
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}
