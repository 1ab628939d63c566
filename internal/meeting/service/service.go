// Package service implements the meeting re-verification gate.
//
// A check is write-once per (meeting, participant). It runs under a hard
// timeout and fails closed: every path other than a live, matching face ends
// in DENIED, and a denial commits together with the one decision record that
// carries all of its consequences.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"faceguard/internal/biometric/evaluator"
	"faceguard/internal/biometric/provider"
	"faceguard/internal/media"
	"faceguard/internal/meeting/cache"
	"faceguard/internal/meeting/models"
	verificationmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	"faceguard/pkg/platform/audit"
)

const (
	defaultTimeout             = 3 * time.Second
	defaultSimilarityThreshold = 0.70
	defaultStaleAfter          = time.Minute
	defaultDispatchBatch       = 100
	dispatchTimeout            = 2 * time.Second
	captureTimeout             = 2 * time.Second
)

type Store interface {
	Claim(ctx context.Context, rec *models.Record, staleBefore time.Time) (*models.Record, error)
	Finalize(ctx context.Context, rec *models.Record, decision *models.DenialDecision) error
	Find(ctx context.Context, meetingID id.MeetingID, userID id.UserID) (*models.Record, error)
	PendingDecisions(ctx context.Context, limit int) ([]*models.DenialDecision, error)
	MarkDispatched(ctx context.Context, decisionID id.DecisionID, at time.Time) error
}

// VerificationReader reads the registration outcome the gate builds on.
type VerificationReader interface {
	Status(ctx context.Context, userID id.UserID) (*verificationmodels.VerificationStatus, error)
	CurrentEmbedding(ctx context.Context, userID id.UserID) (*verificationmodels.FaceEmbedding, error)
}

// EmbeddingCache returns sentinel.ErrNotFound on a miss.
type EmbeddingCache interface {
	Get(ctx context.Context, userID id.UserID) (*cache.Reference, error)
	Set(ctx context.Context, userID id.UserID, ref *cache.Reference) error
}

// InstructionSink delivers a denial decision as one message.
type InstructionSink interface {
	Publish(ctx context.Context, msg models.DecisionMessage) error
}

type MediaStore interface {
	Put(ctx context.Context, obj media.Object) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Gate struct {
	store      Store
	verifier   VerificationReader
	analyzer   provider.Analyzer
	cache      EmbeddingCache
	sink       InstructionSink
	media      MediaStore
	tx         TxRunner
	auditor    audit.Emitter
	compliance audit.ComplianceEmitter
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer

	timeout             time.Duration
	similarityThreshold float64
	livenessThreshold   float64
	staleAfter          time.Duration
	dispatchBatch       int
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithVerificationReader(v VerificationReader) Option {
	return func(g *Gate) {
		g.verifier = v
	}
}

func WithAnalyzer(a provider.Analyzer) Option {
	return func(g *Gate) {
		g.analyzer = a
	}
}

func WithEmbeddingCache(c EmbeddingCache) Option {
	return func(g *Gate) {
		g.cache = c
	}
}

func WithInstructionSink(s InstructionSink) Option {
	return func(g *Gate) {
		g.sink = s
	}
}

func WithMediaStore(m MediaStore) Option {
	return func(g *Gate) {
		g.media = m
	}
}

func WithTxRunner(tx TxRunner) Option {
	return func(g *Gate) {
		g.tx = tx
	}
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(g *Gate) {
		g.auditor = p
	}
}

func WithCompliancePublisher(p audit.ComplianceEmitter) Option {
	return func(g *Gate) {
		g.compliance = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Gate) {
		g.tracer = t
	}
}

// WithTimeout bounds a whole check, lookups and provider call included.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithSimilarityThreshold(t float64) Option {
	return func(g *Gate) {
		if t > 0 {
			g.similarityThreshold = t
		}
	}
}

// WithPolicy takes the liveness threshold from the registration policy.
func WithPolicy(p evaluator.Policy) Option {
	return func(g *Gate) {
		g.livenessThreshold = p.LivenessThreshold
	}
}

// WithStaleAfter sets how long a CHECKING claim blocks a retry before it can
// be taken over.
func WithStaleAfter(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.staleAfter = d
		}
	}
}

func WithDispatchBatch(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.dispatchBatch = n
		}
	}
}

func New(st Store, opts ...Option) (*Gate, error) {
	if st == nil {
		return nil, errors.New("meeting store is required")
	}
	g := &Gate{
		store:               st,
		logger:              slog.Default(),
		tracer:              otel.Tracer("faceguard/meeting"),
		timeout:             defaultTimeout,
		similarityThreshold: defaultSimilarityThreshold,
		livenessThreshold:   evaluator.DefaultPolicy().LivenessThreshold,
		staleAfter:          defaultStaleAfter,
		dispatchBatch:       defaultDispatchBatch,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gate) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.tx == nil {
		return fn(ctx)
	}
	return g.tx.RunInTx(ctx, fn)
}
