package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"faceguard/pkg/platform/circuit"
	"faceguard/pkg/requestcontext"
)

const defaultGuardTimeout = 20 * time.Second

// Guard wraps an Analyzer with a per-call timeout, a circuit breaker, output
// contract validation, a trace span and metrics. It is the only Analyzer the
// services are given.
type Guard struct {
	next       Analyzer
	providerID string
	timeout    time.Duration
	dim        int
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	metrics    *Metrics
	logger     *slog.Logger
}

type GuardOption func(*Guard)

func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithEmbeddingDim enforces a fixed embedding dimension.
func WithEmbeddingDim(dim int) GuardOption {
	return func(g *Guard) {
		g.dim = dim
	}
}

func WithBreaker(b *circuit.Breaker) GuardOption {
	return func(g *Guard) {
		g.breaker = b
	}
}

func WithMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) GuardOption {
	return func(g *Guard) {
		g.tracer = tracer
	}
}

func NewGuard(next Analyzer, providerID string, opts ...GuardOption) *Guard {
	g := &Guard{
		next:       next,
		providerID: providerID,
		timeout:    defaultGuardTimeout,
		tracer:     otel.Tracer("faceguard/biometric/provider"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.breaker == nil {
		g.breaker = circuit.New(providerID)
	}
	return g
}

// Analyze calls the wrapped capability. Cancellation of ctx by the caller is
// returned as the context error and is not held against the provider.
func (g *Guard) Analyze(ctx context.Context, media Media) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := g.tracer.Start(ctx, "biometric.Analyze", trace.WithAttributes(
		attribute.String("provider.id", g.providerID),
		attribute.String("media.kind", string(media.Kind)),
		attribute.Int("media.bytes", len(media.Data)),
	))
	defer span.End()

	if !g.breaker.Allow() {
		err := NewProviderError(ErrorUnavailable, g.providerID, "circuit open", nil)
		g.metrics.ObserveCall(g.providerID, "circuit_open", 0)
		span.SetStatus(codes.Error, err.Message)
		return nil, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	analysis, err := g.next.Analyze(callCtx, media)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			// Caller went away; the attempt is left to expire.
			g.metrics.ObserveCall(g.providerID, "cancelled", elapsed)
			span.SetStatus(codes.Error, "cancelled")
			return nil, ctx.Err()
		}
		perr := g.normalize(callCtx, err)
		g.fail(ctx, perr, elapsed)
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(perr.Category))
		return nil, perr
	}

	if verr := Validate(analysis, g.dim); verr != nil {
		perr := NewProviderError(ErrorContractMismatch, g.providerID, "response violates output contract", verr)
		g.fail(ctx, perr, elapsed)
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(perr.Category))
		return nil, perr
	}

	if analysis.ProviderID == "" {
		analysis.ProviderID = g.providerID
	}
	if analysis.AnalyzedAt.IsZero() {
		analysis.AnalyzedAt = requestcontext.Now(ctx)
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.metrics.SetCircuitOpen(g.providerID, false)
		g.logger.InfoContext(ctx, "provider circuit closed",
			"provider", g.providerID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	g.metrics.ObserveCall(g.providerID, "ok", elapsed)
	span.SetAttributes(
		attribute.Float64("result.liveness", analysis.LivenessScore),
		attribute.Float64("result.confidence", analysis.Confidence),
	)
	return analysis, nil
}

func (g *Guard) normalize(callCtx context.Context, err error) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return NewProviderError(ErrorTimeout, g.providerID, "provider call timed out", err)
	}
	return NewProviderError(ErrorUnavailable, g.providerID, "provider call failed", err)
}

// fail records a provider-side failure. Bad captures are the user's problem and
// do not trip the breaker.
func (g *Guard) fail(ctx context.Context, perr *ProviderError, elapsed time.Duration) {
	g.metrics.ObserveCall(g.providerID, string(perr.Category), elapsed)
	if perr.Category == ErrorBadData {
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.metrics.SetCircuitOpen(g.providerID, true)
		g.logger.WarnContext(ctx, "provider circuit opened",
			"provider", g.providerID,
			"category", perr.Category,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	g.logger.WarnContext(ctx, "provider call failed",
		"provider", g.providerID,
		"category", perr.Category,
		"retryable", perr.Retryable,
		"error", perr,
		"request_id", requestcontext.RequestID(ctx),
	)
}
