// Package compliance provides a fail-closed audit publisher for regulatory events.
//
// Emit writes synchronously and returns an error when persistence fails; the
// calling operation must then fail too. Used for admin overrides, review
// decisions, legal holds and meeting denials.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "faceguard/pkg/platform/audit"
	"faceguard/pkg/requestcontext"
)

var adminActions = map[audit.AuditEvent]bool{
	audit.EventAdminOverride:    true,
	audit.EventReviewApproved:   true,
	audit.EventReviewRejected:   true,
	audit.EventLegalHoldSet:     true,
	audit.EventLegalHoldCleared: true,
}

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher over a durable store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes event before returning. Timestamp and RequestID default to the
// request's clock and id so an admin action and its audit row line up.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	stored := event.ToEvent()
	stored.ID = uuid.New()

	start := time.Now()
	if err := p.store.Append(ctx, stored); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"request_id", event.RequestID,
				"action", event.Action,
				"user_id", event.UserID.String(),
				"actor_id", event.ActorID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}
	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}

// validate rejects events a reviewer could not attribute. Admin actions need
// the acting operator.
func validate(event audit.ComplianceEvent) error {
	if event.UserID.IsNil() {
		return errors.New("compliance event requires UserID")
	}
	if event.Action == "" {
		return errors.New("compliance event requires Action")
	}
	if adminActions[event.Action] && event.ActorID == "" {
		return fmt.Errorf("compliance event %s requires ActorID", event.Action)
	}
	return nil
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
