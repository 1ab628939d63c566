// Package relay consumes denial decisions from the decision topic and carries
// out the instructions this deployment owns: refunds go to the payment
// processor, the rest are handed to the session and moderation logs.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"faceguard/internal/meeting/models"
)

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 500 * time.Millisecond
)

// Consumer is the subset of *kgo.Client the relay needs.
type Consumer interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Refunder reverses the meeting payment. Implementations must be idempotent
// on the decision ID.
type Refunder interface {
	Refund(ctx context.Context, msg models.DecisionMessage) error
}

// ErrPermanent marks a failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

type Relay struct {
	consumer    Consumer
	refunder    Refunder
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithRetry sets how often a refund is tried before the relay gives up and
// stops without committing.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Relay) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
		if backoff > 0 {
			r.backoff = backoff
		}
	}
}

func New(consumer Consumer, refunder Refunder, opts ...Option) *Relay {
	r := &Relay{
		consumer:    consumer,
		refunder:    refunder,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx ends. Each record is committed only after it has been
// handled, so a crash redelivers it. A refund that keeps failing stops the
// relay with an error and leaves the record uncommitted.
func (r *Relay) Run(ctx context.Context) error {
	for {
		fetches := r.consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			r.logger.ErrorContext(ctx, "fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handleErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if handleErr != nil {
				return
			}
			if err := r.Handle(ctx, rec); err != nil {
				handleErr = err
				return
			}
			if err := r.consumer.CommitRecords(ctx, rec); err != nil {
				r.logger.WarnContext(ctx, "commit failed, record will be redelivered",
					"partition", rec.Partition,
					"offset", rec.Offset,
					"error", err,
				)
			}
		})
		if handleErr != nil {
			return handleErr
		}
	}
}

// Handle processes one record. Malformed records are logged and skipped.
func (r *Relay) Handle(ctx context.Context, rec *kgo.Record) error {
	var msg models.DecisionMessage
	if err := json.Unmarshal(rec.Value, &msg); err != nil || msg.DecisionID == "" {
		r.logger.ErrorContext(ctx, "skipping malformed decision record",
			"partition", rec.Partition,
			"offset", rec.Offset,
			"error", err,
		)
		return nil
	}
	log := r.logger.With(
		"decision_id", msg.DecisionID,
		"meeting_id", msg.MeetingID,
		"user_id", msg.UserID,
		"reason", msg.Reason,
	)

	if msg.Has(models.InstructionIssueRefund) {
		if msg.TransactionID == "" {
			log.WarnContext(ctx, "refund instructed but decision has no transaction")
		} else if err := r.refund(ctx, msg); err != nil {
			if errors.Is(err, ErrPermanent) {
				log.ErrorContext(ctx, "refund rejected, needs manual follow-up", "error", err)
			} else {
				return fmt.Errorf("refund decision %s: %w", msg.DecisionID, err)
			}
		} else {
			log.InfoContext(ctx, "refund issued", "transaction_id", msg.TransactionID)
		}
	}
	if msg.Has(models.InstructionTerminateSession) {
		log.InfoContext(ctx, "session termination instructed")
	}
	if msg.Has(models.InstructionIncrementOffenderFlag) {
		log.InfoContext(ctx, "offender flag increment instructed")
	}
	return nil
}

func (r *Relay) refund(ctx context.Context, msg models.DecisionMessage) error {
	var err error
	wait := r.backoff
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err = r.refunder.Refund(ctx, msg); err == nil || errors.Is(err, ErrPermanent) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}
		r.logger.WarnContext(ctx, "refund failed, retrying",
			"decision_id", msg.DecisionID,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
