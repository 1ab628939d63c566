package service

import (
	"context"
	"errors"
	"fmt"

	"faceguard/internal/meeting/models"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/requestcontext"
)

// dispatch publishes a freshly committed decision. A failure leaves it
// undispatched for DispatchPending.
func (g *Gate) dispatch(ctx context.Context, d *models.DenialDecision) {
	if g.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := g.publish(ctx, d); err != nil {
		g.logger.WarnContext(ctx, "denial decision dispatch failed, leaving for retry",
			"decision_id", d.ID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (g *Gate) publish(ctx context.Context, d *models.DenialDecision) error {
	if err := g.sink.Publish(ctx, d.Message()); err != nil {
		g.metrics.IncDispatch("failed")
		return fmt.Errorf("publish decision: %w", err)
	}
	g.metrics.IncDispatch("published")
	if err := g.store.MarkDispatched(ctx, d.ID, requestcontext.Now(ctx)); err != nil {
		// Published but unmarked: the next pass publishes it again.
		return fmt.Errorf("mark decision dispatched: %w", err)
	}
	audit.LogAudit(ctx, g.logger, g.auditor, audit.Event{
		Action:     string(audit.EventDecisionPublished),
		UserID:     d.UserID,
		ResourceID: d.ID.String(),
		Decision:   string(d.Reason),
		Timestamp:  requestcontext.Now(ctx),
	})
	return nil
}

// DispatchPending republishes committed decisions that were never marked
// dispatched, oldest first. It returns how many were delivered.
func (g *Gate) DispatchPending(ctx context.Context) (int, error) {
	if g.sink == nil {
		return 0, nil
	}
	pending, err := g.store.PendingDecisions(ctx, g.dispatchBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending decisions: %w", err)
	}

	var (
		delivered int
		errs      []error
	)
	for _, d := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := g.publish(ctx, d); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}
	if delivered > 0 || len(errs) > 0 {
		g.logger.InfoContext(ctx, "denial decision dispatch pass",
			"pending", len(pending),
			"delivered", delivered,
			"failed", len(errs),
		)
	}
	return delivered, errors.Join(errs...)
}
