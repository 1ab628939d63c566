package audit

import (
	"context"
	"log/slog"

	"faceguard/pkg/requestcontext"
)

// Emitter publishes best-effort audit events. Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// ComplianceEmitter persists compliance events fail-closed. Satisfied by
// publishers/compliance.Publisher.
type ComplianceEmitter interface {
	Emit(ctx context.Context, event ComplianceEvent) error
}

// LogAudit writes event to the structured log and publishes it when an emitter
// is configured. Publish failures are logged and swallowed.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event, attrs ...any) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}

	if logger != nil {
		args := append(attrs,
			"event", event.Action,
			"log_type", "audit",
			"category", string(event.Category),
		)
		if !event.UserID.IsNil() {
			args = append(args, "user_id", event.UserID.String())
		}
		if event.ResourceID != "" {
			args = append(args, "resource_id", event.ResourceID)
		}
		if event.Decision != "" {
			args = append(args, "decision", event.Decision)
		}
		if event.ActorID != "" {
			args = append(args, "actor_id", event.ActorID)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		logger.InfoContext(ctx, event.Action, args...)
	}

	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish audit event",
			"event", event.Action,
			"error", err,
		)
	}
}
