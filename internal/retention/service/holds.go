package service

import (
	"context"
	"errors"
	"strings"

	"faceguard/internal/retention/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/platform/sentinel"
	"faceguard/pkg/requestcontext"
)

const maxHoldReasonLength = 500

// SetLegalHold places or refreshes a hold. The hold is not stored unless its
// compliance event is.
func (m *Manager) SetLegalHold(ctx context.Context, userID id.UserID, reason, adminID string) (*models.LegalHold, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin identity is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "legal hold reason is required")
	}
	if len(reason) > maxHoldReasonLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "legal hold reason is too long")
	}
	if m.compliance == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "compliance audit is not configured")
	}

	hold := models.LegalHold{
		UserID: userID,
		Reason: reason,
		SetBy:  adminID,
		SetAt:  requestcontext.Now(ctx),
	}
	err := m.runInTx(ctx, func(ctx context.Context) error {
		if err := m.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:  hold.SetAt,
			UserID:     userID,
			ResourceID: userID.String(),
			Action:     audit.EventLegalHoldSet,
			Reason:     reason,
			RequestID:  requestcontext.RequestID(ctx),
			ActorID:    adminID,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "legal hold aborted: audit could not be persisted")
		}
		if err := m.holds.Set(ctx, hold); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store legal hold")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.IncHold("set")
	m.logger.InfoContext(ctx, "legal hold set",
		"user_id", userID.String(),
		"admin_id", adminID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &hold, nil
}

// ClearLegalHold lifts a hold. Artifacts already archived stay archived.
func (m *Manager) ClearLegalHold(ctx context.Context, userID id.UserID, reason, adminID string) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if strings.TrimSpace(adminID) == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "admin identity is required")
	}
	if m.compliance == nil {
		return dErrors.New(dErrors.CodeInternal, "compliance audit is not configured")
	}

	err := m.runInTx(ctx, func(ctx context.Context) error {
		if _, err := m.holds.Find(ctx, userID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no legal hold for user")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load legal hold")
		}
		if err := m.compliance.Emit(ctx, audit.ComplianceEvent{
			Timestamp:  requestcontext.Now(ctx),
			UserID:     userID,
			ResourceID: userID.String(),
			Action:     audit.EventLegalHoldCleared,
			Reason:     strings.TrimSpace(reason),
			RequestID:  requestcontext.RequestID(ctx),
			ActorID:    adminID,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "legal hold release aborted: audit could not be persisted")
		}
		if err := m.holds.Clear(ctx, userID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no legal hold for user")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear legal hold")
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.metrics.IncHold("cleared")
	m.logger.InfoContext(ctx, "legal hold cleared",
		"user_id", userID.String(),
		"admin_id", adminID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (m *Manager) LegalHold(ctx context.Context, userID id.UserID) (*models.LegalHold, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	hold, err := m.holds.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no legal hold for user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load legal hold")
	}
	return hold, nil
}

func (m *Manager) LegalHolds(ctx context.Context) ([]models.LegalHold, error) {
	holds, err := m.holds.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list legal holds")
	}
	return holds, nil
}
