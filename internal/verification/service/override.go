package service

import (
	"context"
	"strings"

	"faceguard/internal/verification/models"
	"faceguard/internal/verification/store"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/audit"
	"faceguard/pkg/requestcontext"
)

// ApplyAdminOverride forces a user to VERIFIED or UNVERIFIED regardless of
// bans. The compliance event is written in the same transaction as the status,
// so the override does not happen if it cannot be audited.
func (s *Service) ApplyAdminOverride(ctx context.Context, userID id.UserID, target models.Status, reason, adminID string) (*models.VerificationStatus, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	if strings.TrimSpace(adminID) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "admin identity is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "override reason is required")
	}
	if target != models.StatusVerified && target != models.StatusUnverified {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "override target must be VERIFIED or UNVERIFIED")
	}
	if s.compliance == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "compliance audit is not configured")
	}

	var result *models.VerificationStatus
	err := withRetry(func() error {
		return s.runInTx(ctx, func(ctx context.Context) error {
			st, expected, err := s.loadStatus(ctx, userID)
			if err != nil {
				return err
			}
			prev := st.Status
			now := requestcontext.Now(ctx)
			if err := st.ApplyOverride(now, target); err != nil {
				return err
			}
			if err := s.compliance.Emit(ctx, audit.ComplianceEvent{
				Timestamp:  now,
				UserID:     userID,
				ResourceID: userID.String(),
				Action:     audit.EventAdminOverride,
				Decision:   string(prev) + "->" + string(target),
				Reason:     reason,
				RequestID:  requestcontext.RequestID(ctx),
				ActorID:    adminID,
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "override aborted: audit could not be persisted")
			}
			if err := s.commit(ctx, store.Commit{Status: st, ExpectedVersion: expected}); err != nil {
				return err
			}
			result = st
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReference(ctx, userID)

	s.logger.InfoContext(ctx, "admin override applied",
		"user_id", userID.String(),
		"admin_id", adminID,
		"status", string(target),
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}
