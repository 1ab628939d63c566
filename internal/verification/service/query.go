package service

import (
	"context"
	"errors"

	"faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
	"faceguard/pkg/platform/sentinel"
)

// Status returns the user's record. A user without one is UNVERIFIED.
func (s *Service) Status(ctx context.Context, userID id.UserID) (*models.VerificationStatus, error) {
	st, _, err := s.loadStatus(ctx, userID)
	return st, err
}

// RequireVerified is the access check for gated features. Any failure to
// read the record denies access.
func (s *Service) RequireVerified(ctx context.Context, userID id.UserID) error {
	st, err := s.store.FindStatus(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotVerified, "identity verification required")
		}
		s.logger.ErrorContext(ctx, "verification status lookup failed, denying access",
			"user_id", userID.String(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeNotVerified, "identity verification could not be confirmed")
	}
	if !st.IsVerified() {
		return dErrors.New(dErrors.CodeNotVerified, "identity verification required")
	}
	return nil
}

func (s *Service) Attempts(ctx context.Context, userID id.UserID) ([]*models.Attempt, error) {
	attempts, err := s.store.ListAttempts(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attempts")
	}
	return attempts, nil
}

func (s *Service) CurrentEmbedding(ctx context.Context, userID id.UserID) (*models.FaceEmbedding, error) {
	e, err := s.store.CurrentEmbedding(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no reference embedding")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reference embedding")
	}
	return e, nil
}
