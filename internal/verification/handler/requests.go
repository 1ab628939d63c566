package handler

import (
	"strings"

	"faceguard/internal/verification/models"
	dErrors "faceguard/pkg/domain-errors"
)

const maxReasonLength = 1000

// OverrideRequest is the body of POST /admin/users/{userID}/override.
type OverrideRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (r *OverrideRequest) Validate() error {
	r.Status = strings.ToUpper(strings.TrimSpace(r.Status))
	r.Reason = strings.TrimSpace(r.Reason)

	switch models.Status(r.Status) {
	case models.StatusVerified, models.StatusUnverified:
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be VERIFIED or UNVERIFIED")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// Target returns the parsed override status. Call after Validate.
func (r *OverrideRequest) Target() models.Status {
	return models.Status(r.Status)
}
