package handler

import (
	"strings"

	dErrors "faceguard/pkg/domain-errors"
)

const maxReasonLength = 500

// LegalHoldRequest is the body of PUT /admin/users/{userID}/legal-hold.
type LegalHoldRequest struct {
	Reason string `json:"reason"`
}

func (r *LegalHoldRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}
