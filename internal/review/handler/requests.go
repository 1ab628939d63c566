package handler

import (
	"strings"

	dErrors "faceguard/pkg/domain-errors"
)

const maxNotesLength = 2000

// DecisionRequest is the body of the approve and reject endpoints.
type DecisionRequest struct {
	Notes string `json:"notes"`
}

func (r *DecisionRequest) Validate() error {
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes are too long")
	}
	return nil
}
