package models

import (
	id "faceguard/pkg/domain"

	"faceguard/internal/biometric/evaluator"
)

// ReviewRequest is what the registration flow hands to the review queue for an
// ambiguous submission.
type ReviewRequest struct {
	UserID    id.UserID
	AttemptID id.AttemptID
	Flags     []evaluator.FlagReason
	Scores    evaluator.Scores
	// Candidate carries the analysis needed to finish the attempt on approval.
	Candidate Outcome
}
