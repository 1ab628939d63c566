package models

import (
	"time"

	"faceguard/internal/biometric/evaluator"
	vmodels "faceguard/internal/verification/models"
	id "faceguard/pkg/domain"
)

type Status string

const (
	StatusPending  Status = "PENDING_REVIEW"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Candidate is the analysis a reviewer's approval turns into a result. It is
// cleared once the entry is decided.
type Candidate struct {
	LivenessScore    float64   `json:"liveness_score"`
	AgeEstimate      float64   `json:"age_estimate"`
	Confidence       float64   `json:"confidence"`
	PhotoMatchScores []float64 `json:"photo_match_scores"`
	Embedding        []float64 `json:"embedding"`
	ClientPlatform   string    `json:"client_platform"`
	MediaDigest      string    `json:"media_digest"`
}

func CandidateFromOutcome(o vmodels.Outcome) *Candidate {
	return &Candidate{
		LivenessScore:    o.LivenessScore,
		AgeEstimate:      o.AgeEstimate,
		Confidence:       o.Confidence,
		PhotoMatchScores: append([]float64(nil), o.PhotoMatchScores...),
		Embedding:        append([]float64(nil), o.Embedding...),
		ClientPlatform:   o.ClientPlatform,
		MediaDigest:      o.MediaDigest,
	}
}

// Outcome builds the human-reviewed result fed to the state machine.
func (c *Candidate) Outcome(result vmodels.Result) vmodels.Outcome {
	o := vmodels.Outcome{Result: result}
	if c == nil {
		return o
	}
	o.LivenessScore = c.LivenessScore
	o.AgeEstimate = c.AgeEstimate
	o.Confidence = c.Confidence
	o.PhotoMatchScores = c.PhotoMatchScores
	o.Embedding = c.Embedding
	o.ClientPlatform = c.ClientPlatform
	o.MediaDigest = c.MediaDigest
	return o
}

type Entry struct {
	ID          id.ReviewEntryID
	UserID      id.UserID
	AttemptID   id.AttemptID
	Status      Status
	FlagReasons []evaluator.FlagReason
	Priority    int
	Scores      evaluator.Scores
	Candidate   *Candidate
	ReviewedBy  string
	ReviewNotes string
	CreatedAt   time.Time
	ReviewedAt  *time.Time
}

// Decision is a reviewer's terminal verdict.
type Decision struct {
	EntryID    id.ReviewEntryID
	Status     Status
	ReviewerID string
	Notes      string
	At         time.Time
}
