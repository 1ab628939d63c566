package models

import (
	"time"

	id "faceguard/pkg/domain"
)

// Status is the single ban/verification state of a user.
type Status string

const (
	StatusUnverified      Status = "UNVERIFIED"
	StatusPending         Status = "PENDING"
	StatusVerified        Status = "VERIFIED"
	StatusFailed          Status = "FAILED"
	StatusBannedTemporary Status = "BANNED_TEMPORARY"
	StatusBannedPermanent Status = "BANNED_PERMANENT"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUnverified, StatusPending, StatusVerified, StatusFailed, StatusBannedTemporary, StatusBannedPermanent:
		return true
	}
	return false
}

// Result is the final result of one attempt.
type Result string

const (
	ResultSuccess       Result = "SUCCESS"
	ResultLivenessFail  Result = "LIVENESS_FAIL"
	ResultAgeFail       Result = "AGE_FAIL"
	ResultPhotoMismatch Result = "PHOTO_MISMATCH"
	ResultBanned        Result = "BANNED"
	ResultAbandoned     Result = "ABANDONED"
)

func (r Result) IsValid() bool {
	switch r {
	case ResultSuccess, ResultLivenessFail, ResultAgeFail, ResultPhotoMismatch, ResultBanned, ResultAbandoned:
		return true
	}
	return false
}

func (r Result) IsFailure() bool {
	return r.IsValid() && r != ResultSuccess
}

// VerificationStatus is the per-user aggregate. Version guards every write.
type VerificationStatus struct {
	UserID          id.UserID
	Status          Status
	AgeVerified     bool
	MinAgeConfirmed int
	AttemptsToday   int
	AttemptsTotal   int
	LastAttemptAt   *time.Time
	ReasonFailed    string
	AdminOverride   bool

	// WindowAttempts holds the times of counted attempts still inside the
	// trailing window, oldest first. AttemptsToday is its length at the last write.
	WindowAttempts          []time.Time
	BannedUntil             *time.Time
	InFlightAttemptID       *id.AttemptID
	InFlightStartedAt       *time.Time
	AwaitingReviewAttemptID *id.AttemptID
	// ReferenceEmbeddingID is the current identity embedding.
	ReferenceEmbeddingID *id.EmbeddingID

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attempt is the immutable log entry for one attempt.
type Attempt struct {
	ID               id.AttemptID
	UserID           id.UserID
	AttemptNumber    int
	AttemptedAt      time.Time
	Result           Result
	LivenessScore    float64
	AgeEstimate      float64
	PhotoMatchScores []float64
	FailureReason    string
	HumanReviewed    bool
	ReviewedBy       string
	ReviewEntryID    *id.ReviewEntryID
	ClientPlatform   string
	MediaDigest      string
}

// EmbeddingKind separates the identity reference from ban-evasion references.
type EmbeddingKind string

const (
	EmbeddingIdentity     EmbeddingKind = "identity"
	EmbeddingBanReference EmbeddingKind = "ban_reference"
	// EmbeddingAttempt is the selfie of a failed attempt. It becomes the ban
	// reference when a later failure without a selfie bans the account.
	EmbeddingAttempt EmbeddingKind = "attempt"
)

type FaceEmbedding struct {
	ID            id.EmbeddingID
	UserID        id.UserID
	AttemptID     id.AttemptID
	Kind          EmbeddingKind
	Vector        []float64
	Confidence    float64
	LivenessScore float64
	AgeEstimate   float64
	Current       bool
	CreatedAt     time.Time
	SupersededAt  *time.Time
}

// Outcome is what a finished attempt contributes to RecordResult.
type Outcome struct {
	Result           Result
	LivenessScore    float64
	AgeEstimate      float64
	Confidence       float64
	PhotoMatchScores []float64
	FailureReason    string
	// Embedding is the selfie embedding when the provider produced one. On
	// SUCCESS it becomes the current reference.
	Embedding      []float64
	HumanReviewed  bool
	ReviewedBy     string
	ReviewEntryID  *id.ReviewEntryID
	ClientPlatform string
	MediaDigest    string
}

// AttemptTicket is handed out by BeginAttempt.
type AttemptTicket struct {
	UserID    id.UserID
	AttemptID id.AttemptID
	StartedAt time.Time
	ExpiresAt time.Time
}

// Limits is the retry and ban policy.
type Limits struct {
	MaxAttemptsPerWindow int
	MaxAttemptsTotal     int
	AttemptWindow        time.Duration
	BanCooldown          time.Duration
	RetryCooldown        time.Duration
	AbandonWindow        time.Duration
}

func DefaultLimits() Limits {
	return Limits{
		MaxAttemptsPerWindow: 3,
		MaxAttemptsTotal:     7,
		AttemptWindow:        24 * time.Hour,
		BanCooldown:          48 * time.Hour,
		RetryCooldown:        30 * time.Second,
		AbandonWindow:        10 * time.Minute,
	}
}
