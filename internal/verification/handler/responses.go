package handler

import (
	"time"

	"faceguard/internal/verification/models"
	"faceguard/internal/verification/service"
	id "faceguard/pkg/domain"
)

// SubmissionResponse is the client view of one submission. It carries reason
// codes only.
type SubmissionResponse struct {
	AttemptID              string     `json:"attempt_id"`
	Status                 string     `json:"status"`
	ReasonCode             string     `json:"reason_code"`
	RetryEligible          bool       `json:"retry_eligible"`
	RetryAfter             *time.Time `json:"retry_after,omitempty"`
	AttemptsRemainingToday int        `json:"attempts_remaining_today"`
	EstimatedCompletionAt  *time.Time `json:"estimated_completion_at,omitempty"`
}

func FromSubmissionResult(res *service.SubmissionResult) *SubmissionResponse {
	return &SubmissionResponse{
		AttemptID:              res.AttemptID.String(),
		Status:                 string(res.Status),
		ReasonCode:             res.ReasonCode,
		RetryEligible:          res.RetryEligible,
		RetryAfter:             res.RetryAfter,
		AttemptsRemainingToday: res.AttemptsRemainingToday,
		EstimatedCompletionAt:  res.EstimatedCompletionAt,
	}
}

// StatusResponse is GET /verification/status.
type StatusResponse struct {
	Status                 string     `json:"status"`
	AgeVerified            bool       `json:"age_verified"`
	PendingReview          bool       `json:"pending_review"`
	AttemptsRemainingToday int        `json:"attempts_remaining_today"`
	BannedUntil            *time.Time `json:"banned_until,omitempty"`
	LastAttemptAt          *time.Time `json:"last_attempt_at,omitempty"`
}

func FromStatus(st *models.VerificationStatus, now time.Time, limits models.Limits) *StatusResponse {
	return &StatusResponse{
		Status:                 string(st.Status),
		AgeVerified:            st.AgeVerified,
		PendingReview:          st.AwaitingReviewAttemptID != nil,
		AttemptsRemainingToday: st.AttemptsRemainingToday(now, limits),
		BannedUntil:            st.BannedUntil,
		LastAttemptAt:          st.LastAttemptAt,
	}
}

// AdminStatusResponse exposes the full record to operators.
type AdminStatusResponse struct {
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	AgeVerified     bool       `json:"age_verified"`
	MinAgeConfirmed int        `json:"min_age_confirmed"`
	AttemptsToday   int        `json:"attempts_today"`
	AttemptsTotal   int        `json:"attempts_total"`
	LastAttemptAt   *time.Time `json:"last_attempt_at,omitempty"`
	ReasonFailed    string     `json:"reason_failed,omitempty"`
	AdminOverride   bool       `json:"admin_override"`
	BannedUntil     *time.Time `json:"banned_until,omitempty"`
	PendingReview   bool       `json:"pending_review"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func FromAdminStatus(st *models.VerificationStatus) *AdminStatusResponse {
	return &AdminStatusResponse{
		UserID:          st.UserID.String(),
		Status:          string(st.Status),
		AgeVerified:     st.AgeVerified,
		MinAgeConfirmed: st.MinAgeConfirmed,
		AttemptsToday:   st.AttemptsToday,
		AttemptsTotal:   st.AttemptsTotal,
		LastAttemptAt:   st.LastAttemptAt,
		ReasonFailed:    st.ReasonFailed,
		AdminOverride:   st.AdminOverride,
		BannedUntil:     st.BannedUntil,
		PendingReview:   st.AwaitingReviewAttemptID != nil,
		UpdatedAt:       st.UpdatedAt,
	}
}

type AttemptResponse struct {
	ID               string    `json:"id"`
	AttemptNumber    int       `json:"attempt_number"`
	AttemptedAt      time.Time `json:"attempted_at"`
	Result           string    `json:"result"`
	LivenessScore    float64   `json:"liveness_score"`
	AgeEstimate      float64   `json:"age_estimate"`
	PhotoMatchScores []float64 `json:"photo_match_scores"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	HumanReviewed    bool      `json:"human_reviewed"`
	ReviewedBy       string    `json:"reviewed_by,omitempty"`
	ClientPlatform   string    `json:"client_platform,omitempty"`
}

type AttemptsResponse struct {
	UserID   string            `json:"user_id"`
	Attempts []AttemptResponse `json:"attempts"`
}

// FromAttempts is admin-only; scores are never shown to the user.
func FromAttempts(userID id.UserID, attempts []*models.Attempt) *AttemptsResponse {
	resp := &AttemptsResponse{
		UserID:   userID.String(),
		Attempts: make([]AttemptResponse, 0, len(attempts)),
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, AttemptResponse{
			ID:               a.ID.String(),
			AttemptNumber:    a.AttemptNumber,
			AttemptedAt:      a.AttemptedAt,
			Result:           string(a.Result),
			LivenessScore:    a.LivenessScore,
			AgeEstimate:      a.AgeEstimate,
			PhotoMatchScores: a.PhotoMatchScores,
			FailureReason:    a.FailureReason,
			HumanReviewed:    a.HumanReviewed,
			ReviewedBy:       a.ReviewedBy,
			ClientPlatform:   a.ClientPlatform,
		})
	}
	return resp
}
