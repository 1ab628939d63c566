package models

import (
	"time"

	id "faceguard/pkg/domain"
	dErrors "faceguard/pkg/domain-errors"
)

// MinAge is the confirmed age floor recorded on success.
const MinAge = 18

// NewStatus returns the implicit record of a user that never attempted.
func NewStatus(userID id.UserID, now time.Time) *VerificationStatus {
	return &VerificationStatus{
		UserID:    userID,
		Status:    StatusUnverified,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so stores never share pointers with callers.
func (s *VerificationStatus) Clone() *VerificationStatus {
	if s == nil {
		return nil
	}
	c := *s
	c.LastAttemptAt = cloneTime(s.LastAttemptAt)
	c.WindowAttempts = append([]time.Time(nil), s.WindowAttempts...)
	c.BannedUntil = cloneTime(s.BannedUntil)
	c.InFlightStartedAt = cloneTime(s.InFlightStartedAt)
	if s.InFlightAttemptID != nil {
		v := *s.InFlightAttemptID
		c.InFlightAttemptID = &v
	}
	if s.AwaitingReviewAttemptID != nil {
		v := *s.AwaitingReviewAttemptID
		c.AwaitingReviewAttemptID = &v
	}
	if s.ReferenceEmbeddingID != nil {
		v := *s.ReferenceEmbeddingID
		c.ReferenceEmbeddingID = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *VerificationStatus) IsVerified() bool {
	return s != nil && s.Status == StatusVerified
}

// IsBanned reports whether the user is currently barred from attempting.
func (s *VerificationStatus) IsBanned(now time.Time) bool {
	switch s.Status {
	case StatusBannedPermanent:
		return true
	case StatusBannedTemporary:
		return s.BannedUntil == nil || now.Before(*s.BannedUntil)
	}
	return false
}

// inWindow returns the counted attempts less than one window old at now.
func (s *VerificationStatus) inWindow(now time.Time, l Limits) []time.Time {
	cutoff := now.Add(-l.AttemptWindow)
	for i, at := range s.WindowAttempts {
		if at.After(cutoff) {
			return s.WindowAttempts[i:]
		}
	}
	return nil
}

// AttemptsInWindow counts the attempts in the trailing window ending at now.
func (s *VerificationStatus) AttemptsInWindow(now time.Time, l Limits) int {
	return len(s.inWindow(now, l))
}

// AttemptsRemainingToday is what the client may still spend in the current window.
func (s *VerificationStatus) AttemptsRemainingToday(now time.Time, l Limits) int {
	if s.IsBanned(now) || s.Status == StatusVerified {
		return 0
	}
	remaining := l.MaxAttemptsPerWindow - s.AttemptsInWindow(now, l)
	if total := l.MaxAttemptsTotal - s.AttemptsTotal; total < remaining {
		remaining = total
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfter is the earliest time a new attempt may begin, or nil if one may
// begin now. Permanently banned users never get a retry time.
func (s *VerificationStatus) RetryAfter(now time.Time, l Limits) *time.Time {
	switch {
	case s.Status == StatusBannedPermanent, s.Status == StatusVerified:
		return nil
	case s.IsBanned(now):
		return cloneTime(s.BannedUntil)
	case l.MaxAttemptsPerWindow > 0 && s.AttemptsInWindow(now, l) >= l.MaxAttemptsPerWindow:
		// the limit frees up once enough of the oldest attempts age out
		in := s.inWindow(now, l)
		t := in[len(in)-l.MaxAttemptsPerWindow].Add(l.AttemptWindow)
		return &t
	case s.LastAttemptAt != nil && now.Before(s.LastAttemptAt.Add(l.RetryCooldown)):
		t := s.LastAttemptAt.Add(l.RetryCooldown)
		return &t
	}
	return nil
}

// InFlightExpired reports an in-flight attempt older than the abandonment window.
func (s *VerificationStatus) InFlightExpired(now time.Time, l Limits) bool {
	if s.InFlightAttemptID == nil || s.InFlightStartedAt == nil {
		return false
	}
	return !now.Before(s.InFlightStartedAt.Add(l.AbandonWindow))
}

// Begin checks every gate in order and records a new in-flight attempt.
// Callers resolve an expired in-flight attempt first.
func (s *VerificationStatus) Begin(now time.Time, attemptID id.AttemptID, l Limits) error {
	if s.Status == StatusBannedPermanent {
		return dErrors.New(dErrors.CodeAccountBanned, "account is permanently banned")
	}
	if s.Status == StatusBannedTemporary {
		if s.IsBanned(now) {
			return dErrors.New(dErrors.CodeAccountBanned, "account is temporarily banned")
		}
		// cooldown over: the window restarts, lifetime total is kept
		s.Status = StatusFailed
		s.AttemptsToday = 0
		s.WindowAttempts = nil
		s.BannedUntil = nil
	}
	if s.AttemptsInWindow(now, l) >= l.MaxAttemptsPerWindow {
		return dErrors.New(dErrors.CodeRateLimited, "daily attempt limit reached")
	}
	if s.LastAttemptAt != nil && now.Before(s.LastAttemptAt.Add(l.RetryCooldown)) {
		return dErrors.New(dErrors.CodeRateLimited, "retry cooldown active")
	}
	if s.Status == StatusVerified {
		return dErrors.New(dErrors.CodeConflict, "user is already verified")
	}
	if s.InFlightAttemptID != nil {
		return dErrors.New(dErrors.CodeAttemptInProgress, "an attempt is already in progress")
	}
	if s.AwaitingReviewAttemptID != nil {
		return dErrors.New(dErrors.CodePendingReview, "submission is awaiting review")
	}

	started := now
	aid := attemptID
	s.InFlightAttemptID = &aid
	s.InFlightStartedAt = &started
	s.Status = StatusPending
	s.UpdatedAt = now
	return nil
}

// OwnsAttempt reports whether attemptID is the in-flight or parked attempt.
func (s *VerificationStatus) OwnsAttempt(attemptID id.AttemptID) bool {
	if s.InFlightAttemptID != nil && *s.InFlightAttemptID == attemptID {
		return true
	}
	return s.AwaitingReviewAttemptID != nil && *s.AwaitingReviewAttemptID == attemptID
}

// ApplyResult counts one finished attempt and performs every ban transition.
// It returns the attempt number assigned to the result.
func (s *VerificationStatus) ApplyResult(now time.Time, result Result, reason string, l Limits) int {
	s.WindowAttempts = append(append([]time.Time(nil), s.inWindow(now, l)...), now)
	s.AttemptsToday = len(s.WindowAttempts)
	s.AttemptsTotal++
	last := now
	s.LastAttemptAt = &last
	s.InFlightAttemptID = nil
	s.InFlightStartedAt = nil
	s.AwaitingReviewAttemptID = nil
	s.UpdatedAt = now

	switch {
	case result == ResultSuccess:
		s.Status = StatusVerified
		s.AgeVerified = true
		s.MinAgeConfirmed = MinAge
		s.ReasonFailed = ""
	case result == ResultBanned, s.AttemptsTotal >= l.MaxAttemptsTotal:
		s.Status = StatusBannedPermanent
		s.BannedUntil = nil
		s.ReasonFailed = string(result)
	case s.AttemptsToday >= l.MaxAttemptsPerWindow:
		s.Status = StatusBannedTemporary
		until := now.Add(l.BanCooldown)
		s.BannedUntil = &until
		s.ReasonFailed = string(result)
	default:
		s.Status = StatusFailed
		s.ReasonFailed = string(result)
	}
	return s.AttemptsTotal
}

// Park moves the in-flight attempt to the review marker. Status stays PENDING.
func (s *VerificationStatus) Park(now time.Time, attemptID id.AttemptID) error {
	if s.InFlightAttemptID == nil || *s.InFlightAttemptID != attemptID {
		return dErrors.New(dErrors.CodeConflict, "attempt is not in flight")
	}
	aid := attemptID
	s.AwaitingReviewAttemptID = &aid
	s.InFlightAttemptID = nil
	s.InFlightStartedAt = nil
	s.UpdatedAt = now
	return nil
}

// Release drops an unresolved attempt, in flight or parked, without counting it.
func (s *VerificationStatus) Release(now time.Time, attemptID id.AttemptID) error {
	if !s.OwnsAttempt(attemptID) {
		return dErrors.New(dErrors.CodeConflict, "attempt is not in flight")
	}
	s.InFlightAttemptID = nil
	s.InFlightStartedAt = nil
	s.AwaitingReviewAttemptID = nil
	if s.AttemptsTotal == 0 {
		s.Status = StatusUnverified
	} else {
		s.Status = StatusFailed
	}
	s.UpdatedAt = now
	return nil
}

// ApplyOverride forces VERIFIED or UNVERIFIED. UNVERIFIED is a full reset.
func (s *VerificationStatus) ApplyOverride(now time.Time, target Status) error {
	switch target {
	case StatusVerified:
		s.Status = StatusVerified
		s.AgeVerified = true
		s.MinAgeConfirmed = MinAge
		s.ReasonFailed = ""
		s.BannedUntil = nil
	case StatusUnverified:
		s.Status = StatusUnverified
		s.AgeVerified = false
		s.MinAgeConfirmed = 0
		s.AttemptsToday = 0
		s.AttemptsTotal = 0
		s.WindowAttempts = nil
		s.LastAttemptAt = nil
		s.BannedUntil = nil
		s.ReasonFailed = ""
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "override target must be VERIFIED or UNVERIFIED")
	}
	s.AdminOverride = true
	s.InFlightAttemptID = nil
	s.InFlightStartedAt = nil
	s.AwaitingReviewAttemptID = nil
	s.UpdatedAt = now
	return nil
}
