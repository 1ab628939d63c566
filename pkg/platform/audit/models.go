package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "faceguard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores and
// retention can treat them differently.
type EventCategory string

const (
	// CategoryCompliance covers events with legal or regulatory significance:
	// admin overrides, human review decisions, legal holds, meeting denials.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to abuse monitoring: bans,
	// rate-limit rejections, ban-evasion and replay detection.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// ResourceID is the attempt, review entry, meeting or artifact the action touched.
	ResourceID string
	Action     string
	Decision   string
	Reason     string
	RequestID  string
	// ActorID is the admin or reviewer when different from UserID.
	ActorID string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

type AuditEvent string

const (
	// Verification lifecycle
	EventAttemptStarted      AuditEvent = "verification_attempt_started"
	EventAttemptRecorded     AuditEvent = "verification_attempt_recorded"
	EventAttemptRejected     AuditEvent = "verification_attempt_rejected"
	EventAttemptReleased     AuditEvent = "verification_attempt_released"
	EventAttemptAbandoned    AuditEvent = "verification_attempt_abandoned"
	EventVerificationGranted AuditEvent = "verification_granted"
	EventBanTemporary        AuditEvent = "verification_ban_temporary"
	EventBanPermanent        AuditEvent = "verification_ban_permanent"
	EventBanEvasionDetected  AuditEvent = "verification_ban_evasion_detected"
	EventMediaReplayDetected AuditEvent = "verification_media_replay_detected"
	EventAdminOverride       AuditEvent = "verification_admin_override"

	// Review queue
	EventReviewQueued   AuditEvent = "review_queued"
	EventReviewApproved AuditEvent = "review_approved"
	EventReviewRejected AuditEvent = "review_rejected"

	// Meeting gate
	EventMeetingAdmitted   AuditEvent = "meeting_admitted"
	EventMeetingDenied     AuditEvent = "meeting_denied"
	EventDecisionPublished AuditEvent = "meeting_decision_published"

	// Retention
	EventLegalHoldSet     AuditEvent = "legal_hold_set"
	EventLegalHoldCleared AuditEvent = "legal_hold_cleared"
	EventArtifactArchived AuditEvent = "retention_artifact_archived"
	EventRetentionSweep   AuditEvent = "retention_sweep_completed"
	EventProviderFailure  AuditEvent = "biometric_provider_failure"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAdminOverride:       CategoryCompliance,
	EventReviewApproved:      CategoryCompliance,
	EventReviewRejected:      CategoryCompliance,
	EventMeetingDenied:       CategoryCompliance,
	EventLegalHoldSet:        CategoryCompliance,
	EventLegalHoldCleared:    CategoryCompliance,
	EventArtifactArchived:    CategoryCompliance,
	EventVerificationGranted: CategoryCompliance,

	EventAttemptRejected:     CategorySecurity,
	EventAttemptAbandoned:    CategorySecurity,
	EventBanTemporary:        CategorySecurity,
	EventBanPermanent:        CategorySecurity,
	EventBanEvasionDetected:  CategorySecurity,
	EventMediaReplayDetected: CategorySecurity,

	EventAttemptStarted:    CategoryOperations,
	EventAttemptRecorded:   CategoryOperations,
	EventAttemptReleased:   CategoryOperations,
	EventReviewQueued:      CategoryOperations,
	EventMeetingAdmitted:   CategoryOperations,
	EventDecisionPublished: CategoryOperations,
	EventRetentionSweep:    CategoryOperations,
	EventProviderFailure:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// ComplianceEvent captures regulatory-significant actions requiring guaranteed
// persistence. Use with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp  time.Time
	UserID     id.UserID // the user affected (required)
	ResourceID string
	Action     AuditEvent
	Decision   string
	Reason     string
	RequestID  string
	ActorID    string // admin or reviewer (required for admin actions)
}

func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the storage Event.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:   CategoryCompliance,
		Timestamp:  e.Timestamp,
		UserID:     e.UserID,
		ResourceID: e.ResourceID,
		Action:     string(e.Action),
		Decision:   e.Decision,
		Reason:     e.Reason,
		RequestID:  e.RequestID,
		ActorID:    e.ActorID,
	}
}
