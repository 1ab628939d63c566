package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "faceguard/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so the compiler rejects passing an
// AttemptID where a UserID is expected.
type (
	UserID        uuid.UUID
	AttemptID     uuid.UUID
	EmbeddingID   uuid.UUID
	ReviewEntryID uuid.UUID
	MeetingID     uuid.UUID
	DecisionID    uuid.UUID
)

const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	return UserID(u), err
}

func ParseAttemptID(s string) (AttemptID, error) {
	u, err := parseUUID("attempt_id", s)
	return AttemptID(u), err
}

func ParseReviewEntryID(s string) (ReviewEntryID, error) {
	u, err := parseUUID("entry_id", s)
	return ReviewEntryID(u), err
}

func ParseMeetingID(s string) (MeetingID, error) {
	u, err := parseUUID("meeting_id", s)
	return MeetingID(u), err
}

func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parseUUID("decision_id", s)
	return DecisionID(u), err
}

func NewAttemptID() AttemptID         { return AttemptID(uuid.New()) }
func NewEmbeddingID() EmbeddingID     { return EmbeddingID(uuid.New()) }
func NewReviewEntryID() ReviewEntryID { return ReviewEntryID(uuid.New()) }
func NewDecisionID() DecisionID       { return DecisionID(uuid.New()) }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id AttemptID) String() string     { return uuid.UUID(id).String() }
func (id EmbeddingID) String() string   { return uuid.UUID(id).String() }
func (id ReviewEntryID) String() string { return uuid.UUID(id).String() }
func (id MeetingID) String() string     { return uuid.UUID(id).String() }
func (id DecisionID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id AttemptID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EmbeddingID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ReviewEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MeetingID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id AttemptID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id EmbeddingID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id ReviewEntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MeetingID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id DecisionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AttemptID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EmbeddingID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReviewEntryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MeetingID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DecisionID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
