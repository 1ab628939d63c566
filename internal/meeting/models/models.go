package models

import (
	"time"

	id "faceguard/pkg/domain"
)

type State string

const (
	StateNotChecked State = "NOT_CHECKED"
	StateChecking   State = "CHECKING"
	StateAdmitted   State = "ADMITTED"
	StateDenied     State = "DENIED"
)

// IsFinal reports whether the record can no longer change.
func (s State) IsFinal() bool {
	return s == StateAdmitted || s == StateDenied
}

type DenialReason string

const (
	DenialMismatch            DenialReason = "MISMATCH"
	DenialTimeout             DenialReason = "TIMEOUT"
	DenialLiveness            DenialReason = "LIVENESS"
	DenialNoReference         DenialReason = "NO_REFERENCE"
	DenialNotVerified         DenialReason = "NOT_VERIFIED"
	DenialProviderUnavailable DenialReason = "PROVIDER_UNAVAILABLE"
)

type Instruction string

const (
	InstructionTerminateSession      Instruction = "TERMINATE_SESSION"
	InstructionIssueRefund           Instruction = "ISSUE_REFUND"
	InstructionIncrementOffenderFlag Instruction = "INCREMENT_OFFENDER_FLAG"
)

// DenialInstructions is the fixed set every denial carries, in dispatch order.
func DenialInstructions() []Instruction {
	return []Instruction{
		InstructionTerminateSession,
		InstructionIssueRefund,
		InstructionIncrementOffenderFlag,
	}
}

// Record is the per-participant check result for one meeting. Once ADMITTED
// or DENIED it is never written again.
type Record struct {
	MeetingID     id.MeetingID
	UserID        id.UserID
	State         State
	Verified      bool
	Similarity    float64
	DenialReason  DenialReason
	TransactionID string
	StartedAt     time.Time
	CheckedAt     *time.Time
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.CheckedAt != nil {
		t := *r.CheckedAt
		c.CheckedAt = &t
	}
	return &c
}

// Admit finalizes the record as ADMITTED.
func (r *Record) Admit(now time.Time, similarity float64) {
	r.State = StateAdmitted
	r.Verified = true
	r.Similarity = similarity
	r.DenialReason = ""
	r.CheckedAt = &now
}

// Deny finalizes the record as DENIED.
func (r *Record) Deny(now time.Time, reason DenialReason, similarity float64) {
	r.State = StateDenied
	r.Verified = false
	r.Similarity = similarity
	r.DenialReason = reason
	r.CheckedAt = &now
}

// DenialDecision is the single record that carries every consequence of a
// denial. It commits with the DENIED record and is dispatched as one message.
type DenialDecision struct {
	ID            id.DecisionID
	MeetingID     id.MeetingID
	UserID        id.UserID
	TransactionID string
	Reason        DenialReason
	Instructions  []Instruction
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

func NewDenialDecision(r *Record, now time.Time) *DenialDecision {
	return &DenialDecision{
		ID:            id.NewDecisionID(),
		MeetingID:     r.MeetingID,
		UserID:        r.UserID,
		TransactionID: r.TransactionID,
		Reason:        r.DenialReason,
		Instructions:  DenialInstructions(),
		CreatedAt:     now,
	}
}

func (d *DenialDecision) Clone() *DenialDecision {
	if d == nil {
		return nil
	}
	c := *d
	c.Instructions = append([]Instruction(nil), d.Instructions...)
	if d.DispatchedAt != nil {
		t := *d.DispatchedAt
		c.DispatchedAt = &t
	}
	return &c
}

// DecisionMessage is the wire form published to the instruction sink.
type DecisionMessage struct {
	DecisionID    string    `json:"decision_id"`
	MeetingID     string    `json:"meeting_id"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason"`
	Instructions  []string  `json:"instructions"`
	DecidedAt     time.Time `json:"decided_at"`
}

func (d *DenialDecision) Message() DecisionMessage {
	instructions := make([]string, len(d.Instructions))
	for i, in := range d.Instructions {
		instructions[i] = string(in)
	}
	return DecisionMessage{
		DecisionID:    d.ID.String(),
		MeetingID:     d.MeetingID.String(),
		UserID:        d.UserID.String(),
		TransactionID: d.TransactionID,
		Reason:        string(d.Reason),
		Instructions:  instructions,
		DecidedAt:     d.CreatedAt,
	}
}

// Has reports whether the message carries instruction in.
func (m DecisionMessage) Has(in Instruction) bool {
	for _, s := range m.Instructions {
		if s == string(in) {
			return true
		}
	}
	return false
}
