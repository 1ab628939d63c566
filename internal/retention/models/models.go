// Package models defines retention classes, legal holds and sweep reports.
package models

import (
	"fmt"
	"path"
	"strings"
	"time"

	id "faceguard/pkg/domain"
)

// Class is a retention class. Every stored artifact belongs to exactly one.
type Class string

const (
	ClassRawMedia      Class = "raw_media"
	ClassMeetingMedia  Class = "meeting_media"
	ClassEmbedding     Class = "embedding"
	ClassReviewEntry   Class = "review_entry"
	ClassAttempt       Class = "attempt"
	ClassMeetingRecord Class = "meeting_record"
	ClassAuditEvent    Class = "audit_event"
)

// Classes lists every class in sweep order.
func Classes() []Class {
	return []Class{
		ClassRawMedia,
		ClassMeetingMedia,
		ClassEmbedding,
		ClassReviewEntry,
		ClassAttempt,
		ClassMeetingRecord,
		ClassAuditEvent,
	}
}

const day = 24 * time.Hour

// Policy maps each class to how long its artifacts are kept.
type Policy map[Class]time.Duration

func DefaultPolicy() Policy {
	return Policy{
		ClassRawMedia:      30 * day,
		ClassMeetingMedia:  7 * day,
		ClassEmbedding:     365 * day,
		ClassReviewEntry:   730 * day,
		ClassAttempt:       2555 * day,
		ClassMeetingRecord: 2555 * day,
		ClassAuditEvent:    2555 * day,
	}
}

// Artifact is one expired item as the sweeper sees it. Payload is what gets
// archived for a user under legal hold.
type Artifact struct {
	ID        string
	UserID    id.UserID
	CreatedAt time.Time
	Payload   any
}

// ArchiveKey is archive/<YYYY>/<MM>/<class>/<userID>/<artifactID>.json, dated
// by the artifact's creation so a retried export overwrites the same object.
func ArchiveKey(class Class, a Artifact) string {
	t := a.CreatedAt.UTC()
	return path.Join("archive",
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", int(t.Month())),
		string(class),
		a.UserID.String(),
		strings.ReplaceAll(a.ID, "/", "_")+".json",
	)
}

// LegalHold keeps a user's expiring artifacts in the archive.
type LegalHold struct {
	UserID id.UserID
	Reason string
	SetBy  string
	SetAt  time.Time
}

// ClassReport counts one class's work in a sweep.
type ClassReport struct {
	Class    Class `json:"class"`
	Deleted  int   `json:"deleted"`
	Archived int   `json:"archived"`
	Failed   int   `json:"failed"`
}

type SweepReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Classes    []ClassReport `json:"classes"`
}

func (r *SweepReport) Totals() ClassReport {
	var t ClassReport
	for _, c := range r.Classes {
		t.Deleted += c.Deleted
		t.Archived += c.Archived
		t.Failed += c.Failed
	}
	return t
}
