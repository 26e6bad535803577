package database

import (
	"time"
)

// MarkOutcome describes the result of an attendance write.
type MarkOutcome string

const (
	// OutcomeCreated means a new fact was inserted for (person, subject, day).
	OutcomeCreated MarkOutcome = "created"
	// OutcomeAlreadyMarked means a fact already existed; the stored fact is returned.
	OutcomeAlreadyMarked MarkOutcome = "already_marked"
	// OutcomeRejected is used by the manual-add path when the fact already exists.
	OutcomeRejected MarkOutcome = "rejected"
)

// Identity represents a known person: a student or an administrator.
type Identity struct {
	PersonID     string
	Name         string
	Role         string // "admin" or "student"
	PasswordHash string
}

// Subject is a course that attendance facts reference.
type Subject struct {
	SubjectID string
	Name      string
}

// Fact is one persisted attendance record. At most one fact exists per
// (PersonID, SubjectID, Day); the constraint is enforced by the store.
type Fact struct {
	ID        int64
	PersonID  string
	SubjectID string
	Timestamp time.Time // first-mark instant
	Day       time.Time // date component only
}

// FactDetail is a fact joined with person and subject names for listings
// and exports.
type FactDetail struct {
	Fact
	PersonName  string
	SubjectName string
}

// MarkResult pairs the outcome of a write with the authoritative fact.
// On AlreadyMarked/Rejected the fact carries the original timestamp.
type MarkResult struct {
	Outcome MarkOutcome
	Fact    Fact
}

// Created reports whether the write inserted a new fact.
func (r MarkResult) Created() bool {
	return r.Outcome == OutcomeCreated
}

// BulkRecord is one row of a bulk attendance import.
type BulkRecord struct {
	PersonID  string
	SubjectID string
	Day       time.Time
}

// BulkReport accounts for a bulk import: duplicates and per-record errors
// do not abort the batch.
type BulkReport struct {
	Success    int
	Duplicates int
	Errors     []string
}

// FaceSample is one normalized enrollment patch vector for a person.
type FaceSample struct {
	ID        int64
	PersonID  string
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}

// StudentQuery is a question raised by a student, tracked until resolved.
type StudentQuery struct {
	ID         int64
	PersonID   string
	PersonName string
	Text       string
	Timestamp  time.Time
	Status     string // "pending" or "resolved"
}

// SubjectCount is a per-subject attendance count for one person.
type SubjectCount struct {
	SubjectID   string
	SubjectName string
	Count       int
}

// AttendanceStat is a detailed per-person, per-subject statistic.
type AttendanceStat struct {
	PersonID    string
	PersonName  string
	SubjectID   string
	SubjectName string
	PresentDays int
	TotalDays   int // distinct days any attendance was recorded for the subject
}

// DailyRow is one row of the daily summary export: the first mark per
// (person, subject, day).
type DailyRow struct {
	PersonID    string
	PersonName  string
	SubjectID   string
	SubjectName string
	Day         time.Time
	FirstMark   time.Time
}

// DayOf truncates a timestamp to its date in UTC. All attendance days are
// stored and compared in this form.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
