package database

import (
	"context"
	"time"
)

// Ledger is the authoritative store of attendance facts. It is the sole
// writer of facts; the recognition loop, the manual-entry path and the
// bulk importer are callers. The uniqueness check-and-insert is atomic
// with respect to concurrent callers: implementations rely on a storage
// level unique constraint, never an application-level pre-check.
type Ledger interface {
	// Mark records attendance for (person, subject, day). Returns
	// OutcomeCreated with the new fact, or OutcomeAlreadyMarked with the
	// existing fact and its original timestamp. Never fails on a
	// duplicate.
	Mark(ctx context.Context, personID, subjectID string, day time.Time) (MarkResult, error)

	// AddManual has the same atomic dedup semantics as Mark but reports a
	// duplicate as OutcomeRejected. Used for out-of-band entry.
	AddManual(ctx context.Context, personID, subjectID string, day time.Time) (MarkResult, error)

	// Remove deletes a fact outright. Used by the mark-absent correction.
	Remove(ctx context.Context, factID int64) error

	// BulkImport processes records independently and in order. Duplicates
	// are counted, other per-record failures are collected as messages;
	// the batch never aborts early.
	BulkImport(ctx context.Context, records []BulkRecord) (BulkReport, error)

	// ListRecent returns up to limit facts ordered by timestamp descending.
	ListRecent(ctx context.Context, limit int) ([]FactDetail, error)

	// ListByPerson returns all facts for one person, newest first.
	ListByPerson(ctx context.Context, personID string) ([]FactDetail, error)

	// ListAll returns every fact joined with names, ordered by timestamp
	// descending with fact id as tie-break. The ordering is deterministic
	// so repeated exports of an unchanged ledger are byte-identical.
	ListAll(ctx context.Context) ([]FactDetail, error)

	// DailySummary returns the first mark per (person, subject, day),
	// ordered by day descending then person id.
	DailySummary(ctx context.Context) ([]DailyRow, error)

	// Summary returns per-subject attendance counts for one person.
	Summary(ctx context.Context, personID string) ([]SubjectCount, error)

	// Stats returns detailed statistics. An empty personID means all
	// students.
	Stats(ctx context.Context, personID string) ([]AttendanceStat, error)
}

// IdentityStore manages known identities and their credentials.
type IdentityStore interface {
	// UpsertStudent creates or updates a student identity. An existing row
	// keeps its password hash; the name is always updated.
	UpsertStudent(ctx context.Context, personID, name, passwordHash string) error

	// Get returns the identity or nil if absent.
	Get(ctx context.Context, personID string) (*Identity, error)

	// ListStudents returns all student identities ordered by person id.
	ListStudents(ctx context.Context) ([]Identity, error)

	// UpdateName changes the display name only.
	UpdateName(ctx context.Context, personID, name string) error

	// FindByName resolves a person by normalized display name (lowercase,
	// no diacritics). Returns nil if no unique match exists.
	FindByName(ctx context.Context, name string) (*Identity, error)

	// EnsureDefaultAdmin seeds an admin account when none exists.
	EnsureDefaultAdmin(ctx context.Context) error
}

// SubjectStore manages the subject registry.
type SubjectStore interface {
	// Upsert creates a subject or updates its name.
	Upsert(ctx context.Context, subjectID, name string) error

	// List returns all subjects ordered by subject id.
	List(ctx context.Context) ([]Subject, error)
}

// SampleStore holds normalized enrollment patch vectors used for training.
type SampleStore interface {
	// SaveSample stores one enrollment vector for a person.
	SaveSample(ctx context.Context, personID string, embedding []float32) error

	// ListSamples returns all samples grouped in insertion order.
	ListSamples(ctx context.Context) ([]FaceSample, error)

	// CountByPerson returns the number of stored samples for a person.
	CountByPerson(ctx context.Context, personID string) (int, error)
}

// QueryStore tracks student questions until an administrator resolves them.
type QueryStore interface {
	InsertQuery(ctx context.Context, personID, text string) error
	ListQueries(ctx context.Context) ([]StudentQuery, error)
	ResolveQuery(ctx context.Context, queryID int64) error
}

// Store aggregates every storage concern backed by one database.
type Store interface {
	Ledger
	IdentityStore
	SubjectStore
	QueryStore
}
