// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// MockStore is an in-memory implementation of database.Store with the same
// dedup semantics as the SQL backends: at most one fact per
// (person, subject, day), checked and inserted under one lock.
type MockStore struct {
	mu        sync.RWMutex
	facts     []database.Fact
	nextID    int64
	people    map[string]database.Identity
	subjects  map[string]database.Subject
	samples   []database.FaceSample
	queries   []database.StudentQuery
	nextQuery int64

	// Error injection
	MarkError   error
	ListError   error
	ImportError error
	SaveError   error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		nextID:    1,
		nextQuery: 1,
		people:    make(map[string]database.Identity),
		subjects:  make(map[string]database.Subject),
	}
}

var (
	_ database.Store       = (*MockStore)(nil)
	_ database.SampleStore = (*MockStore)(nil)
)

func (m *MockStore) findFact(personID, subjectID string, day time.Time) *database.Fact {
	for i := range m.facts {
		f := &m.facts[i]
		if f.PersonID == personID && f.SubjectID == subjectID && f.Day.Equal(day) {
			return f
		}
	}
	return nil
}

func (m *MockStore) insert(
	personID, subjectID string, day time.Time, dupOutcome database.MarkOutcome,
) (database.MarkResult, error) {
	if m.MarkError != nil {
		return database.MarkResult{}, m.MarkError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	day = database.DayOf(day)
	if existing := m.findFact(personID, subjectID, day); existing != nil {
		return database.MarkResult{Outcome: dupOutcome, Fact: *existing}, nil
	}

	fact := database.Fact{
		ID:        m.nextID,
		PersonID:  personID,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Day:       day,
	}
	m.nextID++
	m.facts = append(m.facts, fact)
	return database.MarkResult{Outcome: database.OutcomeCreated, Fact: fact}, nil
}

// Mark records attendance, returning the existing fact on a duplicate.
func (m *MockStore) Mark(ctx context.Context, personID, subjectID string, day time.Time) (database.MarkResult, error) {
	return m.insert(personID, subjectID, day, database.OutcomeAlreadyMarked)
}

// AddManual records attendance, rejecting duplicates.
func (m *MockStore) AddManual(ctx context.Context, personID, subjectID string, day time.Time) (database.MarkResult, error) {
	return m.insert(personID, subjectID, day, database.OutcomeRejected)
}

// Remove deletes a fact by id.
func (m *MockStore) Remove(ctx context.Context, factID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.facts {
		if m.facts[i].ID == factID {
			m.facts = append(m.facts[:i], m.facts[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("attendance record %d not found", factID)
}

// BulkImport inserts records independently; unknown people or subjects are
// collected as per-record errors.
func (m *MockStore) BulkImport(ctx context.Context, records []database.BulkRecord) (database.BulkReport, error) {
	if m.ImportError != nil {
		return database.BulkReport{}, m.ImportError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var report database.BulkReport
	for _, rec := range records {
		day := database.DayOf(rec.Day)

		if _, ok := m.people[rec.PersonID]; !ok {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"unknown person or subject for %s/%s/%s", rec.PersonID, rec.SubjectID, day.Format("2006-01-02")))
			continue
		}
		if _, ok := m.subjects[rec.SubjectID]; !ok {
			report.Errors = append(report.Errors, fmt.Sprintf(
				"unknown person or subject for %s/%s/%s", rec.PersonID, rec.SubjectID, day.Format("2006-01-02")))
			continue
		}
		if m.findFact(rec.PersonID, rec.SubjectID, day) != nil {
			report.Duplicates++
			continue
		}

		m.facts = append(m.facts, database.Fact{
			ID:        m.nextID,
			PersonID:  rec.PersonID,
			SubjectID: rec.SubjectID,
			Timestamp: time.Now().UTC(),
			Day:       day,
		})
		m.nextID++
		report.Success++
	}
	return report, nil
}

func (m *MockStore) details() []database.FactDetail {
	out := make([]database.FactDetail, 0, len(m.facts))
	for _, f := range m.facts {
		d := database.FactDetail{Fact: f}
		if p, ok := m.people[f.PersonID]; ok {
			d.PersonName = p.Name
		}
		if s, ok := m.subjects[f.SubjectID]; ok {
			d.SubjectName = s.Name
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ListRecent returns up to limit facts, newest first.
func (m *MockStore) ListRecent(ctx context.Context, limit int) ([]database.FactDetail, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.details()
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// ListByPerson returns all facts for one person, newest first.
func (m *MockStore) ListByPerson(ctx context.Context, personID string) ([]database.FactDetail, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.FactDetail
	for _, d := range m.details() {
		if d.PersonID == personID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListAll returns every fact in deterministic order.
func (m *MockStore) ListAll(ctx context.Context) ([]database.FactDetail, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.details(), nil
}

// DailySummary returns the first mark per (person, subject, day).
func (m *MockStore) DailySummary(ctx context.Context) ([]database.DailyRow, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct {
		person, subject string
		day             time.Time
	}
	first := make(map[key]database.DailyRow)
	for _, d := range m.details() {
		k := key{d.PersonID, d.SubjectID, d.Day}
		row, ok := first[k]
		if !ok || d.Timestamp.Before(row.FirstMark) {
			first[k] = database.DailyRow{
				PersonID:    d.PersonID,
				PersonName:  d.PersonName,
				SubjectID:   d.SubjectID,
				SubjectName: d.SubjectName,
				Day:         d.Day,
				FirstMark:   d.Timestamp,
			}
		}
	}

	out := make([]database.DailyRow, 0, len(first))
	for _, row := range first {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.After(out[j].Day)
		}
		if out[i].PersonID != out[j].PersonID {
			return out[i].PersonID < out[j].PersonID
		}
		return out[i].SubjectID < out[j].SubjectID
	})
	return out, nil
}

// Summary returns per-subject attendance counts for one person.
func (m *MockStore) Summary(ctx context.Context, personID string) ([]database.SubjectCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, f := range m.facts {
		if f.PersonID == personID {
			counts[f.SubjectID]++
		}
	}

	ids := make([]string, 0, len(m.subjects))
	for id := range m.subjects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]database.SubjectCount, 0, len(ids))
	for _, id := range ids {
		out = append(out, database.SubjectCount{
			SubjectID:   id,
			SubjectName: m.subjects[id].Name,
			Count:       counts[id],
		})
	}
	return out, nil
}

// Stats returns present-days versus total-days per person and subject.
func (m *MockStore) Stats(ctx context.Context, personID string) ([]database.AttendanceStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totalDays := make(map[string]map[time.Time]struct{})
	present := make(map[[2]string]int)
	for _, f := range m.facts {
		if totalDays[f.SubjectID] == nil {
			totalDays[f.SubjectID] = make(map[time.Time]struct{})
		}
		totalDays[f.SubjectID][f.Day] = struct{}{}
		present[[2]string{f.PersonID, f.SubjectID}]++
	}

	var people []database.Identity
	for _, p := range m.people {
		if p.Role != "student" {
			continue
		}
		if personID != "" && p.PersonID != personID {
			continue
		}
		people = append(people, p)
	}
	sort.Slice(people, func(i, j int) bool { return people[i].PersonID < people[j].PersonID })

	subjectIDs := make([]string, 0, len(m.subjects))
	for id := range m.subjects {
		subjectIDs = append(subjectIDs, id)
	}
	sort.Strings(subjectIDs)

	var out []database.AttendanceStat
	for _, p := range people {
		for _, sid := range subjectIDs {
			out = append(out, database.AttendanceStat{
				PersonID:    p.PersonID,
				PersonName:  p.Name,
				SubjectID:   sid,
				SubjectName: m.subjects[sid].Name,
				PresentDays: present[[2]string{p.PersonID, sid}],
				TotalDays:   len(totalDays[sid]),
			})
		}
	}
	return out, nil
}

// UpsertStudent creates or updates a student, keeping an existing password.
func (m *MockStore) UpsertStudent(ctx context.Context, personID, name, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.people[personID]; ok {
		existing.Name = name
		m.people[personID] = existing
		return nil
	}
	m.people[personID] = database.Identity{
		PersonID:     personID,
		Name:         name,
		Role:         "student",
		PasswordHash: passwordHash,
	}
	return nil
}

// Get returns the identity or nil if absent.
func (m *MockStore) Get(ctx context.Context, personID string) (*database.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.people[personID]; ok {
		return &p, nil
	}
	return nil, nil
}

// ListStudents returns all students ordered by person id.
func (m *MockStore) ListStudents(ctx context.Context) ([]database.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.Identity
	for _, p := range m.people {
		if p.Role == "student" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PersonID < out[j].PersonID })
	return out, nil
}

// UpdateName changes the display name only.
func (m *MockStore) UpdateName(ctx context.Context, personID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.people[personID]
	if !ok {
		return fmt.Errorf("person %s not found", personID)
	}
	p.Name = name
	m.people[personID] = p
	return nil
}

// FindByName resolves a student by normalized display name.
func (m *MockStore) FindByName(ctx context.Context, name string) (*database.Identity, error) {
	students, err := m.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	target := database.NormalizePersonName(name)
	var found *database.Identity
	for i := range students {
		if database.NormalizePersonName(students[i].Name) == target {
			if found != nil {
				return nil, nil
			}
			found = &students[i]
		}
	}
	return found, nil
}

// EnsureDefaultAdmin seeds the default admin account when no admin exists.
func (m *MockStore) EnsureDefaultAdmin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.people {
		if p.Role == "admin" {
			return nil
		}
	}
	m.people[database.DefaultAdminID] = database.Identity{
		PersonID:     database.DefaultAdminID,
		Name:         database.DefaultAdminName,
		Role:         "admin",
		PasswordHash: database.HashPassword(database.DefaultAdminPassword),
	}
	return nil
}

// Upsert creates a subject or updates its name.
func (m *MockStore) Upsert(ctx context.Context, subjectID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[subjectID] = database.Subject{SubjectID: subjectID, Name: name}
	return nil
}

// List returns all subjects ordered by subject id.
func (m *MockStore) List(ctx context.Context) ([]database.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]database.Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

// SaveSample stores one enrollment vector.
func (m *MockStore) SaveSample(ctx context.Context, personID string, embedding []float32) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = append(m.samples, database.FaceSample{
		ID:        int64(len(m.samples) + 1),
		PersonID:  personID,
		Embedding: append([]float32(nil), embedding...),
		Dim:       len(embedding),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// ListSamples returns all samples in insertion order.
func (m *MockStore) ListSamples(ctx context.Context) ([]database.FaceSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.FaceSample(nil), m.samples...), nil
}

// CountByPerson returns the number of stored samples for a person.
func (m *MockStore) CountByPerson(ctx context.Context, personID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, s := range m.samples {
		if s.PersonID == personID {
			count++
		}
	}
	return count, nil
}

// InsertQuery records a pending question from a student.
func (m *MockStore) InsertQuery(ctx context.Context, personID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := ""
	if p, ok := m.people[personID]; ok {
		name = p.Name
	}
	m.queries = append(m.queries, database.StudentQuery{
		ID:         m.nextQuery,
		PersonID:   personID,
		PersonName: name,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Status:     "pending",
	})
	m.nextQuery++
	return nil
}

// ListQueries returns all questions, newest first.
func (m *MockStore) ListQueries(ctx context.Context) ([]database.StudentQuery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]database.StudentQuery(nil), m.queries...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ResolveQuery marks a question as resolved.
func (m *MockStore) ResolveQuery(ctx context.Context, queryID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.queries {
		if m.queries[i].ID == queryID {
			m.queries[i].Status = "resolved"
			return nil
		}
	}
	return fmt.Errorf("query %d not found", queryID)
}
