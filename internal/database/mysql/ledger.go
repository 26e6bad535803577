package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// Ledger is the MySQL-backed attendance store. Dedup relies on the
// unique_attendance key; a duplicate insert surfaces as error 1062 and is
// resolved by re-reading the existing row.
type Ledger struct {
	pool *Pool
}

// NewLedger creates a MySQL attendance ledger.
func NewLedger(pool *Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Mark records attendance for (person, subject, day).
func (l *Ledger) Mark(ctx context.Context, personID, subjectID string, day time.Time) (database.MarkResult, error) {
	return l.insert(ctx, personID, subjectID, day, database.OutcomeAlreadyMarked)
}

// AddManual has the same dedup semantics as Mark but reports duplicates
// as rejected.
func (l *Ledger) AddManual(ctx context.Context, personID, subjectID string, day time.Time) (database.MarkResult, error) {
	return l.insert(ctx, personID, subjectID, day, database.OutcomeRejected)
}

func (l *Ledger) insert(
	ctx context.Context, personID, subjectID string, day time.Time, dupOutcome database.MarkOutcome,
) (database.MarkResult, error) {
	now := time.Now().UTC()
	day = database.DayOf(day)
	fact := database.Fact{PersonID: personID, SubjectID: subjectID, Day: day}

	result, err := l.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (person_id, subject_id, ts, day) VALUES (?, ?, ?, ?)
	`, personID, subjectID, now, day)
	if err == nil {
		fact.Timestamp = now
		if id, err := result.LastInsertId(); err == nil {
			fact.ID = id
		}
		return database.MarkResult{Outcome: database.OutcomeCreated, Fact: fact}, nil
	}
	if !isDuplicateEntry(err) {
		return database.MarkResult{}, fmt.Errorf("insert attendance: %w", err)
	}

	// Duplicate: return the existing fact with its original timestamp.
	err = l.pool.db.QueryRowContext(ctx, `
		SELECT id, ts FROM attendance WHERE person_id = ? AND subject_id = ? AND day = ?
	`, personID, subjectID, day).Scan(&fact.ID, &fact.Timestamp)
	if err != nil {
		return database.MarkResult{}, fmt.Errorf("read existing attendance: %w", err)
	}

	return database.MarkResult{Outcome: dupOutcome, Fact: fact}, nil
}

// Remove deletes a fact outright.
func (l *Ledger) Remove(ctx context.Context, factID int64) error {
	result, err := l.pool.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = ?", factID)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attendance record %d not found", factID)
	}
	return nil
}

// BulkImport inserts records one by one with per-record failure
// accounting; the batch continues past every failure.
func (l *Ledger) BulkImport(ctx context.Context, records []database.BulkRecord) (database.BulkReport, error) {
	var report database.BulkReport

	for _, rec := range records {
		day := database.DayOf(rec.Day)
		_, err := l.pool.db.ExecContext(ctx, `
			INSERT INTO attendance (person_id, subject_id, ts, day) VALUES (?, ?, ?, ?)
		`, rec.PersonID, rec.SubjectID, time.Now().UTC(), day)

		switch {
		case err == nil:
			report.Success++
		case isDuplicateEntry(err):
			report.Duplicates++
		case isForeignKeyViolation(err):
			report.Errors = append(report.Errors, fmt.Sprintf(
				"unknown person or subject for %s/%s/%s", rec.PersonID, rec.SubjectID, day.Format("2006-01-02")))
		default:
			report.Errors = append(report.Errors, fmt.Sprintf(
				"error for %s/%s/%s: %v", rec.PersonID, rec.SubjectID, day.Format("2006-01-02"), err))
		}
	}

	return report, nil
}

const factDetailColumns = `
	a.id, a.person_id, u.name, a.subject_id, s.name, a.ts, a.day
	FROM attendance a
	JOIN users u ON a.person_id = u.person_id
	JOIN subjects s ON a.subject_id = s.subject_id
`

// ListRecent returns up to limit facts, newest first.
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]database.FactDetail, error) {
	rows, err := l.pool.db.QueryContext(ctx,
		"SELECT "+factDetailColumns+" ORDER BY a.ts DESC, a.id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query recent attendance: %w", err)
	}
	defer rows.Close()
	return scanFactDetails(rows)
}

// ListByPerson returns all facts for one person, newest first.
func (l *Ledger) ListByPerson(ctx context.Context, personID string) ([]database.FactDetail, error) {
	rows, err := l.pool.db.QueryContext(ctx,
		"SELECT "+factDetailColumns+" WHERE a.person_id = ? ORDER BY a.ts DESC, a.id DESC", personID)
	if err != nil {
		return nil, fmt.Errorf("query attendance by person: %w", err)
	}
	defer rows.Close()
	return scanFactDetails(rows)
}

// ListAll returns every fact in deterministic order.
func (l *Ledger) ListAll(ctx context.Context) ([]database.FactDetail, error) {
	rows, err := l.pool.db.QueryContext(ctx,
		"SELECT "+factDetailColumns+" ORDER BY a.ts DESC, a.id DESC")
	if err != nil {
		return nil, fmt.Errorf("query all attendance: %w", err)
	}
	defer rows.Close()
	return scanFactDetails(rows)
}

// DailySummary returns the first mark per (person, subject, day).
func (l *Ledger) DailySummary(ctx context.Context) ([]database.DailyRow, error) {
	rows, err := l.pool.db.QueryContext(ctx, `
		SELECT a.person_id, u.name, a.subject_id, s.name, a.day, MIN(a.ts)
		FROM attendance a
		JOIN users u ON a.person_id = u.person_id
		JOIN subjects s ON a.subject_id = s.subject_id
		GROUP BY a.person_id, u.name, a.subject_id, s.name, a.day
		ORDER BY a.day DESC, a.person_id, a.subject_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query daily summary: %w", err)
	}
	defer rows.Close()

	var out []database.DailyRow
	for rows.Next() {
		var r database.DailyRow
		if err := rows.Scan(&r.PersonID, &r.PersonName, &r.SubjectID, &r.SubjectName, &r.Day, &r.FirstMark); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily summary: %w", err)
	}
	return out, nil
}

// Summary returns per-subject attendance counts for one person.
func (l *Ledger) Summary(ctx context.Context, personID string) ([]database.SubjectCount, error) {
	rows, err := l.pool.db.QueryContext(ctx, `
		SELECT s.subject_id, s.name, COUNT(a.id)
		FROM subjects s
		LEFT JOIN attendance a ON s.subject_id = a.subject_id AND a.person_id = ?
		GROUP BY s.subject_id, s.name
		ORDER BY s.subject_id
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("query attendance summary: %w", err)
	}
	defer rows.Close()

	var out []database.SubjectCount
	for rows.Next() {
		var c database.SubjectCount
		if err := rows.Scan(&c.SubjectID, &c.SubjectName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return out, nil
}

// Stats returns present-days versus total-days per person and subject.
func (l *Ledger) Stats(ctx context.Context, personID string) ([]database.AttendanceStat, error) {
	query := `
		SELECT u.person_id, u.name, s.subject_id, s.name,
		       COUNT(a.id),
		       (SELECT COUNT(DISTINCT day) FROM attendance WHERE subject_id = s.subject_id)
		FROM users u
		CROSS JOIN subjects s
		LEFT JOIN attendance a ON u.person_id = a.person_id AND s.subject_id = a.subject_id
		WHERE u.role = 'student'
	`
	args := []any{}
	if personID != "" {
		query += " AND u.person_id = ?"
		args = append(args, personID)
	}
	query += `
		GROUP BY u.person_id, u.name, s.subject_id, s.name
		ORDER BY u.person_id, s.subject_id
	`

	rows, err := l.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance stats: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceStat
	for rows.Next() {
		var s database.AttendanceStat
		if err := rows.Scan(&s.PersonID, &s.PersonName, &s.SubjectID, &s.SubjectName, &s.PresentDays, &s.TotalDays); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}
