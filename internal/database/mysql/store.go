package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// Store bundles the MySQL repositories behind database.Store.
type Store struct {
	*Ledger
	pool *Pool
}

var _ database.Store = (*Store)(nil)

// NewStore creates the aggregate store over one connection pool.
func NewStore(pool *Pool) *Store {
	return &Store{Ledger: NewLedger(pool), pool: pool}
}

// scanFactDetails reads joined attendance rows in factDetailColumns order.
func scanFactDetails(rows *sql.Rows) ([]database.FactDetail, error) {
	var out []database.FactDetail
	for rows.Next() {
		var d database.FactDetail
		if err := rows.Scan(
			&d.ID, &d.PersonID, &d.PersonName, &d.SubjectID, &d.SubjectName, &d.Timestamp, &d.Day,
		); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return out, nil
}

// UpsertStudent creates or updates a student.
func (s *Store) UpsertStudent(ctx context.Context, personID, name, passwordHash string) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO users (person_id, name, role, password_hash) VALUES (?, ?, 'student', ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), role = 'student'
	`, personID, name, passwordHash)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// Get returns the identity or nil if absent.
func (s *Store) Get(ctx context.Context, personID string) (*database.Identity, error) {
	var id database.Identity
	err := s.pool.db.QueryRowContext(ctx, `
		SELECT person_id, name, role, password_hash FROM users WHERE person_id = ?
	`, personID).Scan(&id.PersonID, &id.Name, &id.Role, &id.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &id, nil
}

// ListStudents returns all students ordered by person id.
func (s *Store) ListStudents(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT person_id, name, role, password_hash FROM users WHERE role = 'student' ORDER BY person_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		var id database.Identity
		if err := rows.Scan(&id.PersonID, &id.Name, &id.Role, &id.PasswordHash); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

// UpdateName changes the display name only.
func (s *Store) UpdateName(ctx context.Context, personID, name string) error {
	result, err := s.pool.db.ExecContext(ctx, "UPDATE users SET name = ? WHERE person_id = ?", name, personID)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("person %s not found", personID)
	}
	return nil
}

// FindByName resolves a student by normalized display name.
func (s *Store) FindByName(ctx context.Context, name string) (*database.Identity, error) {
	students, err := s.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	target := database.NormalizePersonName(name)
	var found *database.Identity
	for i := range students {
		if database.NormalizePersonName(students[i].Name) == target {
			if found != nil {
				return nil, nil // ambiguous
			}
			found = &students[i]
		}
	}
	return found, nil
}

// EnsureDefaultAdmin seeds the default admin account when no admin exists.
func (s *Store) EnsureDefaultAdmin(ctx context.Context) error {
	var n int
	if err := s.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&n); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err := s.pool.db.ExecContext(ctx, `
		INSERT IGNORE INTO users (person_id, name, role, password_hash) VALUES (?, ?, 'admin', ?)
	`, database.DefaultAdminID, database.DefaultAdminName, database.HashPassword(database.DefaultAdminPassword))
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	return nil
}

// Upsert creates a subject or updates its name.
func (s *Store) Upsert(ctx context.Context, subjectID, name string) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO subjects (subject_id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name)
	`, subjectID, name)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

// List returns all subjects ordered by subject id.
func (s *Store) List(ctx context.Context) ([]database.Subject, error) {
	rows, err := s.pool.db.QueryContext(ctx, "SELECT subject_id, name FROM subjects ORDER BY subject_id")
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []database.Subject
	for rows.Next() {
		var sub database.Subject
		if err := rows.Scan(&sub.SubjectID, &sub.Name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

// InsertQuery records a pending question from a student.
func (s *Store) InsertQuery(ctx context.Context, personID, text string) error {
	_, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO queries (person_id, query_text, ts, status) VALUES (?, ?, NOW(), 'pending')
	`, personID, text)
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

// ListQueries returns all questions, newest first.
func (s *Store) ListQueries(ctx context.Context) ([]database.StudentQuery, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT q.id, q.person_id, u.name, q.query_text, q.ts, q.status
		FROM queries q
		JOIN users u ON q.person_id = u.person_id
		ORDER BY q.ts DESC, q.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var out []database.StudentQuery
	for rows.Next() {
		var q database.StudentQuery
		if err := rows.Scan(&q.ID, &q.PersonID, &q.PersonName, &q.Text, &q.Timestamp, &q.Status); err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queries: %w", err)
	}
	return out, nil
}

// ResolveQuery marks a question as resolved.
func (s *Store) ResolveQuery(ctx context.Context, queryID int64) error {
	result, err := s.pool.db.ExecContext(ctx, "UPDATE queries SET status = 'resolved' WHERE id = ?", queryID)
	if err != nil {
		return fmt.Errorf("resolve query: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("query %d not found", queryID)
	}
	return nil
}
