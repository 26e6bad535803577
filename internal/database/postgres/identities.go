package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// UpsertStudent creates or updates a student. The password hash is only
// written on insert; an existing account keeps its credentials.
func (r *IdentityRepository) UpsertStudent(ctx context.Context, personID, name, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (person_id, name, role, password_hash)
		VALUES ($1, $2, 'student', $3)
		ON CONFLICT (person_id) DO UPDATE SET name = EXCLUDED.name, role = 'student'
	`, personID, name, passwordHash)
	if err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// Get returns the identity or nil if absent.
func (r *IdentityRepository) Get(ctx context.Context, personID string) (*database.Identity, error) {
	var id database.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT person_id, name, role, password_hash FROM users WHERE person_id = $1
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
func (r *IdentityRepository) ListStudents(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT person_id, name, role, password_hash FROM users
		WHERE role = 'student' ORDER BY person_id
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
func (r *IdentityRepository) UpdateName(ctx context.Context, personID, name string) error {
	result, err := r.pool.Exec(ctx, "UPDATE users SET name = $1 WHERE person_id = $2", name, personID)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("person %s not found", personID)
	}
	return nil
}

// FindByName resolves a student by normalized display name. Comparison is
// done in Go so the normalization matches database.NormalizePersonName
// exactly; returns nil when zero or multiple students match.
func (r *IdentityRepository) FindByName(ctx context.Context, name string) (*database.Identity, error) {
	students, err := r.ListStudents(ctx)
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
func (r *IdentityRepository) EnsureDefaultAdmin(ctx context.Context) error {
	var n int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE role = 'admin'").Scan(&n); err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (person_id, name, role, password_hash) VALUES ($1, $2, 'admin', $3)
		ON CONFLICT (person_id) DO NOTHING
	`, database.DefaultAdminID, database.DefaultAdminName, database.HashPassword(database.DefaultAdminPassword))
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	return nil
}
