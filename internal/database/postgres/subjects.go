package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// SubjectRepository provides PostgreSQL-backed subject storage.
type SubjectRepository struct {
	pool *Pool
}

// NewSubjectRepository creates a new PostgreSQL subject repository.
func NewSubjectRepository(pool *Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

// Upsert creates a subject or updates its name.
func (r *SubjectRepository) Upsert(ctx context.Context, subjectID, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO subjects (subject_id, name) VALUES ($1, $2)
		ON CONFLICT (subject_id) DO UPDATE SET name = EXCLUDED.name
	`, subjectID, name)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

// List returns all subjects ordered by subject id.
func (r *SubjectRepository) List(ctx context.Context) ([]database.Subject, error) {
	rows, err := r.pool.Query(ctx, "SELECT subject_id, name FROM subjects ORDER BY subject_id")
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []database.Subject
	for rows.Next() {
		var s database.Subject
		if err := rows.Scan(&s.SubjectID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}
