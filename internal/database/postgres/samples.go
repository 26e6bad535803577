package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/pgvector/pgvector-go"
)

// SampleDim is the fixed dimension of enrollment patch vectors
// (64x64 normalized grayscale patches).
const SampleDim = 4096

// SampleRepository stores normalized enrollment patch vectors.
type SampleRepository struct {
	pool *Pool
}

// NewSampleRepository creates a new PostgreSQL face sample repository.
func NewSampleRepository(pool *Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

// SaveSample stores one enrollment vector for a person.
func (r *SampleRepository) SaveSample(ctx context.Context, personID string, embedding []float32) error {
	if len(embedding) != SampleDim {
		return fmt.Errorf("expected %d-dimensional embedding, got %d", SampleDim, len(embedding))
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO face_samples (person_id, embedding, dim) VALUES ($1, $2, $3)
	`, personID, pgvector.NewVector(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("save face sample: %w", err)
	}
	return nil
}

// ListSamples returns all enrollment samples ordered by insertion.
func (r *SampleRepository) ListSamples(ctx context.Context) ([]database.FaceSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, person_id, embedding, dim, created_at FROM face_samples ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list face samples: %w", err)
	}
	defer rows.Close()

	var out []database.FaceSample
	for rows.Next() {
		var s database.FaceSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.PersonID, &vec, &s.Dim, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face sample: %w", err)
		}
		s.Embedding = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face samples: %w", err)
	}
	return out, nil
}

// CountByPerson returns the number of stored samples for a person.
func (r *SampleRepository) CountByPerson(ctx context.Context, personID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_samples WHERE person_id = $1", personID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count face samples: %w", err)
	}
	return count, nil
}
