package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

// QueryRepository stores student questions.
type QueryRepository struct {
	pool *Pool
}

// NewQueryRepository creates a new PostgreSQL query repository.
func NewQueryRepository(pool *Pool) *QueryRepository {
	return &QueryRepository{pool: pool}
}

// InsertQuery records a pending question from a student.
func (r *QueryRepository) InsertQuery(ctx context.Context, personID, text string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO queries (person_id, query_text, ts, status) VALUES ($1, $2, $3, 'pending')
	`, personID, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert query: %w", err)
	}
	return nil
}

// ListQueries returns all questions, newest first.
func (r *QueryRepository) ListQueries(ctx context.Context) ([]database.StudentQuery, error) {
	rows, err := r.pool.Query(ctx, `
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
func (r *QueryRepository) ResolveQuery(ctx context.Context, queryID int64) error {
	result, err := r.pool.Exec(ctx, "UPDATE queries SET status = 'resolved' WHERE id = $1", queryID)
	if err != nil {
		return fmt.Errorf("resolve query: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("query %d not found", queryID)
	}
	return nil
}
