// Package mysql provides an alternative attendance store for deployments
// that keep the legacy MySQL schema. Enrollment sample storage requires
// the PostgreSQL backend; everything else is supported here.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MySQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MySQL connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn+"?parseTime=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS users (
		person_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		role ENUM('admin','student') NOT NULL,
		password_hash VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		subject_id VARCHAR(255) PRIMARY KEY,
		name VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		person_id VARCHAR(255) NOT NULL,
		subject_id VARCHAR(255) NOT NULL,
		ts DATETIME NOT NULL,
		day DATE NOT NULL,
		UNIQUE KEY unique_attendance (person_id, subject_id, day),
		FOREIGN KEY (person_id) REFERENCES users(person_id),
		FOREIGN KEY (subject_id) REFERENCES subjects(subject_id)
	)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		person_id VARCHAR(255) NOT NULL,
		query_text TEXT NOT NULL,
		ts DATETIME NOT NULL,
		status ENUM('pending','resolved') NOT NULL DEFAULT 'pending',
		FOREIGN KEY (person_id) REFERENCES users(person_id)
	)`,
}

// Migrate creates the legacy-compatible schema when missing.
func (p *Pool) Migrate(ctx context.Context) error {
	for _, stmt := range ddl {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}

// MySQL error numbers used to classify per-record failures.
const (
	codeDuplicateEntry      = 1062
	codeForeignKeyViolation = 1452
)

// isDuplicateEntry reports whether err is a duplicate key violation.
func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == codeDuplicateEntry
}

// isForeignKeyViolation reports whether err is a referential violation.
func isForeignKeyViolation(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == codeForeignKeyViolation
}
