package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mysql"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
)

// openStore connects to the configured backend and returns the
// aggregate store with a close function.
func openStore(cfg *config.Config) (database.Store, func(), error) {
	switch cfg.Database.Driver {
	case "", "postgres":
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return postgres.NewStore(pool), func() { _ = pool.Close() }, nil

	case "mysql":
		pool, err := mysql.NewPool(cfg.Database.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize MySQL: %w", err)
		}
		if err := pool.Migrate(context.Background()); err != nil {
			_ = pool.Close()
			return nil, nil, fmt.Errorf("failed to migrate MySQL schema: %w", err)
		}
		return mysql.NewStore(pool), func() { _ = pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// openPostgres connects to PostgreSQL regardless of the configured
// driver. Enrollment samples live in pgvector columns, so enroll and
// train always need this backend.
func openPostgres(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.Driver == "mysql" {
		return nil, fmt.Errorf("enrollment requires the postgres driver, got %q", cfg.Database.Driver)
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	return pool, nil
}
