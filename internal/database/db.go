// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the shared connection pool. Nil when persistence is disabled
// (no DATABASE_URL); callers in this package treat a nil pool as a no-op.
var DB *pgxpool.Pool

// Connect opens the pool from a DSN and verifies connectivity. An empty
// DSN leaves persistence disabled without error.
func Connect(dsn string) error {
	if dsn == "" {
		log.Printf("database: no DSN configured, lobby audit persistence disabled")
		return nil
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	log.Printf("database: connected")
	return nil
}

// Close releases the pool if one was opened.
func Close() {
	if DB != nil {
		DB.Close()
	}
}
