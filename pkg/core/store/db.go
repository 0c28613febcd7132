// Package store persists named scenarios (assumption document plus computed
// metrics) in Postgres. The pool is process-wide; ScenarioRepo does the work.
package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB opens the scenario store's connection pool from SCENARIO_DATABASE_URL,
// falling back to DATABASE_URL. Safe to call more than once; only the first
// call connects.
func InitDB(ctx context.Context) error {
	var err error
	once.Do(func() {
		dbURL := os.Getenv("SCENARIO_DATABASE_URL")
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			err = fmt.Errorf("neither SCENARIO_DATABASE_URL nor DATABASE_URL is set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse scenario store config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
	})
	return err
}

// GetPool returns the shared pool, nil before InitDB succeeds.
func GetPool() *pgxpool.Pool {
	return pool
}

// Close shuts the pool down. The singleton stays spent; a process restarts
// rather than reconnects.
func Close() {
	if pool != nil {
		pool.Close()
	}
}
