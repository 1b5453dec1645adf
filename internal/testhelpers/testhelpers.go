// Package testhelpers provides shared helpers for integration tests that run
// against a local PostgreSQL instance.
package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/goingest/internal/logger"
)

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() logger.Logger {
	return logger.NewNopLogger()
}

// RunMigrations executes the SQL migration files on a database connection.
func RunMigrations(ctx context.Context, db *sql.DB, log logger.Logger) error {
	// Resolve the migrations directory relative to this file.
	_, filename, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(filename), "..", "..", "migrations")

	migrationFile := filepath.Join(migrationsPath, "001_create_core_tables.sql")
	sqlBytes, err := os.ReadFile(migrationFile)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	if _, execErr := db.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return fmt.Errorf("execute migration: %w", execErr)
	}

	if log != nil {
		log.Info("Migrations applied successfully",
			logger.String("migration_file", migrationFile),
		)
	}

	return nil
}
