package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/goingest/internal/config"
	"github.com/jonesrussell/goingest/internal/database"
	"github.com/jonesrussell/goingest/internal/logger"
)

// SetupDatabase creates a database connection.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}
	return db, nil
}
