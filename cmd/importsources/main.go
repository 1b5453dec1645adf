// Command importsources bulk-registers sources from an Excel spreadsheet.
// Usage: go run cmd/importsources/main.go -file sources.xlsx [-config config.yml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jonesrussell/goingest/internal/config"
	"github.com/jonesrussell/goingest/internal/database"
	"github.com/jonesrussell/goingest/internal/importer"
	"github.com/jonesrussell/goingest/internal/logger"
	"github.com/jonesrussell/goingest/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	filePath := flag.String("file", "", "Path to the xlsx file to import")
	flag.Parse()

	if *filePath == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: "info", Development: cfg.Debug})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	imp := importer.New(repository.NewSourceRepository(db, log), log)
	result, err := imp.ImportFile(context.Background(), *filePath)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf("Imported %s: %d created, %d existing, %d errors\n",
		*filePath, result.Created, result.Existing, len(result.Errors))
	for _, rowErr := range result.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Error)
	}

	return nil
}
