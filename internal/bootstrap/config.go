package bootstrap

import (
	"flag"
	"fmt"
	"os"

	"github.com/jonesrussell/goingest/internal/config"
	"github.com/jonesrussell/goingest/internal/logger"
)

// LoadConfig loads configuration from the -config flag, falling back to the
// CONFIG_PATH environment variable and then config.yml.
func LoadConfig() (*config.Config, error) {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yml"
	}
	configPath := flag.String("config", defaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	level := "info"
	if cfg.Debug {
		level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:       level,
		Development: cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "goingest"),
		logger.String("version", version),
	), nil
}
