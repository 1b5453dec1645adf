// Package config loads service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort       = 8060
	defaultServerTimeout    = 30 * time.Second
	defaultDatabasePort     = 5432
	defaultMaxOpenConns     = 25
	defaultMaxIdleConns     = 5
	defaultConnMaxLifetime  = 5 * time.Minute
	defaultRedisAddress     = "localhost:6379"
	defaultFuzzyMaxDistance = 2
	defaultPhraseThreshold  = 0.5
	defaultWindowSize       = 500
)

type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Dedup    DedupConfig    `yaml:"dedup"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration for crawl event publishing.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"` // Feature flag for event publishing
}

// DedupConfig tunes the fuzzy-title and phrase-overlap layers. The exact
// algorithms are deliberately configuration, not hard-coded behavior.
type DedupConfig struct {
	FuzzyTitleMaxDistance  int     `yaml:"fuzzy_title_max_distance"`
	PhraseOverlapThreshold float64 `yaml:"phrase_overlap_threshold"`
	FingerprintWindow      int     `yaml:"fingerprint_window"`
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Dedup.PhraseOverlapThreshold < 0 || c.Dedup.PhraseOverlapThreshold > 1 {
		return errors.New("dedup.phrase_overlap_threshold must be between 0 and 1")
	}
	return nil
}

// Load reads the YAML file at path (if present), applies env overrides and
// defaults, and validates the result. A missing file is not an error; env vars
// and defaults carry the configuration in that case.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if unmarshalErr := yaml.Unmarshal(raw, cfg); unmarshalErr != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, unmarshalErr)
			}
		case os.IsNotExist(err):
			// fall through to env + defaults
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("APP_DEBUG"); v != "" {
		c.Debug, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.DBName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Redis.Address = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("REDIS_EVENTS_ENABLED"); v != "" {
		c.Redis.Enabled, _ = strconv.ParseBool(v)
	}
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultServerTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultServerTimeout
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultDatabasePort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.Redis.Address == "" {
		c.Redis.Address = defaultRedisAddress
	}
	if c.Dedup.FuzzyTitleMaxDistance == 0 {
		c.Dedup.FuzzyTitleMaxDistance = defaultFuzzyMaxDistance
	}
	if c.Dedup.PhraseOverlapThreshold == 0 {
		c.Dedup.PhraseOverlapThreshold = defaultPhraseThreshold
	}
	if c.Dedup.FingerprintWindow == 0 {
		c.Dedup.FingerprintWindow = defaultWindowSize
	}
}
