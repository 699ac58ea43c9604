package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ev-dashboard/pkg/database"
)

// Dataset source kinds
const (
	SourceFile     = "file"
	SourceURL      = "url"
	SourcePostgres = "postgres"
)

// Parser modes
const (
	ParserCSV    = "csv"
	ParserLegacy = "legacy"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds all runtime configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Dataset  DatasetConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds postgres settings, used only by the postgres source
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// DatasetConfig describes where the registration CSV comes from
type DatasetConfig struct {
	Source       string
	Path         string
	URL          string
	Table        string
	ParserMode   string
	DedupVIN     bool
	FetchTimeout time.Duration
	PageSize     int
}

// LoadConfig reads configuration from environment variables (optionally .env)
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: getEnv("DB_NAME", "ev_dashboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Dataset: DatasetConfig{
			Source:     strings.ToLower(getEnv("DATASET_SOURCE", SourceFile)),
			Path:       getEnv("DATASET_PATH", "./data/Electric_Vehicle_Population_Data.csv"),
			URL:        strings.TrimSpace(os.Getenv("DATASET_URL")),
			Table:      getEnv("DATASET_TABLE", "ev_registrations"),
			ParserMode: strings.ToLower(getEnv("DATASET_PARSER", ParserCSV)),
		},
	}

	var err error
	if cfg.Server.Port, err = parseIntEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Server.ReadTimeout, err = parseDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	if cfg.Database.Port, err = parseIntEnv("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns, err = parseIntEnv("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns, err = parseIntEnv("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxLifetime, err = parseDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Database.ConnMaxIdleTime, err = parseDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.Dataset.DedupVIN, err = parseBoolEnv("DATASET_DEDUP_VIN", false); err != nil {
		return nil, err
	}
	if cfg.Dataset.FetchTimeout, err = parseDurationEnv("DATASET_FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Dataset.PageSize, err = parseIntEnv("DATASET_PAGE_SIZE", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}

	switch c.Dataset.Source {
	case SourceFile:
		if c.Dataset.Path == "" {
			return errors.New("DATASET_PATH is required for the file source")
		}
	case SourceURL:
		if !strings.HasPrefix(c.Dataset.URL, "http://") && !strings.HasPrefix(c.Dataset.URL, "https://") {
			return fmt.Errorf("DATASET_URL must be an http(s) URL, got %q", c.Dataset.URL)
		}
	case SourcePostgres:
		if !tableNamePattern.MatchString(c.Dataset.Table) {
			return fmt.Errorf("invalid DATASET_TABLE: %q", c.Dataset.Table)
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %d", c.Database.MaxOpenConns)
		}
	default:
		return fmt.Errorf("invalid DATASET_SOURCE: %q (expected file, url or postgres)", c.Dataset.Source)
	}

	if c.Dataset.ParserMode != ParserCSV && c.Dataset.ParserMode != ParserLegacy {
		return fmt.Errorf("invalid DATASET_PARSER: %q (expected csv or legacy)", c.Dataset.ParserMode)
	}

	if c.Dataset.PageSize <= 0 {
		return fmt.Errorf("invalid DATASET_PAGE_SIZE: %d", c.Dataset.PageSize)
	}

	return nil
}

// Connection converts the settings into a pool configuration
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// ValidTableName reports whether name is a safe SQL identifier
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, val)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", key, val)
	}
	return parsed, nil
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, val)
	}
	return parsed, nil
}
