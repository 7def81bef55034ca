package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlxadapter "scorekeeper/adapters/sqlx"
	"scorekeeper/api/httpapi"
	"scorekeeper/ratelimit"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"SCOREKEEPER_ENV"`
	Profile     string      `json:"profile" env:"SCOREKEEPER_PROFILE"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Webhook endpoints notified of new entries
	Webhooks []string `json:"webhooks,omitempty" env:"SCOREKEEPER_WEBHOOKS"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"SCOREKEEPER_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"SCOREKEEPER_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"SCOREKEEPER_SERVER_CORS_ORIGIN"`
	MaxBodyBytes      int64         `json:"max_body_bytes" env:"SCOREKEEPER_SERVER_MAX_BODY_BYTES"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"SCOREKEEPER_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"SCOREKEEPER_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"SCOREKEEPER_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"SCOREKEEPER_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SCOREKEEPER_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string             `json:"adapter" env:"SCOREKEEPER_STORAGE_ADAPTER"`
	File    FileConfig         `json:"file,omitempty"`
	SQL     sqlxadapter.Config `json:"sql,omitempty"`
}

// FileConfig holds flat-file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"SCOREKEEPER_STORAGE_FILE_PATH"`
}

// RateLimitConfig holds submission rate limiting configuration
type RateLimitConfig struct {
	Enabled      bool                  `json:"enabled" env:"SCOREKEEPER_RATE_LIMIT_ENABLED"`
	Store        string                `json:"store" env:"SCOREKEEPER_RATE_LIMIT_STORE"`
	MaxPerWindow int                   `json:"max_per_window" env:"SCOREKEEPER_RATE_LIMIT_MAX_PER_WINDOW"`
	Window       time.Duration         `json:"window" env:"SCOREKEEPER_RATE_LIMIT_WINDOW"`
	FailOpen     bool                  `json:"fail_open" env:"SCOREKEEPER_RATE_LIMIT_FAIL_OPEN"`
	Redis        ratelimit.RedisConfig `json:"redis,omitempty"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"SCOREKEEPER_LOG_LEVEL"`
	Format     string            `json:"format" env:"SCOREKEEPER_LOG_FORMAT"`
	Output     string            `json:"output" env:"SCOREKEEPER_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "",
			MaxBodyBytes:      httpapi.DefaultMaxBodyBytes,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "file",
			File: FileConfig{
				Path: "./data/leaderboard.txt",
			},
			SQL: sqlxadapter.DefaultConfig(sqlxadapter.DriverPostgres),
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Store:        "memory",
			MaxPerWindow: ratelimit.DefaultMaxPerWindow,
			Window:       ratelimit.DefaultWindow,
			FailOpen:     true,
			Redis:        ratelimit.DefaultRedisConfig(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("rate limit config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	// Redact sensitive information
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.RateLimit.Redis.Password != "" {
		cfg.RateLimit.Redis.Password = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
