package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Search      SearchConfig      `yaml:"search"`
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Reindex     ReindexConfig     `yaml:"reindex"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                   string   `yaml:"port"`
	CORSOrigins            []string `yaml:"cors_origins"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // mysql, postgres, memory
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	Memory   MemoryConfig   `yaml:"memory"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MemoryConfig contains in-memory store settings
type MemoryConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// SearchConfig contains listing search settings
type SearchConfig struct {
	Backend      string `yaml:"backend"` // database, meilisearch
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	AccountID    uint64 `yaml:"account_id"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
}

// ReindexConfig contains search index rebuild settings
type ReindexConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a cron spec; DailyRunTime ("HH:MM") is used when it is empty
	Schedule     string `yaml:"schedule"`
	DailyRunTime string `yaml:"daily_run_time"`
	BatchSize    int    `yaml:"batch_size"`
	RunOnStart   bool   `yaml:"run_on_start"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // text, json
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			CORSOrigins:            []string{"http://localhost:5176"},
			ShutdownTimeoutSeconds: 10,
		},
		Database: DatabaseConfig{
			Memory: MemoryConfig{SeedFile: "config/seed.yaml"},
		},
		Search: SearchConfig{
			Backend:      "database",
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		Meilisearch: MeilisearchConfig{
			Index: "listings",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			RequestsPerHour:   3600,
		},
		Reindex: ReindexConfig{
			Enabled:      false,
			DailyRunTime: "03:00",
			BatchSize:    500,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads an optional .env file, then the YAML file named by CONFIG_PATH,
// then fills anything left empty from the environment.
func Load(defaultPath string) (*Config, string, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	path := GetEnv("CONFIG_PATH", defaultPath)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	cfg.ApplyEnv()
	return cfg, path, cfg.Validate()
}

// ApplyEnv fills unset values from environment variables, then defaults.
// Values from the YAML file always win.
func (c *Config) ApplyEnv() {
	c.Server.Port = GetEnvOrConfig(c.Server.Port, "PORT", "8084")
	c.Database.Type = strings.ToLower(GetEnvOrConfig(c.Database.Type, "DB_TYPE", "memory"))
	c.Search.Backend = strings.ToLower(GetEnvOrConfig(c.Search.Backend, "SEARCH_BACKEND", "database"))
	c.Logging.Level = GetEnvOrConfig(c.Logging.Level, "LOG_LEVEL", "info")

	m := &c.Database.MySQL
	m.Host = GetEnvOrConfig(m.Host, "DB_HOST", "mysql")
	m.Port = getEnvIntOrConfig(m.Port, "DB_PORT", 3306)
	m.User = GetEnvOrConfig(m.User, "DB_USER", "realestate_user")
	m.Password = GetEnvOrConfig(m.Password, "DB_PASSWORD", "realestate_pass")
	m.Database = GetEnvOrConfig(m.Database, "DB_NAME", "realestate_db")

	p := &c.Database.Postgres
	p.Host = GetEnvOrConfig(p.Host, "DB_HOST", "db")
	p.Port = getEnvIntOrConfig(p.Port, "DB_PORT", 5432)
	p.User = GetEnvOrConfig(p.User, "DB_USER", "realestate_user")
	p.Password = GetEnvOrConfig(p.Password, "DB_PASSWORD", "realestate_pass")
	p.Database = GetEnvOrConfig(p.Database, "DB_NAME", "realestate_db")

	c.Meilisearch.Host = GetEnvOrConfig(c.Meilisearch.Host, "MEILISEARCH_HOST", "http://meilisearch:7700")
	c.Meilisearch.APIKey = GetEnvOrConfig(c.Meilisearch.APIKey, "MEILISEARCH_KEY", "")
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	switch c.Search.Backend {
	case "database", "meilisearch":
	default:
		return fmt.Errorf("unknown search backend %q", c.Search.Backend)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("invalid search limits: default %d, max %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Reindex.Enabled && c.Database.Type == "memory" {
		return fmt.Errorf("reindex needs a mysql or postgres database")
	}
	return nil
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// CronSpec returns the cron specification for the reindex job.
// "02:00" -> "0 2 * * *"; an unparsable time falls back to 03:00.
func (c *ReindexConfig) CronSpec() string {
	if c.Schedule != "" {
		return c.Schedule
	}

	var hour, minute int
	n, _ := fmt.Sscanf(c.DailyRunTime, "%d:%d", &hour, &minute)
	if n == 2 && hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
	return "0 3 * * *"
}

// GetEnv returns the environment variable or a default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvOrConfig returns config value if set, otherwise falls back to environment variable, then default
func GetEnvOrConfig(configValue, envKey, defaultValue string) string {
	if configValue != "" {
		return configValue
	}
	return GetEnv(envKey, defaultValue)
}

func getEnvIntOrConfig(configValue int, envKey string, defaultValue int) int {
	if configValue != 0 {
		return configValue
	}
	if n, err := strconv.Atoi(os.Getenv(envKey)); err == nil {
		return n
	}
	return defaultValue
}
