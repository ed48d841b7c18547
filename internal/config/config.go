// Package config provides configuration management for the behavior diff tool.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Baseline storage backends.
const (
	BaselineBackendFile     = "file"
	BaselineBackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Chain      ChainConfig
	Baseline   BaselineConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Server     ServerConfig
	Logging    LoggingConfig
}

// ChainConfig holds chain data provider configuration
type ChainConfig struct {
	RPCPrimary        string
	RPCSecondary      string
	RequestsPerSecond int           // RPC throttle applied to every outgoing call
	RequestTimeout    time.Duration // per-RPC-call timeout
}

// BaselineConfig selects and configures the baseline store backend
type BaselineConfig struct {
	Backend string // "file" or "postgres"
	Dir     string // file backend: directory holding one JSON file per address
}

// PostgresConfig holds Postgres configuration for the postgres baseline backend
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL returns the connection URL used by migrations.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig holds the optional contract-code cache configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration // how long contract-code classifications are cached
}

// ClickHouseConfig holds the optional snapshot archive configuration
type ClickHouseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Chain: ChainConfig{
			RPCPrimary:        getEnv("RPC_PRIMARY", "https://mainnet.base.org"),
			RPCSecondary:      getEnv("RPC_SECONDARY", ""),
			RequestsPerSecond: getEnvAsInt("RPC_REQUESTS_PER_SECOND", 10),
			RequestTimeout:    getEnvAsDuration("RPC_REQUEST_TIMEOUT", 30*time.Second),
		},
		Baseline: BaselineConfig{
			Backend: getEnv("BASELINE_BACKEND", BaselineBackendFile),
			Dir:     getEnv("BASELINE_DIR", "data/baselines"),
		},
		Postgres: PostgresConfig{
			Host:           getEnv("POSTGRES_HOST", "localhost"),
			Port:           getEnv("POSTGRES_PORT", "5432"),
			Database:       getEnv("POSTGRES_DB", "agent_diff"),
			User:           getEnv("POSTGRES_USER", "agentdiff"),
			Password:       getEnv("POSTGRES_PASSWORD", ""),
			MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_CONTRACT_TTL", 24*time.Hour),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
			Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
			Port:     getEnv("CLICKHOUSE_PORT", "9000"),
			Database: getEnv("CLICKHOUSE_DB", "agent_diff"),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate rejects configurations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Chain.RPCPrimary == "" {
		return fmt.Errorf("RPC_PRIMARY must not be empty")
	}
	if c.Chain.RequestsPerSecond <= 0 {
		return fmt.Errorf("RPC_REQUESTS_PER_SECOND must be positive")
	}
	switch c.Baseline.Backend {
	case BaselineBackendFile, BaselineBackendPostgres:
	default:
		return fmt.Errorf("unknown baseline backend: %s", c.Baseline.Backend)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
