// Package config loads the service configuration from .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultPort       = "8080"
	defaultTokenTTL   = 30 * 24 * time.Hour
	defaultRateLimit  = 100
	defaultRateWindow = time.Minute
	defaultIssuer     = "kanso-habit-stats"
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrUnknownDriver    = errors.New("DB_DRIVER must be postgres or sqlite")
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	RateLimit  int
	RateWindow time.Duration

	// Location decides which calendar day a completion belongs to.
	Location *time.Location
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}

	cfg := &Config{
		Port:     getEnvString("PORT", defaultPort),
		GinMode:  getEnvString("GIN_MODE", "debug"),
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		DBDriver:   getEnvString("DB_DRIVER", DriverPostgres),
		DBHost:     getEnvString("DB_HOST", "localhost"),
		DBPort:     getEnvString("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		SQLitePath: getEnvString("SQLITE_PATH", "kanso.db"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvString("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnvString("JWT_ISSUER", defaultIssuer),
		TokenTTL:  getEnvDuration("TOKEN_TTL", defaultTokenTTL),

		RateLimit:  getEnvInt("RATE_LIMIT", defaultRateLimit),
		RateWindow: getEnvDuration("RATE_WINDOW", defaultRateWindow),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}

	if cfg.DBDriver != DriverPostgres && cfg.DBDriver != DriverSQLite {
		return nil, fmt.Errorf("%w: got %q", ErrUnknownDriver, cfg.DBDriver)
	}

	loc, err := loadLocation(os.Getenv("STATS_TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	return cfg, nil
}

// PostgresDSN builds the connection string for the pgx driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "720h"; a bare number is read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
