// Package config provides configuration management for the form autopilot
// application. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Browser    BrowserConfig
	Automation AutomationConfig
	Connectors ConnectorsConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
	SchemaTTL      time.Duration
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	Headless          bool
	NavigationTimeout time.Duration
	SettleDelay       time.Duration // buffer for client-side hydration
	PostSubmitDelay   time.Duration
	SubmitWaitTimeout time.Duration
	ScreenshotDir     string
}

// AutomationConfig holds fill/submit orchestration configuration
type AutomationConfig struct {
	MaxAttempts      int
	EnableProfiling  bool
	BatchConcurrency int
}

// ConnectorsConfig holds job board connector configuration
type ConnectorsConfig struct {
	BundesagenturAPIKey string
	BundesagenturURL    string
	RemotiveURL         string
	RemoteOKURL         string
	RequestsPerSecond   float64
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
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "form_autopilot"),
				User:           getEnv("POSTGRES_USER", "autopilot"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
				SchemaTTL:      getEnvAsDuration("REDIS_SCHEMA_TTL", 24*time.Hour),
			},
		},
		Browser: BrowserConfig{
			Headless:          getEnvAsBool("BROWSER_HEADLESS", true),
			NavigationTimeout: getEnvAsDuration("BROWSER_NAV_TIMEOUT", 30*time.Second),
			SettleDelay:       getEnvAsDuration("BROWSER_SETTLE_DELAY", 2*time.Second),
			PostSubmitDelay:   getEnvAsDuration("BROWSER_POST_SUBMIT_DELAY", 2*time.Second),
			SubmitWaitTimeout: getEnvAsDuration("BROWSER_SUBMIT_WAIT_TIMEOUT", 10*time.Second),
			ScreenshotDir:     getEnv("BROWSER_SCREENSHOT_DIR", "./screenshots"),
		},
		Automation: AutomationConfig{
			MaxAttempts:      getEnvAsInt("AUTOMATION_MAX_ATTEMPTS", 3),
			EnableProfiling:  getEnvAsBool("AUTOMATION_ENABLE_PROFILING", false),
			BatchConcurrency: getEnvAsInt("AUTOMATION_BATCH_CONCURRENCY", 4),
		},
		Connectors: ConnectorsConfig{
			BundesagenturAPIKey: getEnv("BA_API_KEY", "jobboerse-jobsuche"),
			BundesagenturURL:    getEnv("BA_API_URL", "https://rest.arbeitsagentur.de/jobboerse/jobsuche-service/pc/v4/jobs"),
			RemotiveURL:         getEnv("REMOTIVE_API_URL", "https://remotive.com/api/remote-jobs"),
			RemoteOKURL:         getEnv("REMOTEOK_API_URL", "https://remoteok.com/api"),
			RequestsPerSecond:   getEnvAsFloat("CONNECTOR_REQUESTS_PER_SECOND", 2.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
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

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
