package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Backends accepted by DATA_BACKEND.
var validBackends = []string{"memory", "sqlite", "postgres", "sealed"}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string

	// SQL backends
	SQLiteDBPath string
	PostgresDSN  string

	// Sealed file backend
	SealedDir        string
	SealedPassphrase string

	// Memory backend seed directory
	DataDirectory string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions and read models
	SessionIdleTimeout time.Duration
	DashboardCacheTTL  time.Duration
	RateLimitPerMinute int

	// Alerts
	AlertSchedule      string
	AlertDueWithinDays int
	SMTPAddr           string
	SMTPUsername       string
	SMTPPassword       string
	AlertEmailFrom     string
	AlertEmailTo       []string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/trackit.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		SealedDir:        getEnv("SEALED_DIR", "./data/sealed"),
		SealedPassphrase: getEnv("SEALED_PASSPHRASE", ""),

		DataDirectory: getEnv("DATA_DIR", "data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "trackit"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "trackit_changes"),

		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		DashboardCacheTTL:  getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		AlertSchedule:      getEnv("ALERT_SCHEDULE", "0 8 * * *"),
		AlertDueWithinDays: getEnvInt("ALERT_DUE_WITHIN_DAYS", 3),
		SMTPAddr:           getEnv("SMTP_ADDR", ""),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		AlertEmailFrom:     getEnv("ALERT_EMAIL_FROM", ""),
		AlertEmailTo:       getEnvList("ALERT_EMAIL_TO"),
	}

	return cfg
}

// EmailAlertsEnabled reports whether an SMTP notifier should be built.
func (c *Config) EmailAlertsEnabled() bool {
	return c.SMTPAddr != "" && len(c.AlertEmailTo) > 0
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresDSN); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid POSTGRES_DSN: must be a postgres:// or postgresql:// URL")
		}
	case "sealed":
		if c.SealedDir == "" {
			errors = append(errors, "SEALED_DIR cannot be empty when using sealed backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SessionIdleTimeout < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session idle timeout %v: must be at least 1 minute", c.SessionIdleTimeout))
	}
	if c.DashboardCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid dashboard cache TTL %v: must be at least 1 second", c.DashboardCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if _, err := cron.ParseStandard(c.AlertSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid alert schedule '%s': %v", c.AlertSchedule, err))
	}
	if c.AlertDueWithinDays < 0 || c.AlertDueWithinDays > 31 {
		errors = append(errors, fmt.Sprintf("invalid alert due window %d: must be between 0 and 31 days", c.AlertDueWithinDays))
	}

	if c.SMTPAddr != "" {
		if _, err := mail.ParseAddress(c.AlertEmailFrom); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ALERT_EMAIL_FROM '%s': %v", c.AlertEmailFrom, err))
		}
		if len(c.AlertEmailTo) == 0 {
			errors = append(errors, "ALERT_EMAIL_TO is required when SMTP_ADDR is set")
		}
		for _, to := range c.AlertEmailTo {
			if _, err := mail.ParseAddress(to); err != nil {
				errors = append(errors, fmt.Sprintf("invalid alert recipient '%s': %v", to, err))
			}
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
