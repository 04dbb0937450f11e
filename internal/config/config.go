package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port          string
	BaseURL       string
	SecureCookies bool

	// Database
	SQLiteDBPath string

	// Auth
	ResetSecret   string
	ResetTokenTTL time.Duration
	SessionTTL    time.Duration
	RememberTTL   time.Duration
	SessionSweep  time.Duration

	// Mail / AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	MailFrom     string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8081"),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetwatch.db"),

		ResetSecret:   getEnv("RESET_SECRET", ""),
		ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", 30*time.Minute),
		SessionTTL:    getEnvDuration("SESSION_TTL", 12*time.Hour),
		RememberTTL:   getEnvDuration("REMEMBER_TTL", 30*24*time.Hour),
		SessionSweep:  getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetwatch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "outbound_mail"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@budgetwatch.com"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.ResetSecret == "" {
		errs = append(errs, "RESET_SECRET must be set so reset tokens survive restarts")
	} else if len(c.ResetSecret) < 32 {
		errs = append(errs, fmt.Sprintf("reset secret too short (%d bytes): must be at least 32", len(c.ResetSecret)))
	}

	if c.ResetTokenTTL < time.Minute || c.ResetTokenTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid reset token TTL %v: must be between 1 minute and 24 hours", c.ResetTokenTTL))
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RememberTTL < c.SessionTTL {
		errs = append(errs, fmt.Sprintf("invalid remember TTL %v: must be at least the session TTL (%v)", c.RememberTTL, c.SessionTTL))
	}
	if c.SessionSweep < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session sweep interval %v: must be at least 1 minute", c.SessionSweep))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !strings.Contains(c.MailFrom, "@") {
		errs = append(errs, fmt.Sprintf("invalid mail sender '%s'", c.MailFrom))
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid base URL '%s': %v", c.BaseURL, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
