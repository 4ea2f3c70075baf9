package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BaseURL      string // Public base URL used in emailed links (default: http://localhost:8080)
	DatabaseFile string // Path to SQLite database file (default: ./gatehouse.db)
	PepperFile   string // Path to password pepper file (default: ./pepper)

	AdminEmails []string // Accounts promoted to ADMIN at creation time

	SessionTTL      time.Duration // Absolute session lifetime (default: 30 days)
	VerificationTTL time.Duration // Verification/reset token lifetime (default: 1h)
	AutoSignIn      bool          // Establish a session after email verification (default: true)

	SMTPHost     string // SMTP relay host; empty means log-only mail delivery
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	GoogleClientID string // Optional: enables "google" federated sign-in

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-record sweep interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		BaseURL:      getEnvOrDefault("GATEHOUSE_BASE_URL", "http://localhost:8080"),
		DatabaseFile: getEnvOrDefault("GATEHOUSE_DATABASE_FILE", "gatehouse.db"),
		PepperFile:   getEnvOrDefault("GATEHOUSE_PEPPER_FILE", "pepper"),

		AdminEmails: splitList(os.Getenv("ADMIN_EMAILS")),

		SessionTTL:      getEnvDurationOrDefault("SESSION_TTL", 30*24*time.Hour),
		VerificationTTL: getEnvDurationOrDefault("VERIFICATION_TTL", time.Hour),
		AutoSignIn:      getEnvBoolOrDefault("AUTO_SIGN_IN", true),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// Development reports whether the service runs with the widened dev domain
// allow-list and non-secure cookies.
func (c Config) Development() bool {
	return c.Env == "dev"
}

// splitList parses a semicolon-separated list, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
