package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	LogLevel    string
	Environment string
	HTTPAddr    string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	// NoReplyUserID is the host-platform user whose identity outgoing mail
	// is sent from.
	NoReplyUserID int64
	// ManagerRoleID is the cohort-manager role in the host platform.
	ManagerRoleID int64
	// SiteManagerRoleID is the manager role at system context, accepted for
	// all-cohorts digests.
	SiteManagerRoleID int64

	// DigestCronSpec schedules in-process digest runs from the web server.
	// Empty disables the schedule (run the digest CLI from cron instead).
	DigestCronSpec        string
	DigestCourseID        int64
	DigestSinceDays       int
	DigestYearsBack       int
	DigestMinIntervalDays int
	DigestDryRun          bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}
	cfg.SMTPPort = envOrDefault("SMTP_PORT", "465")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	cfg.NoReplyUserID, err = envInt64("NOREPLY_USERID", 493)
	if err != nil {
		return nil, err
	}
	cfg.ManagerRoleID, err = envInt64("MANAGER_ROLEID", 10)
	if err != nil {
		return nil, err
	}
	cfg.SiteManagerRoleID, err = envInt64("SITE_MANAGER_ROLEID", 1)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", "development"))
	cfg.HTTPAddr = envOrDefault("HTTP_ADDR", ":8080")

	cfg.DigestCronSpec = os.Getenv("DIGEST_CRON_SPEC")
	cfg.DigestCourseID, err = envInt64("DIGEST_COURSEID", 0)
	if err != nil {
		return nil, err
	}
	if cfg.DigestCronSpec != "" && cfg.DigestCourseID <= 0 {
		return nil, fmt.Errorf("DIGEST_CRON_SPEC is set but DIGEST_COURSEID is missing")
	}
	cfg.DigestSinceDays, err = envInt("DIGEST_SINCE_DAYS", 40)
	if err != nil {
		return nil, err
	}
	cfg.DigestYearsBack, err = envInt("DIGEST_YEARS_BACK", 1)
	if err != nil {
		return nil, err
	}
	cfg.DigestMinIntervalDays, err = envInt("DIGEST_MIN_INTERVAL_DAYS", 0)
	if err != nil {
		return nil, err
	}
	cfg.DigestDryRun = os.Getenv("DIGEST_DRYRUN") == "1"

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	v, err := envInt64(key, int64(fallback))
	return int(v), err
}
