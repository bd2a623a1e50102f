package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN     string
	JWTSecret string

	LogLevel string

	RateLimitRPM       int
	RedeemRateLimitRPM int
	SessionDays        int

	InviteTTL        time.Duration
	InviteCodeLength int

	NATSURL string

	// OTelEndpoint is the OTLP/gRPC collector address (host:port). Empty
	// disables trace and metric export.
	OTelEndpoint string
	OTelInsecure bool

	SweepSchedule      string
	AuditRetentionDays int
}

const (
	minInviteCodeLength = 8
	maxInviteCodeLength = 32
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("PD_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("PD_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("PD_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("PD_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PD_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("PD_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("PD_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PD_DB_DSN is required")
	}
	if _, _, err := ParseDSN(cfg.DBDSN); err != nil {
		return nil, err
	}

	cfg.JWTSecret = os.Getenv("PD_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PD_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("PD_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("PD_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("PD_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("PD_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}

	cfg.RedeemRateLimitRPM, err = getEnvIntOrDefault("PD_REDEEM_RATE_LIMIT_RPM", 20)
	if err != nil {
		return nil, err
	}
	if cfg.RedeemRateLimitRPM <= 0 {
		return nil, fmt.Errorf("PD_REDEEM_RATE_LIMIT_RPM must be positive (got: %d)", cfg.RedeemRateLimitRPM)
	}

	cfg.SessionDays, err = getEnvIntOrDefault("PD_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.SessionDays <= 0 {
		return nil, fmt.Errorf("PD_SESSION_DAYS must be positive (got: %d)", cfg.SessionDays)
	}

	cfg.InviteTTL, err = getEnvDurationOrDefault("PD_INVITE_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	if cfg.InviteTTL < 0 {
		return nil, fmt.Errorf("PD_INVITE_TTL must not be negative (got: %s)", cfg.InviteTTL)
	}

	cfg.InviteCodeLength, err = getEnvIntOrDefault("PD_INVITE_CODE_LENGTH", 10)
	if err != nil {
		return nil, err
	}
	if cfg.InviteCodeLength < minInviteCodeLength || cfg.InviteCodeLength > maxInviteCodeLength {
		return nil, fmt.Errorf("PD_INVITE_CODE_LENGTH must be between %d and %d (got: %d)",
			minInviteCodeLength, maxInviteCodeLength, cfg.InviteCodeLength)
	}

	cfg.NATSURL = strings.TrimSpace(os.Getenv("PD_NATS_URL"))

	cfg.OTelEndpoint = strings.TrimSpace(os.Getenv("PD_OTEL_ENDPOINT"))
	cfg.OTelInsecure, err = getEnvBoolOrDefault("PD_OTEL_INSECURE", false)
	if err != nil {
		return nil, err
	}

	cfg.SweepSchedule = getEnvOrDefault("PD_SWEEP_SCHEDULE", "*/15 * * * *")
	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		return nil, fmt.Errorf("PD_SWEEP_SCHEDULE is not a valid cron expression: %w", err)
	}

	cfg.AuditRetentionDays, err = getEnvIntOrDefault("PD_AUDIT_RETENTION_DAYS", 365)
	if err != nil {
		return nil, err
	}
	if cfg.AuditRetentionDays <= 0 {
		return nil, fmt.Errorf("PD_AUDIT_RETENTION_DAYS must be positive (got: %d)", cfg.AuditRetentionDays)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// ParseDSN splits a database DSN into its driver name and the value the
// driver expects. postgres DSNs are passed through; sqlite://path yields path.
func ParseDSN(dsn string) (driver, target string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("PD_DB_DSN sqlite path is empty")
		}
		return "sqlite", path, nil
	}
	return "", "", fmt.Errorf("PD_DB_DSN must start with postgres:// or sqlite://")
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"PD_ENV":                   c.Env,
		"PD_HTTP_ADDR":             c.HTTPAddr,
		"PD_BASE_URL":              c.BaseURL,
		"PD_DB_DSN":                redactDSN(c.DBDSN),
		"PD_JWT_SECRET":            "[REDACTED]",
		"PD_LOG_LEVEL":             c.LogLevel,
		"PD_RATE_LIMIT_RPM":        strconv.Itoa(c.RateLimitRPM),
		"PD_REDEEM_RATE_LIMIT_RPM": strconv.Itoa(c.RedeemRateLimitRPM),
		"PD_SESSION_DAYS":          strconv.Itoa(c.SessionDays),
		"PD_INVITE_TTL":            c.InviteTTL.String(),
		"PD_INVITE_CODE_LENGTH":    strconv.Itoa(c.InviteCodeLength),
		"PD_NATS_URL":              redactDSN(c.NATSURL),
		"PD_SWEEP_SCHEDULE":        c.SweepSchedule,
		"PD_AUDIT_RETENTION_DAYS":  strconv.Itoa(c.AuditRetentionDays),
		"PD_OTEL_ENDPOINT":         c.OTelEndpoint,
		"PD_OTEL_INSECURE":         strconv.FormatBool(c.OTelInsecure),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 168h (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (got: %q)", key, value)
	}
	return parsed, nil
}
