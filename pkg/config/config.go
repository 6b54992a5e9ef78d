package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Compliance    ComplianceConfig
	Notifications NotificationConfig
	RateLimit     RateLimitConfig
	Scheduler     SchedulerConfig
	Sponsors      SponsorConfig
	Exports       ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ComplianceConfig tunes the missing-report detector and its cache.
type ComplianceConfig struct {
	// DeadlineDay is the day of month on which a reporting period closes.
	DeadlineDay int
	// ReminderOffsetDays are days-before-deadline at which the reminder
	// tiers fire, ordered initial, follow_up, final.
	ReminderOffsetDays []int
	CacheTTL           time.Duration
}

// NotificationConfig selects and configures the outbound mail sink.
type NotificationConfig struct {
	Provider       string // "sendgrid" or "console"
	SendgridAPIKey string
	FromName       string
	FromEmail      string
	// Role inbox addresses for routed notifications.
	FieldOfficerEmail  string
	SchoolLiaisonEmail string
	AdminEmail         string
	// SubmissionFormURL is embedded in reminder messages.
	SubmissionFormURL string
}

// RateLimitConfig governs the in-memory sliding-window limiter.
type RateLimitConfig struct {
	Enabled         bool
	SubmitMax       int
	SubmitWindow    time.Duration
	SponsorMax      int
	SponsorWindow   time.Duration
	CleanupInterval time.Duration
}

// SchedulerConfig holds the cron expression for the periodic compliance sweep.
type SchedulerConfig struct {
	Enabled      bool
	SweepSpec    string
	SweepTimeout time.Duration
}

// SponsorConfig controls the sponsor-initiated update request throttle.
type SponsorConfig struct {
	CooldownDays int
}

// ExportConfig gates compliance summary exports.
type ExportConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	offsets := splitInts(v.GetString("COMPLIANCE_REMINDER_OFFSETS"))
	if len(offsets) != 3 {
		offsets = []int{14, 7, 2}
	}
	cfg.Compliance = ComplianceConfig{
		DeadlineDay:        v.GetInt("COMPLIANCE_DEADLINE_DAY"),
		ReminderOffsetDays: offsets,
		CacheTTL:           parseDuration(v.GetString("COMPLIANCE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		Provider:           v.GetString("NOTIFY_PROVIDER"),
		SendgridAPIKey:     v.GetString("SENDGRID_API_KEY"),
		FromName:           v.GetString("NOTIFY_FROM_NAME"),
		FromEmail:          v.GetString("NOTIFY_FROM_EMAIL"),
		FieldOfficerEmail:  v.GetString("NOTIFY_FIELD_OFFICER_EMAIL"),
		SchoolLiaisonEmail: v.GetString("NOTIFY_SCHOOL_LIAISON_EMAIL"),
		AdminEmail:         v.GetString("NOTIFY_ADMIN_EMAIL"),
		SubmissionFormURL:  v.GetString("NOTIFY_SUBMISSION_FORM_URL"),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:         v.GetBool("RATE_LIMIT_ENABLED"),
		SubmitMax:       v.GetInt("RATE_LIMIT_SUBMIT_MAX"),
		SubmitWindow:    parseDuration(v.GetString("RATE_LIMIT_SUBMIT_WINDOW"), 15*time.Minute),
		SponsorMax:      v.GetInt("RATE_LIMIT_SPONSOR_MAX"),
		SponsorWindow:   parseDuration(v.GetString("RATE_LIMIT_SPONSOR_WINDOW"), time.Hour),
		CleanupInterval: parseDuration(v.GetString("RATE_LIMIT_CLEANUP_INTERVAL"), 5*time.Minute),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:      v.GetBool("ENABLE_COMPLIANCE_SWEEP"),
		SweepSpec:    v.GetString("COMPLIANCE_SWEEP_CRON"),
		SweepTimeout: parseDuration(v.GetString("COMPLIANCE_SWEEP_TIMEOUT"), 5*time.Minute),
	}

	cooldown := v.GetInt("SPONSOR_COOLDOWN_DAYS")
	if cooldown <= 0 {
		cooldown = 90
	}
	cfg.Sponsors = SponsorConfig{CooldownDays: cooldown}

	cfg.Exports = ExportConfig{Enabled: v.GetBool("ENABLE_COMPLIANCE_EXPORTS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "child_reporting")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "reporting-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("COMPLIANCE_DEADLINE_DAY", 25)
	v.SetDefault("COMPLIANCE_REMINDER_OFFSETS", "14,7,2")
	v.SetDefault("COMPLIANCE_CACHE_TTL", "10m")

	v.SetDefault("NOTIFY_PROVIDER", "console")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("NOTIFY_FROM_NAME", "Tumaini Reporting")
	v.SetDefault("NOTIFY_FROM_EMAIL", "reports@tumainiaid.org")
	v.SetDefault("NOTIFY_FIELD_OFFICER_EMAIL", "field@tumainiaid.org")
	v.SetDefault("NOTIFY_SCHOOL_LIAISON_EMAIL", "school@tumainiaid.org")
	v.SetDefault("NOTIFY_ADMIN_EMAIL", "admin@tumainiaid.org")
	v.SetDefault("NOTIFY_SUBMISSION_FORM_URL", "https://reports.tumainiaid.org/submit")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_SUBMIT_MAX", 30)
	v.SetDefault("RATE_LIMIT_SUBMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_SPONSOR_MAX", 5)
	v.SetDefault("RATE_LIMIT_SPONSOR_WINDOW", "1h")
	v.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL", "5m")

	v.SetDefault("ENABLE_COMPLIANCE_SWEEP", false)
	v.SetDefault("COMPLIANCE_SWEEP_CRON", "0 9 * * *")
	v.SetDefault("COMPLIANCE_SWEEP_TIMEOUT", "5m")

	v.SetDefault("SPONSOR_COOLDOWN_DAYS", 90)
	v.SetDefault("ENABLE_COMPLIANCE_EXPORTS", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func splitInts(raw string) []int {
	parts := splitAndTrim(raw)
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			continue
		}
		result = append(result, n)
	}
	return result
}
