// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for the ops API middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MailConfig provides settings for the inbound IMAP mailbox.
type MailConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	GetIMAPFetchPerSecond() float64
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AlertConfig provides settings for operator failure alerts.
type AlertConfig interface {
	GetAlertsEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertFromName() string
	GetAlertFromAddress() string
	GetAlertToAddress() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketMessageArchive() string
}

// UTMSyncConfig provides settings for the downstream reporting sync.
type UTMSyncConfig interface {
	GetUTMSyncURL() string
	GetUTMSyncAPIKey() string
}

// IngestConfig provides tunables for the ingestion engine.
type IngestConfig interface {
	GetAliasCacheTTL() time.Duration
	GetChannelMapPath() string
	GetBackfillPageSize() int
}

// =============================================================================
// Config struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	IMAPHost           string
	IMAPPort           int
	IMAPUsername       string
	IMAPPassword       string
	IMAPFolder         string
	IMAPFetchPerSecond float64

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	AlertsEnabled    bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	AlertFromName    string
	AlertFromAddress string
	AlertToAddress   string

	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketMessageArchive string

	UTMSyncURL    string
	UTMSyncAPIKey string

	AliasCacheTTL    time.Duration
	ChannelMapPath   string
	BackfillPageSize int
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	alertsEnabled := strings.EqualFold(getEnv("ALERTS_ENABLED", "false"), "true")

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		IMAPHost:           getEnv("IMAP_HOST", ""),
		IMAPPort:           getEnvInt("IMAP_PORT", 993),
		IMAPUsername:       getEnv("IMAP_USERNAME", ""),
		IMAPPassword:       getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:         getEnv("IMAP_FOLDER", "INBOX"),
		IMAPFetchPerSecond: getEnvFloat("IMAP_FETCH_PER_SECOND", 5),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "ingest"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 5),

		AlertsEnabled:    alertsEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		AlertFromName:    getEnv("ALERT_FROM_NAME", "Booking Sync"),
		AlertFromAddress: getEnv("ALERT_FROM_ADDRESS", ""),
		AlertToAddress:   getEnv("ALERT_TO_ADDRESS", ""),

		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketMessageArchive: getEnv("MINIO_BUCKET_MESSAGE_ARCHIVE", "message-archive"),

		UTMSyncURL:    getEnv("UTM_SYNC_URL", ""),
		UTMSyncAPIKey: getEnv("UTM_SYNC_API_KEY", ""),

		AliasCacheTTL:    mustDuration(getEnv("ALIAS_CACHE_TTL", "60s")),
		ChannelMapPath:   getEnv("CHANNEL_MAP_PATH", "channelmap.yaml"),
		BackfillPageSize: getEnvInt("BACKFILL_PAGE_SIZE", 100),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if alertsEnabled && (cfg.SMTPHost == "" || cfg.AlertToAddress == "" || cfg.AlertFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST, ALERT_FROM_ADDRESS and ALERT_TO_ADDRESS are required when ALERTS_ENABLED is true")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetIMAPHost() string            { return c.IMAPHost }
func (c *Config) GetIMAPPort() int               { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string        { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string        { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string          { return c.IMAPFolder }
func (c *Config) GetIMAPFetchPerSecond() float64 { return c.IMAPFetchPerSecond }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetAlertsEnabled() bool      { return c.AlertsEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetAlertFromName() string    { return c.AlertFromName }
func (c *Config) GetAlertFromAddress() string { return c.AlertFromAddress }
func (c *Config) GetAlertToAddress() string   { return c.AlertToAddress }

func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketMessageArchive() string { return c.MinioBucketMessageArchive }

func (c *Config) GetUTMSyncURL() string    { return c.UTMSyncURL }
func (c *Config) GetUTMSyncAPIKey() string { return c.UTMSyncAPIKey }

func (c *Config) GetAliasCacheTTL() time.Duration { return c.AliasCacheTTL }
func (c *Config) GetChannelMapPath() string       { return c.ChannelMapPath }
func (c *Config) GetBackfillPageSize() int        { return c.BackfillPageSize }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
