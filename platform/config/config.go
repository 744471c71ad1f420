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

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetAppBaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// ScoringConfig provides tunables for the lead scoring pipeline.
// The weights are product decisions, not derived constants; they are
// configurable so they can be re-tuned against real outcome data.
type ScoringConfig interface {
	GetScoringWeights() (behavioral, demographic, financial, temporal, psychographic float64)
	GetRetrainMinSamples() int
	GetUseClassifier() bool
}

// CRMConfig provides settings for the external CRM sync client.
type CRMConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIToken() string
	IsCRMEnabled() bool
}

// StorageConfig provides settings for MinIO S3-compatible storage
// used by spreadsheet exports.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketExports() string
	IsMinIOEnabled() bool
}

// WebhookConfig provides settings for inbound lead-capture webhooks.
type WebhookConfig interface {
	GetWebhookAPIKey() string
}

// NotificationConfig provides settings for internal agent notifications.
type NotificationConfig interface {
	GetHotLeadAlertEmail() string
	GetHotLeadAlertName() string
	GetHotLeadAlertTiers() []string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	ScoringWeightBehavioral    float64
	ScoringWeightDemographic   float64
	ScoringWeightFinancial     float64
	ScoringWeightTemporal      float64
	ScoringWeightPsychographic float64
	RetrainMinSamples          int
	UseClassifier              bool

	CRMBaseURL  string
	CRMAPIToken string

	MinIOEndpoint      string
	MinIOAccessKey     string
	MinIOSecretKey     string
	MinIOUseSSL        bool
	MinioBucketExports string

	WebhookAPIKey string

	HotLeadAlertEmail string
	HotLeadAlertName  string
	HotLeadAlertTiers []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }
func (c *Config) GetResetTokenTTL() time.Duration   { return c.ResetTokenTTL }
func (c *Config) GetAppBaseURL() string             { return c.AppBaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ScoringConfig implementation
func (c *Config) GetScoringWeights() (float64, float64, float64, float64, float64) {
	return c.ScoringWeightBehavioral, c.ScoringWeightDemographic, c.ScoringWeightFinancial,
		c.ScoringWeightTemporal, c.ScoringWeightPsychographic
}
func (c *Config) GetRetrainMinSamples() int { return c.RetrainMinSamples }
func (c *Config) GetUseClassifier() bool    { return c.UseClassifier }

// CRMConfig implementation
func (c *Config) GetCRMBaseURL() string  { return c.CRMBaseURL }
func (c *Config) GetCRMAPIToken() string { return c.CRMAPIToken }
func (c *Config) IsCRMEnabled() bool     { return c.CRMBaseURL != "" }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string      { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string     { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string     { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool          { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketExports() string { return c.MinioBucketExports }
func (c *Config) IsMinIOEnabled() bool          { return c.MinIOEndpoint != "" }

// WebhookConfig implementation
func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// NotificationConfig implementation
func (c *Config) GetHotLeadAlertEmail() string   { return c.HotLeadAlertEmail }
func (c *Config) GetHotLeadAlertName() string    { return c.HotLeadAlertName }
func (c *Config) GetHotLeadAlertTiers() []string { return c.HotLeadAlertTiers }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:  mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		RefreshTokenTTL: mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		ResetTokenTTL:   mustDuration(getEnv("RESET_TOKEN_TTL", "2h")),

		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:4200"),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Patrick - efficity"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "patrick@efficity.example"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		ScoringWeightBehavioral:    mustFloat(getEnv("SCORING_WEIGHT_BEHAVIORAL", "0.35")),
		ScoringWeightDemographic:   mustFloat(getEnv("SCORING_WEIGHT_DEMOGRAPHIC", "0.25")),
		ScoringWeightFinancial:     mustFloat(getEnv("SCORING_WEIGHT_FINANCIAL", "0.20")),
		ScoringWeightTemporal:      mustFloat(getEnv("SCORING_WEIGHT_TEMPORAL", "0.15")),
		ScoringWeightPsychographic: mustFloat(getEnv("SCORING_WEIGHT_PSYCHOGRAPHIC", "0.05")),
		RetrainMinSamples:          mustInt(getEnv("SCORING_RETRAIN_MIN_SAMPLES", "50")),
		UseClassifier:              strings.EqualFold(getEnv("SCORING_USE_CLASSIFIER", "false"), "true"),

		CRMBaseURL:  getEnv("CRM_BASE_URL", ""),
		CRMAPIToken: getEnv("CRM_API_TOKEN", ""),

		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:        strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketExports: getEnv("MINIO_BUCKET_EXPORTS", "lead-exports"),

		WebhookAPIKey: getEnv("WEBHOOK_API_KEY", ""),

		HotLeadAlertEmail: getEnv("HOT_LEAD_ALERT_EMAIL", ""),
		HotLeadAlertName:  getEnv("HOT_LEAD_ALERT_NAME", "Patrick"),
		HotLeadAlertTiers: splitCSV(getEnv("HOT_LEAD_ALERT_TIERS", "Platinum,Gold")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	sum := cfg.ScoringWeightBehavioral + cfg.ScoringWeightDemographic + cfg.ScoringWeightFinancial +
		cfg.ScoringWeightTemporal + cfg.ScoringWeightPsychographic
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("scoring weights must sum to 1.0, got %.3f", sum)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}
