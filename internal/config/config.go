package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	AppURL      string

	// Database
	DatabaseURL string

	// Admin console
	AdminUsername      string
	AdminPassword      string
	JWTSecret          string
	JWTExpirationHours int

	// Storage
	StorageDriver  string
	StoragePath    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Background Workers
	WorkerCount        int
	NotifyTimeout      time.Duration
	IntegritySweepCron string

	// CORS
	AllowedOrigins []string

	// Email (Resend)
	EnableEmailNotifications bool
	ResendAPIKey             string
	FromEmail                string
	OrganizationName         string

	// SMS (TextMeBot)
	TextMeBotAPIKey string
	TextMeBotURL    string

	// Signing workflow
	OTPTTL         time.Duration
	SignerTokenTTL time.Duration
	OTPRateLimit   int
	OTPRateWindow  time.Duration

	// Redis (optional, rate limiting)
	RedisURL string

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		Environment:              getEnv("ENVIRONMENT", "development"),
		AppURL:                   strings.TrimRight(getEnv("APP_URL", ""), "/"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		AdminUsername:            getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:            getEnv("ADMIN_PASSWORD", ""),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTExpirationHours:       getEnvAsInt("JWT_EXPIRATION_HOURS", 12),
		StorageDriver:            getEnv("STORAGE_DRIVER", "local"),
		StoragePath:              getEnv("STORAGE_PATH", "./storage"),
		MinioEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:              getEnv("MINIO_BUCKET", "contracts"),
		MinioUseSSL:              getEnvAsBool("MINIO_USE_SSL", false),
		WorkerCount:              getEnvAsInt("WORKER_COUNT", 5),
		NotifyTimeout:            time.Duration(getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 10)) * time.Second,
		IntegritySweepCron:       getEnv("INTEGRITY_SWEEP_CRON", "@daily"),
		AllowedOrigins:           getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		EnableEmailNotifications: getEnvAsBool("ENABLE_EMAIL_NOTIFICATIONS", true),
		ResendAPIKey:             getEnv("RESEND_API_KEY", ""),
		FromEmail:                getEnv("FROM_EMAIL", "noreply@firma.app"),
		OrganizationName:         getEnv("ORGANIZATION_NAME", "Firma Electrónica"),
		TextMeBotAPIKey:          getEnv("TEXTMEBOT_API_KEY", ""),
		TextMeBotURL:             getEnv("TEXTMEBOT_URL", "https://api.textmebot.com/send.php"),
		OTPTTL:                   time.Duration(getEnvAsInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		SignerTokenTTL:           time.Duration(getEnvAsInt("SIGNER_TOKEN_TTL_HOURS", 0)) * time.Hour,
		OTPRateLimit:             getEnvAsInt("OTP_RATE_LIMIT", 5),
		OTPRateWindow:            time.Duration(getEnvAsInt("OTP_RATE_WINDOW_SECONDS", 60)) * time.Second,
		RedisURL:                 getEnv("REDIS_URL", ""),
		SentryDSN:                getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageDriver != "local" && cfg.StorageDriver != "minio" {
		return nil, fmt.Errorf("STORAGE_DRIVER must be 'local' or 'minio', got %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "minio" && cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
	}

	if cfg.Environment == "production" {
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		if cfg.AdminPassword == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD is required in production")
		}
	}

	// Development defaults
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
	}

	return cfg, nil
}

// EmailConfigured reports whether outgoing email can be sent
func (c *Config) EmailConfigured() bool {
	return c.EnableEmailNotifications && c.ResendAPIKey != "" && c.FromEmail != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
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

// getEnvAsBool reads an environment variable as boolean
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

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
