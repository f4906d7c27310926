package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/firma")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, time.Duration(0), cfg.SignerTokenTTL)
	assert.Equal(t, "dev-secret-change-in-production", cfg.JWTSecret)
	assert.Equal(t, "admin123", cfg.AdminPassword)
	assert.Equal(t, "@daily", cfg.IntegritySweepCron)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/firma")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.EqualError(t, err, "JWT_SECRET is required in production")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_PASSWORD", "")
	_, err = Load()
	assert.EqualError(t, err, "ADMIN_PASSWORD is required in production")
}

func TestLoad_MinioRequiresEndpoint(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/firma")
	t.Setenv("STORAGE_DRIVER", "minio")
	t.Setenv("MINIO_ENDPOINT", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err = Load()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "notanumber")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_SLICE", "a, b ,c")

	assert.Equal(t, 7, getEnvAsInt("X_INT", 7))
	assert.True(t, getEnvAsBool("X_BOOL", false))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("X_SLICE", nil))
}
