package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("PLATFORM_BASE_URL", "http://platform.local/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PlatformSourceAPI, cfg.Platform.Source)
	assert.Equal(t, "http://platform.local", cfg.Platform.BaseURL)
	assert.Equal(t, 0, cfg.Transport.DialRetries)
	assert.Equal(t, 10*time.Minute, cfg.Chat.ProfileCacheTTL)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadPostgresNeedsDSN(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("PLATFORM_SOURCE", "postgres")
	t.Setenv("DATABASE_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsWildcardOriginInProduction(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://app.example.com,*")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://app.example.com")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadRejectsUnboundedRetries(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("TRANSPORT_DIAL_RETRIES", "50")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("ORIGINS", " https://a.example , ,https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvAsList("ORIGINS", nil))
}
