package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "")
	t.Setenv("FAL_LIVE", "")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.True(t, cfg.Development())
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, developmentSecret, cfg.Auth.JWTSecret)
	require.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	require.False(t, cfg.TryOn.Live)
	require.False(t, cfg.TryOn.RequireAPIKey)
	require.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowedOrigins)
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	require.False(t, cfg.Development())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_EXP_MIN", "60")
	t.Setenv("TRYON_REQUIRE_API_KEY", "true")
	t.Setenv("FAL_LIVE", "1")
	t.Setenv("FAL_KEY", "fal-key")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	require.True(t, cfg.TryOn.RequireAPIKey)
	require.True(t, cfg.TryOn.Live)
	require.Equal(t, "fal-key", cfg.TryOn.ProviderKey)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSAllowedOrigins)
	require.Equal(t, 5, cfg.HTTP.RateLimitRPS)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("PORT", "not-a-number")
	t.Setenv("FAL_LIVE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.False(t, cfg.TryOn.Live)
}
