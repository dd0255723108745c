package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACADEX_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "Acadex API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.True(t, cfg.AuthEnabled)
	require.Equal(t, "acadex", cfg.StorageNamespace)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, 1024, cfg.CacheSize)
	require.Equal(t, 30, cfg.UploadRateLimit)
	require.Equal(t, "acadex", cfg.RealtimeChannel)
	require.Equal(t, 30*time.Second, cfg.StreamKeepAlive)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACADEX_AUTH_ENABLED", "false")
	t.Setenv("ACADEX_APP_PORT", ":9090")
	t.Setenv("ACADEX_STORAGE_NAMESPACE", "/school-a/")
	t.Setenv("ACADEX_CACHE_TTL", "90s")
	t.Setenv("ACADEX_CACHE_SIZE", "-4")
	t.Setenv("ACADEX_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.AuthEnabled)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "school-a", cfg.StorageNamespace)
	require.Equal(t, 90*time.Second, cfg.CacheTTL)
	require.Equal(t, 1024, cfg.CacheSize)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadRequiresSecretWhenAuthEnabled(t *testing.T) {
	t.Setenv("ACADEX_AUTH_ENABLED", "true")
	t.Setenv("ACADEX_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("ACADEX_JWT_SECRET", "secret")
	t.Setenv("ACADEX_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}
