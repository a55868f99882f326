package config

import (
	"os"
	"path/filepath"
	"testing"

	"roomcast/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigJSON = `{
	"env": "development",
	"platform": {
		"api_base_url": "https://graph.example.com/v19.0",
		"phone_number_id": "123456789"
	},
	"database": {
		"path": "/var/lib/roomcast/roomcast.db"
	},
	"storage": {
		"endpoint": "minio.internal:9000",
		"bucket": "roomcast-media"
	},
	"redis": {
		"addr": "redis.internal:6379"
	}
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "https://graph.example.com/v19.0", cfg.Platform.APIBaseURL)
	assert.Equal(t, "123456789", cfg.Platform.PhoneNumberID)
	assert.Equal(t, "/var/lib/roomcast/roomcast.db", cfg.Database.Path)
	assert.False(t, cfg.IsProduction())

	// Unset sections fall back to defaults.
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultPlatformTimeoutSec, cfg.Platform.TimeoutSec)
	assert.Equal(t, int64(constants.DefaultMaxMediaBytes), cfg.Media.MaxBytes)
	assert.Equal(t, constants.DefaultMediaCategory, cfg.Media.Category)
	assert.Equal(t, "roomcast:", cfg.Redis.ChannelPrefix)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
}

func TestLoadConfigMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{
			name:    "no platform url",
			config:  `{"platform": {"phone_number_id": "1"}, "database": {"path": "x"}, "storage": {"endpoint": "e", "bucket": "b"}, "redis": {"addr": "a"}}`,
			wantErr: ErrMissingPlatformURL,
		},
		{
			name:    "no phone number id",
			config:  `{"platform": {"api_base_url": "https://x"}, "database": {"path": "x"}, "storage": {"endpoint": "e", "bucket": "b"}, "redis": {"addr": "a"}}`,
			wantErr: ErrMissingPhoneNumberID,
		},
		{
			name:    "no database path",
			config:  `{"platform": {"api_base_url": "https://x", "phone_number_id": "1"}, "storage": {"endpoint": "e", "bucket": "b"}, "redis": {"addr": "a"}}`,
			wantErr: ErrMissingDBPath,
		},
		{
			name:    "no storage bucket",
			config:  `{"platform": {"api_base_url": "https://x", "phone_number_id": "1"}, "database": {"path": "x"}, "storage": {"endpoint": "e"}, "redis": {"addr": "a"}}`,
			wantErr: ErrMissingStorageConfig,
		},
		{
			name:    "no redis addr",
			config:  `{"platform": {"api_base_url": "https://x", "phone_number_id": "1"}, "database": {"path": "x"}, "storage": {"endpoint": "e", "bucket": "b"}}`,
			wantErr: ErrMissingRedisAddr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.config))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	t.Run("nonexistent", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, `{"env": `))
		assert.Error(t, err)
	})

	t.Run("traversal path", func(t *testing.T) {
		_, err := LoadConfig("../../etc/passwd")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config path")
	})
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("ROOMCAST_ENV", "staging")
	t.Setenv("ROOMCAST_PLATFORM_API_URL", "https://override.example.com")
	t.Setenv("ROOMCAST_PLATFORM_ACCESS_TOKEN", "tok-123")
	t.Setenv("ROOMCAST_WEBHOOK_SECRET", "env-webhook-secret")
	t.Setenv("ROOMCAST_VERIFY_TOKEN", "env-verify")
	t.Setenv("ROOMCAST_DB_PATH", "/env/roomcast.db")
	t.Setenv("ROOMCAST_STORAGE_ACCESS_KEY", "ak")
	t.Setenv("ROOMCAST_STORAGE_SECRET_KEY", "sk")
	t.Setenv("ROOMCAST_REDIS_PASSWORD", "redispass")
	t.Setenv("ROOMCAST_PUSH_SERVER_KEY", "pushkey")
	t.Setenv("ROOMCAST_PORT", "9090")

	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, "https://override.example.com", cfg.Platform.APIBaseURL)
	assert.Equal(t, "tok-123", cfg.Platform.AccessToken)
	assert.Equal(t, "env-webhook-secret", cfg.Platform.WebhookSecret)
	assert.Equal(t, "env-verify", cfg.Platform.VerifyToken)
	assert.Equal(t, "/env/roomcast.db", cfg.Database.Path)
	assert.Equal(t, "ak", cfg.Storage.AccessKey)
	assert.Equal(t, "sk", cfg.Storage.SecretKey)
	assert.Equal(t, "redispass", cfg.Redis.Password)
	assert.Equal(t, "pushkey", cfg.Push.ServerKey)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigInvalidPortOverride(t *testing.T) {
	t.Setenv("ROOMCAST_PORT", "not-a-port")

	cfg, err := LoadConfig(writeConfig(t, validConfigJSON))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
}

func TestLoadConfigProductionSecurity(t *testing.T) {
	productionConfig := `{
		"env": "production",
		"platform": {
			"api_base_url": "https://graph.example.com/v19.0",
			"phone_number_id": "123456789"
		},
		"database": {"path": "/var/lib/roomcast/roomcast.db"},
		"storage": {"endpoint": "minio.internal:9000", "bucket": "roomcast-media"},
		"redis": {"addr": "redis.internal:6379"}
	}`

	t.Run("missing webhook secret", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, productionConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook secret is required")
	})

	t.Run("short webhook secret", func(t *testing.T) {
		t.Setenv("ROOMCAST_WEBHOOK_SECRET", "too-short")
		_, err := LoadConfig(writeConfig(t, productionConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("missing access token", func(t *testing.T) {
		t.Setenv("ROOMCAST_WEBHOOK_SECRET", "0123456789abcdef0123456789abcdef")
		_, err := LoadConfig(writeConfig(t, productionConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access token is required")
	})

	t.Run("debug logging rejected", func(t *testing.T) {
		t.Setenv("ROOMCAST_WEBHOOK_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("ROOMCAST_PLATFORM_ACCESS_TOKEN", "tok")
		debugConfig := `{
			"env": "production",
			"log_level": "debug",
			"platform": {
				"api_base_url": "https://graph.example.com/v19.0",
				"phone_number_id": "123456789"
			},
			"database": {"path": "/var/lib/roomcast/roomcast.db"},
			"storage": {"endpoint": "minio.internal:9000", "bucket": "roomcast-media"},
			"redis": {"addr": "redis.internal:6379"}
		}`
		_, err := LoadConfig(writeConfig(t, debugConfig))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "debug logging")
	})

	t.Run("fully configured", func(t *testing.T) {
		t.Setenv("ROOMCAST_WEBHOOK_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("ROOMCAST_PLATFORM_ACCESS_TOKEN", "tok")
		cfg, err := LoadConfig(writeConfig(t, productionConfig))
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}
