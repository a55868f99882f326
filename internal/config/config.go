package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"roomcast/internal/constants"
	"roomcast/internal/models"
	"roomcast/internal/security"
)

var (
	ErrMissingPlatformURL   = models.ConfigError{Message: "missing platform API base URL"}
	ErrMissingPhoneNumberID = models.ConfigError{Message: "missing platform phone number ID"}
	ErrMissingDBPath        = models.ConfigError{Message: "missing database path"}
	ErrMissingStorageConfig = models.ConfigError{Message: "missing blob storage endpoint or bucket"}
	ErrMissingRedisAddr     = models.ConfigError{Message: "missing redis address"}
)

// LoadConfig reads the JSON config file, applies environment overrides for
// secrets and validates the result. Secrets never live in the file.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateLocalPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Platform.APIBaseURL == "" {
		return ErrMissingPlatformURL
	}
	if c.Platform.PhoneNumberID == "" {
		return ErrMissingPhoneNumberID
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
		return ErrMissingStorageConfig
	}
	if c.Redis.Addr == "" {
		return ErrMissingRedisAddr
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Platform.TimeoutSec <= 0 {
		c.Platform.TimeoutSec = constants.DefaultPlatformTimeoutSec
	}
	if c.Platform.RetryCount <= 0 {
		c.Platform.RetryCount = constants.DefaultPlatformRetryCount
	}

	if c.Media.MaxBytes <= 0 {
		c.Media.MaxBytes = constants.DefaultMaxMediaBytes
	}
	if c.Media.DownloadTimeoutSec <= 0 {
		c.Media.DownloadTimeoutSec = constants.DefaultMediaDownloadTimeoutSec
	}
	if c.Media.URLTTLHours <= 0 {
		c.Media.URLTTLHours = constants.DefaultMediaURLTTLHours
	}
	if c.Media.Category == "" {
		c.Media.Category = constants.DefaultMediaCategory
	}

	if c.Redis.ChannelPrefix == "" {
		c.Redis.ChannelPrefix = "roomcast:"
	}

	if c.Push.TimeoutSec <= 0 {
		c.Push.TimeoutSec = constants.DefaultPushTimeoutSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if env := os.Getenv("ROOMCAST_ENV"); env != "" {
		c.Env = env
	}
	if url := os.Getenv("ROOMCAST_PLATFORM_API_URL"); url != "" {
		c.Platform.APIBaseURL = url
	}
	if token := os.Getenv("ROOMCAST_PLATFORM_ACCESS_TOKEN"); token != "" {
		c.Platform.AccessToken = token
	}
	if secret := os.Getenv("ROOMCAST_WEBHOOK_SECRET"); secret != "" {
		c.Platform.WebhookSecret = secret
	}
	if token := os.Getenv("ROOMCAST_VERIFY_TOKEN"); token != "" {
		c.Platform.VerifyToken = token
	}
	if path := os.Getenv("ROOMCAST_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if key := os.Getenv("ROOMCAST_STORAGE_ACCESS_KEY"); key != "" {
		c.Storage.AccessKey = key
	}
	if key := os.Getenv("ROOMCAST_STORAGE_SECRET_KEY"); key != "" {
		c.Storage.SecretKey = key
	}
	if pass := os.Getenv("ROOMCAST_REDIS_PASSWORD"); pass != "" {
		c.Redis.Password = pass
	}
	if key := os.Getenv("ROOMCAST_PUSH_SERVER_KEY"); key != "" {
		c.Push.ServerKey = key
	}
	if port := os.Getenv("ROOMCAST_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
}

// validateSecurity enforces the production posture after overrides landed.
func validateSecurity(c *models.Config) error {
	if c.IsProduction() {
		if c.Platform.WebhookSecret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set ROOMCAST_WEBHOOK_SECRET environment variable)"}
		}
		if len(c.Platform.WebhookSecret) < 32 {
			return models.ConfigError{Message: "webhook secret must be at least 32 characters long"}
		}
		if c.Platform.AccessToken == "" {
			return models.ConfigError{Message: "platform access token is required in production (set ROOMCAST_PLATFORM_ACCESS_TOKEN environment variable)"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production"}
		}
	} else if c.Platform.WebhookSecret == "" {
		fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set, signature verification is disabled. Set ROOMCAST_WEBHOOK_SECRET for security.\n")
	}

	return nil
}
