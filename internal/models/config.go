package models

// Config holds the application configuration
type Config struct {
	Env      string         `json:"env"`
	LogLevel string         `json:"log_level"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Platform PlatformConfig `json:"platform"`
	Media    MediaConfig    `json:"media"`
	Storage  StorageConfig  `json:"storage"`
	Redis    RedisConfig    `json:"redis"`
	Push     PushConfig     `json:"push"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
}

// IsProduction reports whether the service runs with production policy:
// signature verification mandatory, synthetic media rejected.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig holds HTTP server configurations
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// PlatformConfig holds messaging-platform API configurations. The access
// token, webhook secret and verify token are taken from the environment,
// never from the config file.
type PlatformConfig struct {
	APIBaseURL    string `json:"api_base_url"`
	PhoneNumberID string `json:"phone_number_id"`
	TimeoutSec    int    `json:"timeoutSec"`
	RetryCount    int    `json:"retry_count"`
	AccessToken   string `json:"-"`
	WebhookSecret string `json:"-"`
	VerifyToken   string `json:"-"`
}

// MediaConfig holds media pipeline configurations
type MediaConfig struct {
	MaxBytes           int64  `json:"maxBytes"`
	DownloadTimeoutSec int    `json:"downloadTimeoutSec"`
	URLTTLHours        int    `json:"urlTTLHours"`
	Category           string `json:"category"`
}

// StorageConfig holds blob store configurations. Credentials come from the
// environment.
type StorageConfig struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"useSSL"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
}

// RedisConfig holds real-time channel configurations
type RedisConfig struct {
	Addr          string `json:"addr"`
	DB            int    `json:"db"`
	ChannelPrefix string `json:"channelPrefix"`
	Password      string `json:"-"`
}

// PushConfig holds push provider configurations. The server key comes from
// the environment.
type PushConfig struct {
	Endpoint   string `json:"endpoint"`
	TimeoutSec int    `json:"timeoutSec"`
	ServerKey  string `json:"-"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry configurations
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
