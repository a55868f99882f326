package constants

// Default server configuration values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default platform API configuration values
const (
	DefaultPlatformTimeoutSec = 30
	DefaultPlatformRetryCount = 3
)

// Default media pipeline configuration values
const (
	DefaultMaxMediaBytes           = 64 << 20 // 64 MiB
	DefaultMediaDownloadTimeoutSec = 30
	DefaultMediaURLTTLHours        = 24
	DefaultMediaCategory           = "chat-media"
)

// SyntheticMediaPrefix marks a media reference as a synthetic test fixture.
// References with this prefix never hit the platform media API and resolve
// to PlaceholderMediaPayload instead. Rejected outright in production.
const SyntheticMediaPrefix = "synthetic:"

// PlaceholderMediaPayload is a 1x1 transparent PNG stored in place of media
// bytes when a synthetic reference is ingested or a download fails outside
// production.
var PlaceholderMediaPayload = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// PlaceholderMediaContentType is the content type of PlaceholderMediaPayload.
const PlaceholderMediaContentType = "image/png"

// Default push provider configuration values
const (
	DefaultPushTimeoutSec = 10
)

// Default fan-out configuration values
const (
	DefaultFanoutTimeoutSec = 15
)

// DefaultRoomTitle is used when first contact carries no usable display name.
const DefaultRoomTitle = "New Conversation"

// Encryption parameters for at-rest field encryption
const (
	EncryptionSalt       = "roomcast-field-encryption-v1"
	EncryptionLookupSalt = "roomcast-lookup-v1"
)
