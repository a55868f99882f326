package service

import "strings"

// Standard log field names, shared with the HTTP middleware
const (
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldMethod     = "method"
	LogFieldURL        = "url"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
	LogFieldStatusCode = "status_code"
	LogFieldDuration   = "duration_ms"
	LogFieldSize       = "size_bytes"

	LogFieldRoomID      = "room_id"
	LogFieldMessageID   = "message_id"
	LogFieldPlatformID  = "platform_msg_id"
	LogFieldMessageType = "message_type"
	LogFieldIdentity    = "identity"
	LogFieldStatus      = "status"
	LogFieldErrorCode   = "error_code"
)

// phoneMaskLength is how many trailing digits survive masking.
const phoneMaskLength = 4

// MaskIdentity masks an external identity for logging, keeping only the
// last digits.
func MaskIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	if len(identity) > phoneMaskLength {
		return "***" + identity[len(identity)-phoneMaskLength:]
	}
	return strings.Repeat("*", len(identity))
}
