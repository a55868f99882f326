package models

import (
	"errors"
	"time"
)

// MessageKind is the closed set of canonical message content kinds.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindMedia       MessageKind = "media"
	KindLocation    MessageKind = "location"
	KindContacts    MessageKind = "contacts"
	KindReaction    MessageKind = "reaction"
	KindInteractive MessageKind = "interactive"
	KindButton      MessageKind = "button"
	KindOrder       MessageKind = "order"
	KindReferral    MessageKind = "referral"
	KindSystem      MessageKind = "system"
)

// MessageStatus is the delivery state of a message. Delivered, read and
// failed are terminal; sent is not. Status callbacks overwrite the current
// value without an ordering guard, matching the platform's callback contract.
type MessageStatus string

const (
	StatusReceived  MessageStatus = "received"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// ErrMessageNotFound is returned by status updates addressing a platform
// message identifier that was never persisted.
var ErrMessageNotFound = errors.New("message not found")

// MediaInfo carries the media sub-fields of a message with kind "media".
type MediaInfo struct {
	Kind     string `json:"kind"`
	SourceID string `json:"sourceId,omitempty"`
	Locator  string `json:"locator,omitempty"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Message is the canonical record for one chat event, inbound or outbound.
// SenderID nil means the external party authored it. PlatformMsgID, when
// present, is unique across the table and acts as the idempotency key.
type Message struct {
	ID                string                 `json:"id"`
	RoomID            int64                  `json:"roomId"`
	SenderID          *int64                 `json:"senderId,omitempty"`
	Kind              MessageKind            `json:"kind"`
	Body              string                 `json:"body"`
	PlatformMsgID     *string                `json:"platformMsgId,omitempty"`
	ReplyToPlatformID *string                `json:"replyToPlatformId,omitempty"`
	ReactionEmoji     *string                `json:"reactionEmoji,omitempty"`
	ReactionTargetID  *string                `json:"reactionTargetId,omitempty"`
	Media             *MediaInfo             `json:"media,omitempty"`
	Status            MessageStatus          `json:"status"`
	StatusAt          *time.Time             `json:"statusAt,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// StatusHistoryEntry is one append-only audit record of a status callback.
type StatusHistoryEntry struct {
	ID         int64     `json:"id"`
	MessageID  string    `json:"messageId"`
	Status     string    `json:"status"`
	Recipient  string    `json:"recipient,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EventResult is the outcome of processing one embedded webhook event.
type EventResult struct {
	Kind          string `json:"kind"`
	PlatformMsgID string `json:"platformMsgId,omitempty"`
	MessageID     string `json:"messageId,omitempty"`
	Success       bool   `json:"success"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WebhookSummary is the body of the webhook acknowledgement response.
type WebhookSummary struct {
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Results   []EventResult `json:"results"`
}
