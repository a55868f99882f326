package service

import (
	"context"
	"time"

	"roomcast/internal/media"
	"roomcast/internal/models"
	"roomcast/pkg/cloudapi"
	"roomcast/pkg/push"
)

// Database is the persistence surface the ingestion pipeline needs.
// Implemented by internal/database.
type Database interface {
	EnsureRoom(ctx context.Context, externalID, title string) (*models.Room, error)
	InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error)
	GetMessageByPlatformID(ctx context.Context, platformID string) (*models.Message, error)
	UpdateMessageStatus(ctx context.Context, platformID string, status models.MessageStatus, at time.Time) (*models.Message, error)
	UpdateMediaURL(ctx context.Context, messageID, url string) error
	AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error
	ListRoomPushTargets(ctx context.Context, roomID int64) ([]models.PushTarget, error)
	DeletePushTarget(ctx context.Context, token string) error
}

// MediaPipeline re-homes source media into the durable store.
type MediaPipeline interface {
	Ingest(ctx context.Context, ref media.SourceRef, roomIdentity string) (*models.MediaInfo, error)
	RefreshURL(ctx context.Context, locator string) (string, error)
}

// RealtimePublisher broadcasts persisted messages to room subscribers.
type RealtimePublisher interface {
	PublishMessage(ctx context.Context, roomID int64, msg *models.Message) error
}

// PushSender multicasts a notification and reports per-target outcomes.
type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, n push.Notification) (*push.MulticastResult, error)
}

// PlatformSender is the outbound send segment of the platform API.
type PlatformSender interface {
	SendText(ctx context.Context, to, body string) (*cloudapi.SendResponse, error)
}
