package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"roomcast/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventMessageCreated is published for every newly persisted message.
const EventMessageCreated = "message.created"

// Event is the wire shape published on a room channel.
type Event struct {
	Type    string          `json:"type"`
	RoomID  int64           `json:"roomId"`
	Message *models.Message `json:"message"`
}

// Publisher broadcasts persisted messages on per-room Redis pub/sub
// channels. The service only publishes; subscribers attach elsewhere.
type Publisher struct {
	client *redis.Client
	prefix string
}

func NewPublisher(cfg models.RedisConfig) *Publisher {
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: cfg.ChannelPrefix,
	}
}

// ChannelFor returns the pub/sub channel name for a room.
func ChannelFor(prefix string, roomID int64) string {
	return fmt.Sprintf("%sroom:%d", prefix, roomID)
}

// PublishMessage broadcasts one persisted message to the room's channel.
func (p *Publisher) PublishMessage(ctx context.Context, roomID int64, msg *models.Message) error {
	payload, err := json.Marshal(Event{
		Type:    EventMessageCreated,
		RoomID:  roomID,
		Message: msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal realtime event: %w", err)
	}

	if err := p.client.Publish(ctx, ChannelFor(p.prefix, roomID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish realtime event: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
