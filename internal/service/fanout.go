package service

import (
	"context"
	"strconv"

	"roomcast/internal/models"
	"roomcast/pkg/push"

	"github.com/sirupsen/logrus"
)

// notificationBodyLimit caps the push preview text.
const notificationBodyLimit = 120

// FanoutEngine delivers a persisted message to the room's real-time channel
// and to its participants' push targets. Both deliveries are best-effort
// and independent: neither can fail the ingestion that triggered them.
// Targets the push provider reports as permanently invalid are pruned.
type FanoutEngine struct {
	db       Database
	realtime RealtimePublisher
	push     PushSender
	logger   *logrus.Logger
}

func NewFanoutEngine(db Database, realtime RealtimePublisher, pushSender PushSender, logger *logrus.Logger) *FanoutEngine {
	return &FanoutEngine{
		db:       db,
		realtime: realtime,
		push:     pushSender,
		logger:   logger,
	}
}

// Dispatch performs both deliveries. It never returns an error; every
// failure is logged and swallowed here, after persistence has committed.
func (e *FanoutEngine) Dispatch(ctx context.Context, room *models.Room, msg *models.Message) {
	e.broadcast(ctx, room, msg)
	e.multicast(ctx, room, msg)
}

func (e *FanoutEngine) broadcast(ctx context.Context, room *models.Room, msg *models.Message) {
	if e.realtime == nil {
		return
	}
	if err := e.realtime.PublishMessage(ctx, room.ID, msg); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			LogFieldRoomID:    room.ID,
			LogFieldMessageID: msg.ID,
		}).Warn("Realtime broadcast failed")
	}
}

func (e *FanoutEngine) multicast(ctx context.Context, room *models.Room, msg *models.Message) {
	if e.push == nil {
		return
	}

	targets, err := e.db.ListRoomPushTargets(ctx, room.ID)
	if err != nil {
		e.logger.WithError(err).WithField(LogFieldRoomID, room.ID).
			Warn("Failed to list push targets")
		return
	}
	if len(targets) == 0 {
		return
	}

	tokens := make([]string, len(targets))
	for i, t := range targets {
		tokens[i] = t.Token
	}

	result, err := e.push.SendMulticast(ctx, tokens, push.Notification{
		Title: room.Title,
		Body:  previewBody(msg),
		Data: map[string]string{
			"room_id":    strconv.FormatInt(room.ID, 10),
			"message_id": msg.ID,
		},
	})
	if err != nil {
		e.logger.WithError(err).WithField(LogFieldRoomID, room.ID).
			Warn("Push multicast failed")
		return
	}

	for _, token := range result.InvalidTokens {
		if err := e.db.DeletePushTarget(ctx, token); err != nil {
			e.logger.WithError(err).Warn("Failed to prune invalid push target")
			continue
		}
		e.logger.WithField(LogFieldRoomID, room.ID).Info("Pruned invalid push target")
	}

	if result.Failure > 0 {
		e.logger.WithFields(logrus.Fields{
			LogFieldRoomID: room.ID,
			"success":      result.Success,
			"failure":      result.Failure,
		}).Debug("Push multicast completed with failures")
	}
}

func previewBody(msg *models.Message) string {
	body := msg.Body
	if len(body) > notificationBodyLimit {
		body = body[:notificationBodyLimit]
	}
	return body
}
