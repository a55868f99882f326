package service

import (
	"context"
	"fmt"
	"time"

	apperrors "roomcast/internal/errors"
	"roomcast/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IngestService runs the inbound pipeline for one message: normalize,
// resolve the room, re-home media, persist exactly once, then fan out.
// Fan-out runs only after persistence commits and its failures never
// surface as ingestion failures.
type IngestService struct {
	db     Database
	media  MediaPipeline
	fanout *FanoutEngine
	sender PlatformSender
	logger *logrus.Logger
}

func NewIngestService(db Database, media MediaPipeline, fanout *FanoutEngine, sender PlatformSender, logger *logrus.Logger) *IngestService {
	return &IngestService{
		db:     db,
		media:  media,
		fanout: fanout,
		sender: sender,
		logger: logger,
	}
}

// ProcessMessage ingests one inbound webhook message and returns its event
// result. Failures are contained: the caller keeps processing the rest of
// the payload.
func (s *IngestService) ProcessMessage(ctx context.Context, wm *models.WebhookMessage, contactNames map[string]string) models.EventResult {
	result := models.EventResult{Kind: "message", PlatformMsgID: wm.ID}

	norm, err := NormalizeMessage(wm, contactNames)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			LogFieldPlatformID:  wm.ID,
			LogFieldMessageType: wm.Type,
		}).Warn("Failed to normalize message")
		result.Error = err.Error()
		return result
	}

	room, err := s.db.EnsureRoom(ctx, norm.From, norm.DisplayName)
	if err != nil {
		s.logger.WithError(err).WithField(LogFieldIdentity, MaskIdentity(norm.From)).
			Error("Failed to resolve room")
		result.Error = fmt.Sprintf("room resolution failed: %v", err)
		return result
	}

	msg := &models.Message{
		ID:                uuid.NewString(),
		RoomID:            room.ID,
		Kind:              norm.Kind,
		Body:              norm.Body,
		PlatformMsgID:     &norm.PlatformMsgID,
		ReplyToPlatformID: norm.ReplyTo,
		ReactionEmoji:     norm.ReactionEmoji,
		ReactionTargetID:  norm.ReactionTargetID,
		Status:            models.StatusReceived,
		StatusAt:          &norm.Timestamp,
		Metadata:          norm.Metadata,
	}

	if norm.Media != nil {
		info, err := s.media.Ingest(ctx, *norm.Media, room.ExternalID)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				LogFieldPlatformID: wm.ID,
				LogFieldErrorCode:  string(apperrors.GetCode(err)),
			}).Warn("Media pipeline failed")
			result.Error = err.Error()
			return result
		}
		msg.Media = info
	}

	stored, duplicate, err := s.db.InsertMessage(ctx, msg)
	if err != nil {
		s.logger.WithError(err).WithField(LogFieldPlatformID, wm.ID).
			Error("Failed to persist message")
		result.Error = fmt.Sprintf("persistence failed: %v", err)
		return result
	}

	result.Success = true
	result.MessageID = stored.ID
	result.Duplicate = duplicate

	if duplicate {
		// Webhook redelivery of an already-ingested event; do not fan out
		// again.
		s.logger.WithField(LogFieldPlatformID, wm.ID).Debug("Duplicate delivery, skipping fan-out")
		return result
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldRoomID:      room.ID,
		LogFieldMessageID:   stored.ID,
		LogFieldPlatformID:  wm.ID,
		LogFieldMessageType: string(stored.Kind),
	}).Info("Message ingested")

	s.fanout.Dispatch(ctx, room, stored)
	return result
}

// SendText records and delivers one outbound message: the room-ensure and
// persistence segment shared with the REST send surface.
func (s *IngestService) SendText(ctx context.Context, to string, senderID int64, body string) (*models.Message, error) {
	if s.sender == nil {
		return nil, fmt.Errorf("no platform sender configured")
	}

	room, err := s.db.EnsureRoom(ctx, to, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room: %w", err)
	}

	resp, err := s.sender.SendText(ctx, to, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		SenderID: &senderID,
		Kind:     models.KindText,
		Body:     body,
		Status:   models.StatusSent,
		StatusAt: &now,
	}
	if id := resp.MessageID(); id != "" {
		msg.PlatformMsgID = &id
	}

	stored, _, err := s.db.InsertMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to persist outbound message: %w", err)
	}

	s.fanout.Dispatch(ctx, room, stored)
	return stored, nil
}

// RefreshMediaURL re-signs the stored locator of a media message whose URL
// expired, and records the fresh URL.
func (s *IngestService) RefreshMediaURL(ctx context.Context, platformID string) (string, error) {
	msg, err := s.db.GetMessageByPlatformID(ctx, platformID)
	if err != nil {
		return "", err
	}
	if msg == nil || msg.Media == nil || msg.Media.Locator == "" {
		return "", models.ErrMessageNotFound
	}

	url, err := s.media.RefreshURL(ctx, msg.Media.Locator)
	if err != nil {
		return "", fmt.Errorf("failed to refresh media URL: %w", err)
	}

	if err := s.db.UpdateMediaURL(ctx, msg.ID, url); err != nil {
		return "", err
	}
	return url, nil
}
