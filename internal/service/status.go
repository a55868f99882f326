package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomcast/internal/models"

	"github.com/sirupsen/logrus"
)

// platformStatuses maps the platform's callback values onto message
// statuses. delivered, read and failed are terminal; sent is not.
var platformStatuses = map[string]models.MessageStatus{
	"sent":      models.StatusSent,
	"delivered": models.StatusDelivered,
	"read":      models.StatusRead,
	"failed":    models.StatusFailed,
}

// StatusTracker applies delivery status callbacks to persisted messages.
// Callbacks arrive out of order and are applied by overwrite; the platform's
// callback ordering is trusted as-is. A callback for an unknown platform
// identifier is a logged no-op.
type StatusTracker struct {
	db     Database
	logger *logrus.Logger
}

func NewStatusTracker(db Database, logger *logrus.Logger) *StatusTracker {
	return &StatusTracker{db: db, logger: logger}
}

// Apply processes one status callback and returns its event result.
func (t *StatusTracker) Apply(ctx context.Context, ws *models.WebhookStatus) models.EventResult {
	result := models.EventResult{Kind: "status", PlatformMsgID: ws.ID}

	status, ok := platformStatuses[ws.Status]
	if !ok {
		t.logger.WithFields(logrus.Fields{
			LogFieldPlatformID: ws.ID,
			LogFieldStatus:     ws.Status,
		}).Warn("Unrecognized status value")
		result.Error = fmt.Sprintf("unrecognized status %q", ws.Status)
		return result
	}

	at := parseTimestamp(ws.Timestamp)

	msg, err := t.db.UpdateMessageStatus(ctx, ws.ID, status, at)
	if errors.Is(err, models.ErrMessageNotFound) {
		// Status for a message this system never stored, e.g. sent before
		// the integration went live. Acknowledged, nothing to do.
		t.logger.WithFields(logrus.Fields{
			LogFieldPlatformID: ws.ID,
			LogFieldStatus:     ws.Status,
		}).Info("Status callback for unknown message, ignoring")
		result.Success = true
		return result
	}
	if err != nil {
		t.logger.WithError(err).WithField(LogFieldPlatformID, ws.ID).
			Error("Failed to apply status")
		result.Error = err.Error()
		return result
	}

	t.appendHistory(ctx, msg.ID, ws, at)

	t.logger.WithFields(logrus.Fields{
		LogFieldMessageID:  msg.ID,
		LogFieldPlatformID: ws.ID,
		LogFieldStatus:     string(status),
	}).Debug("Status applied")

	result.Success = true
	result.MessageID = msg.ID
	return result
}

// appendHistory records the audit entry. Fire-and-forget: a history write
// failure is logged and never blocks status application.
func (t *StatusTracker) appendHistory(ctx context.Context, messageID string, ws *models.WebhookStatus, at time.Time) {
	entry := &models.StatusHistoryEntry{
		MessageID:  messageID,
		Status:     ws.Status,
		Recipient:  ws.RecipientID,
		OccurredAt: at,
	}
	if len(ws.Errors) > 0 {
		if raw, err := json.Marshal(ws.Errors); err == nil {
			entry.Metadata = string(raw)
		}
	}

	if err := t.db.AppendStatusHistory(ctx, entry); err != nil {
		t.logger.WithError(err).WithField(LogFieldMessageID, messageID).
			Warn("Failed to append status history")
	}
}
