package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"roomcast/internal/constants"
	"roomcast/internal/models"
)

const messageColumns = `
	id, room_id, sender_id, kind, body, platform_msg_id, reply_to_platform_id,
	reaction_emoji, reaction_target_id, media_kind, media_source_id,
	media_locator, media_url, media_size, media_mime_type, media_filename,
	status, status_at, metadata, created_at, updated_at`

// EnsureRoom maps an external conversation identity to a room, creating it
// atomically on first contact. Two concurrent first-contact deliveries for
// the same identity resolve to the same row: the insert is a single
// insert-if-absent statement, not a check-then-insert pair.
func (d *Database) EnsureRoom(ctx context.Context, externalID, title string) (*models.Room, error) {
	if externalID == "" {
		return nil, fmt.Errorf("external identity is required")
	}
	if title == "" {
		title = constants.DefaultRoomTitle
	}

	encID, err := d.encryptor.EncryptForLookupIfEnabled(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt external identity: %w", err)
	}
	encTitle, err := d.encryptor.EncryptIfEnabled(title)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt room title: %w", err)
	}

	query := `
		INSERT INTO rooms (external_id, title) VALUES (?, ?)
		ON CONFLICT(external_id) DO NOTHING
	`
	if _, err := d.db.ExecContext(ctx, query, encID, encTitle); err != nil {
		return nil, fmt.Errorf("failed to ensure room: %w", err)
	}

	room, err := d.getRoomByEncryptedID(ctx, encID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, fmt.Errorf("room missing after ensure for identity %s", externalID)
	}
	room.ExternalID = externalID
	return room, nil
}

// GetRoomByExternalID returns the room for an identity, or nil when absent.
func (d *Database) GetRoomByExternalID(ctx context.Context, externalID string) (*models.Room, error) {
	encID, err := d.encryptor.EncryptForLookupIfEnabled(externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt external identity: %w", err)
	}

	room, err := d.getRoomByEncryptedID(ctx, encID)
	if err != nil || room == nil {
		return room, err
	}
	room.ExternalID = externalID
	return room, nil
}

func (d *Database) getRoomByEncryptedID(ctx context.Context, encID string) (*models.Room, error) {
	query := `
		SELECT id, external_id, title, lead_id, created_at, updated_at
		FROM rooms
		WHERE external_id = ?
	`

	room := &models.Room{}
	var encExternalID, encTitle string
	var leadID sql.NullInt64

	err := d.db.QueryRowContext(ctx, query, encID).Scan(
		&room.ID, &encExternalID, &encTitle, &leadID, &room.CreatedAt, &room.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room.Title, err = d.encryptor.DecryptIfEnabled(encTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt room title: %w", err)
	}
	if leadID.Valid {
		room.LeadID = &leadID.Int64
	}
	return room, nil
}

// UpdateRoomTitle refreshes the display title, typically when a later
// contacts block carries a better name than first contact did.
func (d *Database) UpdateRoomTitle(ctx context.Context, roomID int64, title string) error {
	encTitle, err := d.encryptor.EncryptIfEnabled(title)
	if err != nil {
		return fmt.Errorf("failed to encrypt room title: %w", err)
	}

	if _, err := d.db.ExecContext(ctx, `UPDATE rooms SET title = ? WHERE id = ?`, encTitle, roomID); err != nil {
		return fmt.Errorf("failed to update room title: %w", err)
	}
	return nil
}

// InsertMessage persists a message, idempotent on the platform message
// identifier. Redelivery of an already-stored message returns the existing
// row with duplicate=true and writes nothing.
func (d *Database) InsertMessage(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	encBody, err := d.encryptor.EncryptIfEnabled(msg.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt message body: %w", err)
	}

	var encPlatformID *string
	if msg.PlatformMsgID != nil {
		enc, err := d.encryptor.EncryptForLookupIfEnabled(*msg.PlatformMsgID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encrypt platform message id: %w", err)
		}
		encPlatformID = &enc
	}

	var metadata *string
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, false, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		s := string(raw)
		metadata = &s
	}

	var mediaKind, mediaSourceID, mediaLocator, mediaURL, mediaMime, mediaFilename *string
	var mediaSize *int64
	if msg.Media != nil {
		mediaKind = &msg.Media.Kind
		mediaSourceID = nullable(msg.Media.SourceID)
		mediaLocator = nullable(msg.Media.Locator)
		mediaURL = nullable(msg.Media.URL)
		mediaMime = nullable(msg.Media.MimeType)
		mediaFilename = nullable(msg.Media.Filename)
		if msg.Media.Size > 0 {
			mediaSize = &msg.Media.Size
		}
	}

	query := `
		INSERT INTO messages (
			id, room_id, sender_id, kind, body, platform_msg_id,
			reply_to_platform_id, reaction_emoji, reaction_target_id,
			media_kind, media_source_id, media_locator, media_url,
			media_size, media_mime_type, media_filename, status, status_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`

	res, err := d.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.SenderID, msg.Kind, encBody, encPlatformID,
		msg.ReplyToPlatformID, msg.ReactionEmoji, msg.ReactionTargetID,
		mediaKind, mediaSourceID, mediaLocator, mediaURL,
		mediaSize, mediaMime, mediaFilename, msg.Status, msg.StatusAt, metadata,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert message: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		// Conflict on the platform message id unique index: an earlier
		// delivery already stored this message. Idempotent success.
		if msg.PlatformMsgID == nil {
			return nil, false, fmt.Errorf("insert conflict without platform message id")
		}
		existing, err := d.GetMessageByPlatformID(ctx, *msg.PlatformMsgID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("conflicting message not found for platform id %s", *msg.PlatformMsgID)
		}
		return existing, true, nil
	}

	stored, err := d.getMessageByInternalID(ctx, msg.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

// GetMessageByPlatformID returns the message for a platform identifier, or
// nil when it was never persisted.
func (d *Database) GetMessageByPlatformID(ctx context.Context, platformID string) (*models.Message, error) {
	encID, err := d.encryptor.EncryptForLookupIfEnabled(platformID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt platform message id: %w", err)
	}

	row := d.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE platform_msg_id = ?`, encID)
	return d.scanMessage(row)
}

func (d *Database) getMessageByInternalID(ctx context.Context, id string) (*models.Message, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return d.scanMessage(row)
}

// UpdateMessageStatus applies a status callback by direct overwrite. The
// platform's callback order is trusted; no ordering guard is applied.
// Returns models.ErrMessageNotFound for unknown platform identifiers.
func (d *Database) UpdateMessageStatus(ctx context.Context, platformID string, status models.MessageStatus, at time.Time) (*models.Message, error) {
	encID, err := d.encryptor.EncryptForLookupIfEnabled(platformID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt platform message id: %w", err)
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE messages SET status = ?, status_at = ? WHERE platform_msg_id = ?`,
		status, at, encID)
	if err != nil {
		return nil, fmt.Errorf("failed to update message status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, models.ErrMessageNotFound
	}

	return d.GetMessageByPlatformID(ctx, platformID)
}

// UpdateMediaURL stores a re-signed locator URL after the previous one
// expired. The locator and bytes are untouched.
func (d *Database) UpdateMediaURL(ctx context.Context, messageID, url string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE messages SET media_url = ? WHERE id = ? AND media_locator IS NOT NULL`,
		url, messageID)
	if err != nil {
		return fmt.Errorf("failed to update media URL: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return models.ErrMessageNotFound
	}
	return nil
}

// AppendStatusHistory records one audit entry. Callers treat failures as
// log-only; history never blocks status application.
func (d *Database) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO message_status_history (message_id, status, recipient, occurred_at, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		entry.MessageID, entry.Status, entry.Recipient, entry.OccurredAt, entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// GetStatusHistory returns the audit trail for a message, oldest first.
func (d *Database) GetStatusHistory(ctx context.Context, messageID string) ([]models.StatusHistoryEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, message_id, status, recipient, occurred_at, metadata, created_at
		FROM message_status_history
		WHERE message_id = ?
		ORDER BY id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var e models.StatusHistoryEntry
		var recipient, metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Status, &recipient, &e.OccurredAt, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		e.Recipient = recipient.String
		e.Metadata = metadata.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddParticipant attaches an internal actor to a room. Idempotent.
func (d *Database) AddParticipant(ctx context.Context, roomID, userID int64) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO room_participants (room_id, user_id) VALUES (?, ?)
		ON CONFLICT(room_id, user_id) DO NOTHING`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// SavePushTarget registers a participant's push token, replacing any prior
// owner of the same token.
func (d *Database) SavePushTarget(ctx context.Context, userID int64, token string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO push_targets (user_id, token) VALUES (?, ?)
		ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id`, userID, token)
	if err != nil {
		return fmt.Errorf("failed to save push target: %w", err)
	}
	return nil
}

// ListRoomPushTargets returns the push targets of all room participants.
func (d *Database) ListRoomPushTargets(ctx context.Context, roomID int64) ([]models.PushTarget, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT pt.id, pt.user_id, pt.token, pt.created_at
		FROM push_targets pt
		JOIN room_participants rp ON rp.user_id = pt.user_id
		WHERE rp.room_id = ?
		ORDER BY pt.id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push targets: %w", err)
	}
	defer rows.Close()

	var targets []models.PushTarget
	for rows.Next() {
		var t models.PushTarget
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan push target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// DeletePushTarget prunes a token the provider reported as permanently
// invalid so it is not retried on subsequent messages.
func (d *Database) DeletePushTarget(ctx context.Context, token string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM push_targets WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete push target: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var senderID sql.NullInt64
	var encBody string
	var encPlatformID, replyTo, reactionEmoji, reactionTarget sql.NullString
	var mediaKind, mediaSourceID, mediaLocator, mediaURL, mediaMime, mediaFilename sql.NullString
	var mediaSize sql.NullInt64
	var statusAt sql.NullTime
	var metadata sql.NullString

	err := row.Scan(
		&msg.ID, &msg.RoomID, &senderID, &msg.Kind, &encBody, &encPlatformID,
		&replyTo, &reactionEmoji, &reactionTarget,
		&mediaKind, &mediaSourceID, &mediaLocator, &mediaURL,
		&mediaSize, &mediaMime, &mediaFilename,
		&msg.Status, &statusAt, &metadata, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.Body, err = d.encryptor.DecryptIfEnabled(encBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message body: %w", err)
	}

	if senderID.Valid {
		msg.SenderID = &senderID.Int64
	}
	if encPlatformID.Valid {
		platformID, err := d.encryptor.DecryptIfEnabled(encPlatformID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt platform message id: %w", err)
		}
		msg.PlatformMsgID = &platformID
	}
	if replyTo.Valid {
		msg.ReplyToPlatformID = &replyTo.String
	}
	if reactionEmoji.Valid {
		msg.ReactionEmoji = &reactionEmoji.String
	}
	if reactionTarget.Valid {
		msg.ReactionTargetID = &reactionTarget.String
	}
	if statusAt.Valid {
		msg.StatusAt = &statusAt.Time
	}
	if mediaKind.Valid {
		msg.Media = &models.MediaInfo{
			Kind:     mediaKind.String,
			SourceID: mediaSourceID.String,
			Locator:  mediaLocator.String,
			URL:      mediaURL.String,
			Size:     mediaSize.Int64,
			MimeType: mediaMime.String,
			Filename: mediaFilename.String,
		}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return msg, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
