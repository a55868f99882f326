package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "roomcast/internal/errors"
	"roomcast/internal/media"
	"roomcast/internal/models"
)

// NormalizedMessage is the canonical form of one inbound message before
// room resolution and persistence.
type NormalizedMessage struct {
	From             string
	DisplayName      string
	PlatformMsgID    string
	Timestamp        time.Time
	ReplyTo          *string
	Kind             models.MessageKind
	Body             string
	Media            *media.SourceRef
	ReactionEmoji    *string
	ReactionTargetID *string
	Metadata         map[string]interface{}
}

// normalizeFunc maps one platform message type onto the canonical record.
type normalizeFunc func(wm *models.WebhookMessage, out *NormalizedMessage) error

// normalizers is the closed dispatch table over declared message types.
// Types absent here are unrecognized and produce a failed event result
// without aborting the rest of the payload.
var normalizers = map[string]normalizeFunc{
	models.TypeText:        normalizeText,
	models.TypeImage:       normalizeMedia,
	models.TypeVideo:       normalizeMedia,
	models.TypeAudio:       normalizeMedia,
	models.TypeDocument:    normalizeMedia,
	models.TypeSticker:     normalizeMedia,
	models.TypeLocation:    normalizeLocation,
	models.TypeContacts:    normalizeContacts,
	models.TypeReaction:    normalizeReaction,
	models.TypeInteractive: normalizeInteractive,
	models.TypeButton:      normalizeButton,
	models.TypeOrder:       normalizeOrder,
	models.TypeSystem:      normalizeSystem,
}

// NormalizeMessage converts a platform message into the canonical form.
// contactNames maps sender identities to profile names from the payload's
// contacts block; the identity itself is the fallback display name.
func NormalizeMessage(wm *models.WebhookMessage, contactNames map[string]string) (*NormalizedMessage, error) {
	if wm.From == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingField, "message has no sender identity")
	}
	if wm.ID == "" {
		return nil, apperrors.New(apperrors.ErrCodeMissingField, "message has no platform identifier")
	}

	out := &NormalizedMessage{
		From:          wm.From,
		DisplayName:   wm.From,
		PlatformMsgID: wm.ID,
		Timestamp:     parseTimestamp(wm.Timestamp),
	}
	if name, ok := contactNames[wm.From]; ok && name != "" {
		out.DisplayName = name
	}
	if wm.Context != nil && wm.Context.ID != "" {
		replyTo := wm.Context.ID
		out.ReplyTo = &replyTo
	}

	// "referral" arrives as a text message with an attached referral block,
	// not as its own type; check it before the dispatch table.
	if wm.Referral != nil {
		if err := normalizeReferral(wm, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	normalize, ok := normalizers[wm.Type]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeUnknownKind,
			fmt.Sprintf("unrecognized message type %q", wm.Type)).
			WithContext("platform_msg_id", wm.ID)
	}

	if err := normalize(wm, out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseTimestamp(raw string) time.Time {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	return time.Now().UTC()
}

func normalizeText(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Text == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "text message has no text payload")
	}
	out.Kind = models.KindText
	out.Body = wm.Text.Body
	return nil
}

func normalizeMedia(wm *models.WebhookMessage, out *NormalizedMessage) error {
	content := mediaContent(wm)
	if content == nil {
		return apperrors.New(apperrors.ErrCodeMissingField,
			fmt.Sprintf("%s message has no media payload", wm.Type))
	}
	if content.ID == "" {
		return apperrors.New(apperrors.ErrCodeMissingField, "media payload has no source id")
	}

	out.Kind = models.KindMedia
	out.Media = &media.SourceRef{
		ID:       content.ID,
		Kind:     wm.Type,
		MimeType: content.MimeType,
		Filename: content.Filename,
	}
	out.Body = content.Caption
	if out.Body == "" {
		if content.Filename != "" {
			out.Body = content.Filename
		} else {
			out.Body = "[" + wm.Type + "]"
		}
	}
	if content.Voice {
		out.Metadata = map[string]interface{}{"voice": true}
	}
	return nil
}

func mediaContent(wm *models.WebhookMessage) *models.MediaContent {
	switch wm.Type {
	case models.TypeImage:
		return wm.Image
	case models.TypeVideo:
		return wm.Video
	case models.TypeAudio:
		return wm.Audio
	case models.TypeDocument:
		return wm.Document
	case models.TypeSticker:
		return wm.Sticker
	}
	return nil
}

func normalizeLocation(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Location == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "location message has no location payload")
	}
	out.Kind = models.KindLocation
	if wm.Location.Name != "" {
		out.Body = fmt.Sprintf("%s (%.6f, %.6f)", wm.Location.Name, wm.Location.Latitude, wm.Location.Longitude)
	} else {
		out.Body = fmt.Sprintf("%.6f, %.6f", wm.Location.Latitude, wm.Location.Longitude)
	}
	out.Metadata = map[string]interface{}{
		"latitude":  wm.Location.Latitude,
		"longitude": wm.Location.Longitude,
	}
	if wm.Location.Name != "" {
		out.Metadata["name"] = wm.Location.Name
	}
	if wm.Location.Address != "" {
		out.Metadata["address"] = wm.Location.Address
	}
	return nil
}

func normalizeContacts(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if len(wm.Contacts) == 0 {
		return apperrors.New(apperrors.ErrCodeMissingField, "contacts message has no contact cards")
	}
	out.Kind = models.KindContacts

	names := make([]string, 0, len(wm.Contacts))
	cards := make([]map[string]interface{}, 0, len(wm.Contacts))
	for _, card := range wm.Contacts {
		names = append(names, card.Name.FormattedName)
		entry := map[string]interface{}{"name": card.Name.FormattedName}
		if len(card.Phones) > 0 {
			phones := make([]string, 0, len(card.Phones))
			for _, p := range card.Phones {
				phones = append(phones, p.Phone)
			}
			entry["phones"] = phones
		}
		cards = append(cards, entry)
	}
	out.Body = "Shared contact: " + strings.Join(names, ", ")
	out.Metadata = map[string]interface{}{"contacts": cards}
	return nil
}

func normalizeReaction(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Reaction == nil || wm.Reaction.MessageID == "" {
		return apperrors.New(apperrors.ErrCodeMissingField, "reaction message has no reaction payload")
	}
	out.Kind = models.KindReaction
	out.Body = wm.Reaction.Emoji
	emoji := wm.Reaction.Emoji
	target := wm.Reaction.MessageID
	out.ReactionEmoji = &emoji
	out.ReactionTargetID = &target
	return nil
}

func normalizeInteractive(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Interactive == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "interactive message has no interactive payload")
	}
	out.Kind = models.KindInteractive

	switch {
	case wm.Interactive.ButtonReply != nil:
		out.Body = wm.Interactive.ButtonReply.Title
		out.Metadata = map[string]interface{}{
			"interactive_type": wm.Interactive.Type,
			"reply_id":         wm.Interactive.ButtonReply.ID,
		}
	case wm.Interactive.ListReply != nil:
		out.Body = wm.Interactive.ListReply.Title
		out.Metadata = map[string]interface{}{
			"interactive_type": wm.Interactive.Type,
			"reply_id":         wm.Interactive.ListReply.ID,
		}
		if wm.Interactive.ListReply.Description != "" {
			out.Metadata["description"] = wm.Interactive.ListReply.Description
		}
	default:
		return apperrors.New(apperrors.ErrCodeMissingField,
			fmt.Sprintf("interactive message has no reply payload (type %q)", wm.Interactive.Type))
	}
	return nil
}

func normalizeButton(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Button == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "button message has no button payload")
	}
	out.Kind = models.KindButton
	out.Body = wm.Button.Text
	if wm.Button.Payload != "" {
		out.Metadata = map[string]interface{}{"payload": wm.Button.Payload}
	}
	return nil
}

func normalizeOrder(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.Order == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "order message has no order payload")
	}
	out.Kind = models.KindOrder
	out.Body = fmt.Sprintf("Order from catalog %s (%d items)", wm.Order.CatalogID, len(wm.Order.ProductItems))

	items := make([]map[string]interface{}, 0, len(wm.Order.ProductItems))
	for _, item := range wm.Order.ProductItems {
		items = append(items, map[string]interface{}{
			"product_retailer_id": item.ProductRetailerID,
			"quantity":            item.Quantity,
			"item_price":          item.ItemPrice,
			"currency":            item.Currency,
		})
	}
	out.Metadata = map[string]interface{}{
		"catalog_id": wm.Order.CatalogID,
		"items":      items,
	}
	if wm.Order.Text != "" {
		out.Metadata["note"] = wm.Order.Text
	}
	return nil
}

func normalizeSystem(wm *models.WebhookMessage, out *NormalizedMessage) error {
	if wm.System == nil {
		return apperrors.New(apperrors.ErrCodeMissingField, "system message has no system payload")
	}
	out.Kind = models.KindSystem
	out.Body = wm.System.Body
	if wm.System.Type != "" {
		out.Metadata = map[string]interface{}{"system_type": wm.System.Type}
		if wm.System.NewWaID != "" {
			out.Metadata["new_wa_id"] = wm.System.NewWaID
		}
	}
	return nil
}

func normalizeReferral(wm *models.WebhookMessage, out *NormalizedMessage) error {
	out.Kind = models.KindReferral
	if wm.Text != nil {
		out.Body = wm.Text.Body
	}
	if out.Body == "" {
		out.Body = wm.Referral.Headline
	}
	out.Metadata = map[string]interface{}{}
	if wm.Referral.SourceURL != "" {
		out.Metadata["source_url"] = wm.Referral.SourceURL
	}
	if wm.Referral.SourceType != "" {
		out.Metadata["source_type"] = wm.Referral.SourceType
	}
	if wm.Referral.SourceID != "" {
		out.Metadata["source_id"] = wm.Referral.SourceID
	}
	if wm.Referral.Headline != "" {
		out.Metadata["headline"] = wm.Referral.Headline
	}
	return nil
}
