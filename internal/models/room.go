package models

import "time"

// Room binds one external conversation identity to an internal chat room.
// A room is created lazily on first inbound contact and is never deleted by
// the ingestion path.
type Room struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId"`
	Title      string    `json:"title"`
	LeadID     *int64    `json:"leadId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Participant is an internal actor attached to a room. Membership is managed
// by assignment flows elsewhere; the fan-out engine only reads it.
type Participant struct {
	ID       int64     `json:"id"`
	RoomID   int64     `json:"roomId"`
	UserID   int64     `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// PushTarget is a participant's registered push-notification token. Targets
// reported as permanently invalid by the push provider are pruned.
type PushTarget struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}
