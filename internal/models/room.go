package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room kinds.
const (
	RoomKindOpen  = "open"
	RoomKindGated = "gated"
)

// Room represents a two-party conversation. Gated rooms are scoped to a
// marketplace engagement (ContextID) and may only exist once per
// (context, participant pair); the partial unique index enforces that at the
// database level so concurrent first-contact attempts cannot create two rooms.
type Room struct {
	// RoomID is the unique identifier for the room (UUID).
	RoomID string `gorm:"primaryKey" json:"room_id"`
	// Kind is either "open" or "gated".
	Kind string `gorm:"type:text;not null;default:'gated'" json:"kind"`
	// ContextID is the engagement the room is scoped to. Empty for open rooms.
	ContextID string `gorm:"type:text;uniqueIndex:uniq_gated_room,where:kind = 'gated' AND is_active" json:"context_id,omitempty"`
	// User1ID and User2ID are the two participants. For gated rooms the pair
	// is stored in canonical order (User1ID < User2ID).
	User1ID string `gorm:"type:text;not null;index;uniqueIndex:uniq_gated_room" json:"user1_id"`
	User2ID string `gorm:"type:text;not null;index;uniqueIndex:uniq_gated_room" json:"user2_id"`
	// IsActive indicates whether the room is currently active. Rooms are
	// deactivated, never deleted.
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	// Denormalized last-message summary for cheap listing.
	LastMessageBody   string    `gorm:"type:text" json:"last_message_body"`
	LastMessageSender string    `gorm:"type:text" json:"last_message_sender"`
	LastMessageAt     time.Time `json:"last_message_at"`

	// Per-participant unread counters.
	User1Unread int `gorm:"not null;default:0" json:"-"`
	User2Unread int `gorm:"not null;default:0" json:"-"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// BeforeCreate assigns a RoomID if one is not set yet.
func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RoomID == "" {
		r.RoomID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return
}

// HasParticipant reports whether userID is one of the room's two parties.
func (r *Room) HasParticipant(userID string) bool {
	return r.User1ID == userID || r.User2ID == userID
}

// OtherParticipant returns the counterparty of userID, or "" if userID is not
// a participant.
func (r *Room) OtherParticipant(userID string) string {
	switch userID {
	case r.User1ID:
		return r.User2ID
	case r.User2ID:
		return r.User1ID
	}
	return ""
}

// UnreadFor returns the unread counter for the given participant.
func (r *Room) UnreadFor(userID string) int {
	switch userID {
	case r.User1ID:
		return r.User1Unread
	case r.User2ID:
		return r.User2Unread
	}
	return 0
}

// CanonicalPair orders two participant ids so a gated pair always maps to the
// same (User1ID, User2ID) columns regardless of who initiated contact.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Summary renders the listing view of the room for one participant.
func (r *Room) Summary(forUser string) RoomSummary {
	return RoomSummary{
		RoomID:            r.RoomID,
		Kind:              r.Kind,
		ContextID:         r.ContextID,
		Participants:      []string{r.User1ID, r.User2ID},
		LastMessageBody:   r.LastMessageBody,
		LastMessageSender: r.LastMessageSender,
		LastMessageAt:     r.LastMessageAt,
		Unread:            r.UnreadFor(forUser),
		IsActive:          r.IsActive,
	}
}

// RoomSummary is the wire shape of a room in room_list events and the
// fallback catalog endpoint. Unread is relative to the requesting user.
type RoomSummary struct {
	RoomID            string    `json:"room_id"`
	Kind              string    `json:"kind"`
	ContextID         string    `json:"context_id,omitempty"`
	Participants      []string  `json:"participants"`
	LastMessageBody   string    `json:"last_message_body"`
	LastMessageSender string    `json:"last_message_sender"`
	LastMessageAt     time.Time `json:"last_message_at"`
	Unread            int       `json:"unread"`
	IsActive          bool      `json:"is_active"`
}
