package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Message is a persisted chat message. The embedded gorm.Model provides the
// permanent ID (assigned on persistence) and CreatedAt; within one room the
// autoincrement ID order is the durable storage order that broadcasts follow.
// Messages are immutable after creation except for ReadBy.
type Message struct {
	gorm.Model

	// RoomID is the room the message belongs to.
	RoomID string `gorm:"type:uuid;not null;index:idx_room_msg"`
	// SenderID is the user who sent the message.
	SenderID string `gorm:"type:text;not null;index:idx_room_msg"`
	// Body is the message content.
	Body string `gorm:"type:text;not null"`
	// ReplyToID references the permanent id of the message being replied to.
	ReplyToID *uint `gorm:"index"`
	// ReadBy lists the participants that have marked the message read.
	ReadBy pq.StringArray `gorm:"type:text[]"`
}

// ReadByUser reports whether userID has marked the message read.
func (m *Message) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// WireMessage is the wire shape of a message inside new_message events and
// fallback responses. CorrelationID is only ever echoed back to the original
// sender of an optimistic send; it is never stored.
type WireMessage struct {
	ID            uint      `json:"id"`
	RoomID        string    `json:"room_id"`
	SenderID      string    `json:"sender_id"`
	Content       string    `json:"content"`
	ReplyTo       *uint     `json:"reply_to,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	ReadBy        []string  `json:"read_by,omitempty"`
}

// Wire converts a persisted message into its wire shape, attaching the
// correlation id when one was supplied with the send.
func (m *Message) Wire(correlationID string) *WireMessage {
	return &WireMessage{
		ID:            m.ID,
		RoomID:        m.RoomID,
		SenderID:      m.SenderID,
		Content:       m.Body,
		ReplyTo:       m.ReplyToID,
		CreatedAt:     m.CreatedAt,
		CorrelationID: correlationID,
		ReadBy:        m.ReadBy,
	}
}
