package chathub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"workmesh/backend/internal/faults"
	"workmesh/backend/internal/models"
	"workmesh/backend/internal/storage"
)

// The operations in this file are shared by the live channel and the
// synchronous fallback endpoints, so both transports apply identical
// authorization and persistence semantics.

// ResolveGatedRoom returns the existing active gated room for
// (contextID, userID, counterpartyID), creating it lazily after the external
// qualifying-relationship check passes. Creation is race-safe: a concurrent
// loser is handed the winner's room, never an error.
func (m *ManagerService) ResolveGatedRoom(userID, contextID, counterpartyID string) (*models.Room, error) {
	if contextID == "" {
		return nil, &faults.ValidationError{Field: "context_id", Reason: "must not be empty"}
	}
	if counterpartyID == "" || counterpartyID == userID {
		return nil, &faults.ValidationError{Field: "counterparty_id", Reason: "must name the other party"}
	}

	ok, err := m.Relationships.HasQualifyingRelationship(context.Background(), contextID, userID, counterpartyID)
	if err != nil {
		log.Printf("ERROR: Relationship check failed for context %s: %v", contextID, err)
		return nil, fmt.Errorf("relationship check: %w", err)
	}
	if !ok {
		return nil, &faults.PermissionError{Reason: "no qualifying relationship for context " + contextID}
	}

	room, err := m.Storage.GetGatedRoom(contextID, userID, counterpartyID)
	if err != nil {
		return nil, &faults.StorageError{Op: "lookup room", Err: err}
	}
	if room != nil {
		return room, nil
	}

	user1, user2 := models.CanonicalPair(userID, counterpartyID)
	room = &models.Room{
		Kind:      models.RoomKindGated,
		ContextID: contextID,
		User1ID:   user1,
		User2ID:   user2,
		IsActive:  true,
	}
	if err := m.Storage.CreateRoom(room); err != nil {
		return nil, &faults.StorageError{Op: "create room", Err: err}
	}
	return room, nil
}

// authorizeRoom resolves a room id and checks the caller is a recorded
// participant. A missing room is reported identically to a foreign one.
func (m *ManagerService) authorizeRoom(userID, roomID string) (*models.Room, error) {
	if roomID == "" {
		return nil, &faults.ValidationError{Field: "room_id", Reason: "must not be empty"}
	}

	room, err := m.Storage.GetRoomByID(roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return nil, &faults.PermissionError{RoomID: roomID, Reason: "not a participant"}
		}
		return nil, &faults.StorageError{Op: "lookup room", Err: err}
	}
	if !room.HasParticipant(userID) {
		return nil, &faults.PermissionError{RoomID: roomID, Reason: "not a participant"}
	}
	return room, nil
}

// PostMessage validates, durably persists and then broadcasts a message.
// Persistence strictly precedes publication: a message that fails to store is
// never fanned out. The returned message carries the permanent id.
func (m *ManagerService) PostMessage(userID, roomID, content string, replyTo *uint) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &faults.ValidationError{Field: "content", Reason: "must not be empty"}
	}

	room, err := m.authorizeRoom(userID, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, &faults.PermissionError{RoomID: roomID, Reason: "room is closed"}
	}

	msg := &models.Message{
		RoomID:    roomID,
		SenderID:  userID,
		Body:      content,
		ReplyToID: replyTo,
	}
	if err := m.Storage.SaveMessage(msg); err != nil {
		return nil, &faults.StorageError{Op: "save message", Err: err}
	}

	// The summary is denormalized listing data; a failed update is logged
	// but does not fail the send.
	if err := m.Storage.TouchRoomSummary(room, msg); err != nil {
		log.Printf("WARNING: Failed to update summary for room %s: %v", roomID, err)
	}

	// Broadcast copy has no correlation id; only the sender's own
	// confirmation echoes it.
	if err := m.Storage.PublishEvent(roomID, models.Envelope{
		Type:    models.TypeNewMessage,
		RoomID:  roomID,
		Message: msg.Wire(""),
	}); err != nil {
		log.Printf("ERROR: Failed to publish message %d: %v", msg.ID, err)
	}

	if other := room.OtherParticipant(userID); other != "" {
		if m.Notifier != nil && !m.Presence.Online(other) {
			go m.Notifier.NotifyOffline(other, room, msg)
		}
	}
	return msg, nil
}

// MarkRead persists read receipts for the given messages and broadcasts the
// change to the other participant. Returns the ids actually marked.
func (m *ManagerService) MarkRead(userID, roomID string, messageIDs []uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return nil, &faults.ValidationError{Field: "message_ids", Reason: "must not be empty"}
	}

	if _, err := m.authorizeRoom(userID, roomID); err != nil {
		return nil, err
	}

	marked, err := m.Storage.MarkMessagesRead(roomID, userID, messageIDs)
	if err != nil {
		return nil, &faults.StorageError{Op: "mark read", Err: err}
	}
	if err := m.Storage.ResetUnread(roomID, userID); err != nil {
		log.Printf("WARNING: Failed to reset unread counter for %s: %v", userID, err)
	}

	if len(marked) > 0 {
		if err := m.Storage.PublishEvent(roomID, models.Envelope{
			Type:       models.TypeMessagesMarkedRead,
			RoomID:     roomID,
			MessageIDs: marked,
			MarkedBy:   userID,
		}); err != nil {
			log.Printf("WARNING: Failed to publish read receipts: %v", err)
		}
	}
	return marked, nil
}

// RoomList renders the caller's room catalog, newest activity first.
func (m *ManagerService) RoomList(userID string) ([]models.RoomSummary, error) {
	rooms, err := m.Storage.ListRoomsForUser(userID)
	if err != nil {
		return nil, &faults.StorageError{Op: "list rooms", Err: err}
	}

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for i := range rooms {
		summaries = append(summaries, rooms[i].Summary(userID))
	}
	return summaries, nil
}

// RoomMessages loads a room's recent history for the caller.
func (m *ManagerService) RoomMessages(userID, roomID string, limit int) ([]models.Message, error) {
	if _, err := m.authorizeRoom(userID, roomID); err != nil {
		return nil, err
	}
	msgs, err := m.Storage.ListMessages(roomID, limit)
	if err != nil {
		return nil, &faults.StorageError{Op: "list messages", Err: err}
	}
	return msgs, nil
}

func notSubscribedError(roomID string) error {
	return &faults.PermissionError{RoomID: roomID, Reason: "not subscribed"}
}

func unknownTypeError(t string) error {
	return &faults.ValidationError{Field: "type", Reason: "unknown envelope type " + t}
}

func errorEnvelope(err error, roomID string) models.Envelope {
	return models.ErrorEnvelope(faults.Code(err), err.Error(), roomID)
}
