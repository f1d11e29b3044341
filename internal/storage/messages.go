package storage

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"workmesh/backend/internal/models"
)

// SaveMessage durably stores a message. gorm fills msg.ID, which is the
// permanent id confirmed back to the sender. Broadcast must not happen before
// this returns nil.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", msg.RoomID, err)
		return err
	}
	return nil
}

// ListMessages loads up to limit most recent messages of a room, returned in
// storage (ascending id) order. limit <= 0 means no limit.
func (s *Service) ListMessages(roomID string, limit int) ([]models.Message, error) {
	var msgs []models.Message

	q := s.DB.Where("room_id = ?", roomID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&msgs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return msgs, nil
		}
		log.Printf("ERROR: Failed to load messages for room %s: %v", roomID, err)
		return nil, err
	}

	// Reverse into ascending order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// TouchRoomSummary updates the room's denormalized last-message fields and
// bumps the recipient's unread counter.
func (s *Service) TouchRoomSummary(room *models.Room, msg *models.Message) error {
	updates := map[string]interface{}{
		"last_message_body":   msg.Body,
		"last_message_sender": msg.SenderID,
		"last_message_at":     msg.CreatedAt,
	}
	if msg.SenderID == room.User1ID {
		updates["user2_unread"] = gorm.Expr("user2_unread + 1")
	} else {
		updates["user1_unread"] = gorm.Expr("user1_unread + 1")
	}

	return s.DB.Model(&models.Room{}).
		Where("room_id = ?", room.RoomID).
		Updates(updates).Error
}

// MarkMessagesRead appends readerID to ReadBy on each referenced message the
// reader did not send and has not already read. Returns the ids actually
// marked.
func (s *Service) MarkMessagesRead(roomID, readerID string, messageIDs []uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var marked []uint
	err := s.DB.Raw(`
        UPDATE messages
        SET read_by = array_append(COALESCE(read_by, '{}'), ?)
        WHERE id IN ?
          AND room_id = ?
          AND sender_id <> ?
          AND NOT (? = ANY(COALESCE(read_by, '{}')))
        RETURNING id`,
		readerID, messageIDs, roomID, readerID, readerID).
		Scan(&marked).Error
	if err != nil {
		log.Printf("ERROR: Failed to mark messages read in room %s: %v", roomID, err)
		return nil, err
	}
	return marked, nil
}

// ResetUnread zeroes the reader's unread counter on the room.
func (s *Service) ResetUnread(roomID, userID string) error {
	return s.DB.Exec(`
        UPDATE rooms
        SET user1_unread = CASE WHEN user1_id = ? THEN 0 ELSE user1_unread END,
            user2_unread = CASE WHEN user2_id = ? THEN 0 ELSE user2_unread END
        WHERE room_id = ?`,
		userID, userID, roomID).Error
}

// GetTelegramChatID resolves the Telegram chat linked to a user, if any.
func (s *Service) GetTelegramChatID(userID string) (int64, error) {
	var contact models.UserContact

	err := s.DB.Where("user_id = ?", userID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return contact.TelegramChatID, nil
}
