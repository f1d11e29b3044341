package storage

import (
	"errors"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workmesh/backend/internal/models"
)

// ErrRoomNotFound is returned when a room id does not resolve.
var ErrRoomNotFound = errors.New("room not found")

// CreateRoom inserts a room. For gated rooms the partial unique index on
// (context_id, user1_id, user2_id) makes concurrent first-contact attempts
// race-safe: the losing insert is a no-op and the caller is handed back the
// winner's row in *room.
func (s *Service) CreateRoom(room *models.Room) error {
	if room.Kind == models.RoomKindGated {
		room.User1ID, room.User2ID = models.CanonicalPair(room.User1ID, room.User2ID)
	}

	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(room)
	if res.Error != nil {
		log.Printf("ERROR: Failed to create room for context %s: %v", room.ContextID, res.Error)
		return res.Error
	}

	if res.RowsAffected == 0 {
		// Lost the race. Fetch the winner and hand it back.
		existing, err := s.GetGatedRoom(room.ContextID, room.User1ID, room.User2ID)
		if err != nil {
			return err
		}
		*room = *existing
	}
	return nil
}

// GetRoomByID fetches one room by its id.
func (s *Service) GetRoomByID(roomID string) (*models.Room, error) {
	var room models.Room

	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		return nil, err
	}
	return &room, nil
}

// GetGatedRoom finds the active gated room for a (context, pair) key.
// Returns (nil, nil) when none exists.
func (s *Service) GetGatedRoom(contextID, user1, user2 string) (*models.Room, error) {
	user1, user2 = models.CanonicalPair(user1, user2)

	var room models.Room
	err := s.DB.Where("kind = ? AND context_id = ? AND user1_id = ? AND user2_id = ? AND is_active = ?",
		models.RoomKindGated, contextID, user1, user2, true).
		First(&room).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to look up gated room for context %s: %v", contextID, err)
		return nil, err
	}
	return &room, nil
}

// ListRoomsForUser returns every room the user participates in, most recent
// activity first.
func (s *Service) ListRoomsForUser(userID string) ([]models.Room, error) {
	var rooms []models.Room

	err := s.DB.Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST, started_at DESC").
		Find(&rooms).Error
	if err != nil {
		log.Printf("ERROR: Failed to list rooms for user %s: %v", userID, err)
		return nil, err
	}
	return rooms, nil
}

// DeactivateRoom marks a room inactive. Rooms are never deleted.
func (s *Service) DeactivateRoom(roomID string) error {
	return s.DB.Model(&models.Room{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  gorm.Expr("NOW()"),
		}).Error
}
