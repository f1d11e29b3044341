// Package storage is the durable side of the messaging layer: rooms, messages
// and read state live in PostgreSQL (gorm), while Redis carries the pub/sub
// fan-out channels and the TTL'd typing-presence keys.
package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"workmesh/backend/internal/models"
)

// Storage is the interface the connection authority depends on.
type Storage interface {
	// Rooms
	CreateRoom(room *models.Room) error
	GetRoomByID(roomID string) (*models.Room, error)
	GetGatedRoom(contextID, user1, user2 string) (*models.Room, error)
	ListRoomsForUser(userID string) ([]models.Room, error)
	DeactivateRoom(roomID string) error

	// Messages and read state
	SaveMessage(msg *models.Message) error
	ListMessages(roomID string, limit int) ([]models.Message, error)
	TouchRoomSummary(room *models.Room, msg *models.Message) error
	MarkMessagesRead(roomID, readerID string, messageIDs []uint) ([]uint, error)
	ResetUnread(roomID, userID string) error

	// Broker
	PublishEvent(roomID string, env models.Envelope) error
	SubscribeRooms() *redis.PubSub

	// Ephemeral presence
	SetTyping(roomID, userID string, ttl time.Duration) error

	// Offline notification lookup
	GetTelegramChatID(userID string) (int64, error)
}

// Service implements Storage over gorm and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService constructor.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}
