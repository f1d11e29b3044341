package storage

import (
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"workmesh/backend/internal/models"
)

// Redis key layout.
const (
	roomChannelPrefix = "room:"
	roomChannelGlob   = "room:*"
	typingKeyPrefix   = "typing:"
)

// RoomChannel names the pub/sub channel for one room.
func RoomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// PublishEvent pushes a server event onto the room's pub/sub channel. Every
// authority process subscribed to the room pattern picks it up and fans it
// out to its local connections, which is what lets the subscriber registry
// live in the broker instead of a single process map.
func (s *Service) PublishEvent(roomID string, env models.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, RoomChannel(roomID), payload).Err()
}

// SubscribeRooms opens a pattern subscription over every room channel.
func (s *Service) SubscribeRooms() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, roomChannelGlob)
}

// SetTyping records a typing indicator as a TTL'd key. It is never persisted
// and lapses by expiry; there is no explicit clear across reconnects.
func (s *Service) SetTyping(roomID, userID string, ttl time.Duration) error {
	key := typingKeyPrefix + roomID + ":" + userID
	return s.Redis.Set(s.Ctx, key, "1", ttl).Err()
}
