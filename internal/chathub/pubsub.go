package chathub

import (
	"encoding/json"
	"log"

	"workmesh/backend/internal/models"
)

// StartPubSubListener starts the goroutine that bridges the Redis broker into
// the hub loop. Every event published on a room channel, by this process or
// any other authority process, re-enters through PubSubCh and is fanned out
// to the local subscribers.
func (m *ManagerService) StartPubSubListener() {
	go func() {
		pubsub := m.Storage.SubscribeRooms()
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var env models.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("Error unmarshalling broker event: %v", err)
				continue
			}
			m.PubSubCh <- env
		}
	}()
}
