package chatclient

import (
	"sync"

	"workmesh/backend/internal/models"
)

// ControlSender issues control envelopes over the live channel.
type ControlSender interface {
	SendControl(env models.Envelope) error
}

// SubscriptionRegistry reference-counts room subscriptions so any number of
// UI surfaces watching the same room produce exactly one subscribe control
// message (on the 0→1 transition) and exactly one unsubscribe (on 1→0). The
// refcount survives a send failure: the reconnect resync pass replays the
// whole active set.
type SubscriptionRegistry struct {
	mu     sync.Mutex
	counts map[string]int
	sender ControlSender
}

// NewSubscriptionRegistry constructor.
func NewSubscriptionRegistry(sender ControlSender) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		counts: make(map[string]int),
		sender: sender,
	}
}

// Subscribe registers interest in a room. The control frame is sent only when
// the count crosses 0→1.
func (r *SubscriptionRegistry) Subscribe(roomID string) error {
	r.mu.Lock()
	r.counts[roomID]++
	first := r.counts[roomID] == 1
	r.mu.Unlock()

	if !first {
		return nil
	}
	return r.sender.SendControl(models.Envelope{Type: models.TypeSubscribeRoom, RoomID: roomID})
}

// Unsubscribe releases one reference. The control frame is sent only when the
// count crosses 1→0. Releasing an unheld room is a no-op.
func (r *SubscriptionRegistry) Unsubscribe(roomID string) error {
	r.mu.Lock()
	if r.counts[roomID] == 0 {
		r.mu.Unlock()
		return nil
	}
	r.counts[roomID]--
	last := r.counts[roomID] == 0
	if last {
		delete(r.counts, roomID)
	}
	r.mu.Unlock()

	if !last {
		return nil
	}
	return r.sender.SendControl(models.Envelope{Type: models.TypeUnsubscribeRoom, RoomID: roomID})
}

// IsSubscribed reports whether the room currently has any subscribers.
func (r *SubscriptionRegistry) IsSubscribed(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[roomID] > 0
}

// Snapshot lists every room with a live reference, for the reconnect
// resubscribe pass.
func (r *SubscriptionRegistry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]string, 0, len(r.counts))
	for roomID := range r.counts {
		rooms = append(rooms, roomID)
	}
	return rooms
}
