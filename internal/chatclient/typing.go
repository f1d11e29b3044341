package chatclient

import (
	"sync"
	"time"
)

// typingWindow matches the server's typing TTL: an indicator not renewed
// within the window disappears without an explicit stop signal.
const typingWindow = 5 * time.Second

// TypingTracker holds observed typing indicators with lapse-by-expiry
// semantics. State never survives a reconnect; it simply expires.
type TypingTracker struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewTypingTracker constructor.
func NewTypingTracker(window time.Duration) *TypingTracker {
	return &TypingTracker{
		window:  window,
		entries: make(map[string]map[string]time.Time),
		now:     time.Now,
	}
}

// Observe records or renews a typing indicator for (room, user).
func (t *TypingTracker) Observe(roomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entries[roomID] == nil {
		t.entries[roomID] = make(map[string]time.Time)
	}
	t.entries[roomID][userID] = t.now().Add(t.window)
}

// Typing returns the users still typing in a room, sweeping expired entries.
func (t *TypingTracker) Typing(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := t.entries[roomID]
	if len(users) == 0 {
		return nil
	}

	now := t.now()
	var active []string
	for user, expiry := range users {
		if now.Before(expiry) {
			active = append(active, user)
		} else {
			delete(users, user)
		}
	}
	if len(users) == 0 {
		delete(t.entries, roomID)
	}
	return active
}
